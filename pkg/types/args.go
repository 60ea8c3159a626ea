package types

// WriteArgs holds one invocation of the write command. The write path only
// reads it.
type WriteArgs struct {
	// Source is a local path, an s3://bucket/key url or StdinPath.
	Source string

	DstType   string
	DstTarget string
	DstName   string

	// Offset is the --offset value, e.g. "0x0,0x3f0000".
	Offset string
	// Buffer optionally overrides the partition I/O buffer, e.g. "64k".
	Buffer string

	Verbose   bool
	Protected bool
}

func (a *WriteArgs) IsStdin() bool {
	return a.Source == StdinPath
}
