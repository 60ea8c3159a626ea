package types

import "errors"

// offset specification
var (
	ErrInvalidOffset    error = errors.New("invalid --offset specified")
	ErrInvalidSeparator error = errors.New("invalid --offset separator character")
)

// destination partition
var (
	ErrOpen          error = errors.New("unable to open destination")
	ErrInvalidImage  error = errors.New("invalid partition image")
	ErrFormat        error = errors.New("unable to read partition table")
	ErrEntryNotFound error = errors.New("partition entry not found")
)

// buffer override
var (
	ErrInvalidSize  error = errors.New("invalid size")
	ErrBufferConfig error = errors.New("unable to configure buffer")
)

// payload transfer
var (
	ErrGrow       error = errors.New("unable to truncate partition entry")
	ErrSourceOpen error = errors.New("unable to open source")
	ErrWrite      error = errors.New("unable to write partition entry")
	ErrLedger     error = errors.New("unable to record partition entry")
)
