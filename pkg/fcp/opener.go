package fcp

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lambertxiao/go-fcp/pkg/ffs"
	"github.com/lambertxiao/go-fcp/pkg/types"
)

// FileOpener opens partitions stored in image files or block devices.
type FileOpener struct{}

func (FileOpener) Open(typ, target string, offset int64) (Partition, error) {
	if typ != "" && typ != types.DEFAULT_DST_TYPE {
		return nil, fmt.Errorf("%w: unsupported type '%s'", types.ErrOpen, typ)
	}

	f, err := os.OpenFile(target, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrOpen, err)
	}

	size, err := imageSize(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", types.ErrOpen, err)
	}

	if err := ffs.Check(f, size, offset); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: '%s': %w", types.ErrInvalidImage, target, err)
	}

	p, err := ffs.Open(f, offset)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: '%s' at '%x': %w", types.ErrFormat, target, offset, err)
	}

	return &filePartition{
		Partition: p,
		file:      f,
		path:      filepath.Base(target),
	}, nil
}

// imageSize reports the byte length of a regular file or a device.
func imageSize(f *os.File) (int64, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if st.Mode().IsRegular() {
		return st.Size(), nil
	}
	if st.Mode()&os.ModeDevice == 0 {
		return 0, fmt.Errorf("'%s' is not a file or device", f.Name())
	}
	return f.Seek(0, io.SeekEnd)
}

type filePartition struct {
	*ffs.Partition
	file *os.File
	path string
}

func (p *filePartition) Path() string {
	return p.path
}

func (p *filePartition) Close() error {
	return errors.Join(p.Partition.Close(), p.file.Close())
}
