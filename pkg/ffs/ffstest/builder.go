// Package ffstest assembles partition images for tests.
package ffstest

import (
	"fmt"
	"os"

	"github.com/lambertxiao/go-fcp/pkg/ffs"
)

type Entry struct {
	Name   string
	Parent string // logical entry added earlier, empty for top level
	Base   uint32
	Size   uint32
	Type   uint32
	Flags  uint32
	Actual uint32
}

// Table builds one partition table.
type Table struct {
	BlockSize  uint32
	BlockCount uint32
	entries    []ffs.Entry
	err        error
}

func NewTable(blockSize, blockCount uint32) *Table {
	return &Table{
		BlockSize:  blockSize,
		BlockCount: blockCount,
	}
}

// Add appends an entry; ids are assigned in insertion order.
func (t *Table) Add(e Entry) *Table {
	pid := uint32(ffs.PidTopLevel)
	if e.Parent != "" {
		found := false
		for i := range t.entries {
			if t.entries[i].NameString() == e.Parent {
				pid, found = t.entries[i].ID, true
				break
			}
		}
		if !found && t.err == nil {
			t.err = fmt.Errorf("parent '%s' of '%s' not added", e.Parent, e.Name)
		}
	}

	typ := e.Type
	if typ == 0 {
		typ = ffs.TypeData
	}

	var fe ffs.Entry
	fe.SetName(e.Name)
	fe.Base = e.Base
	fe.Size = e.Size
	fe.Pid = pid
	fe.ID = uint32(len(t.entries))
	fe.Type = typ
	fe.Flags = e.Flags
	fe.Actual = e.Actual
	t.entries = append(t.entries, fe)
	return t
}

// Bytes encodes header and entries.
func (t *Table) Bytes() ([]byte, error) {
	if t.err != nil {
		return nil, t.err
	}
	hdr := ffs.Header{
		Magic:      ffs.Magic,
		Version:    ffs.Version1,
		Size:       1,
		EntrySize:  ffs.EntrySize,
		EntryCount: uint32(len(t.entries)),
		BlockSize:  t.BlockSize,
		BlockCount: t.BlockCount,
	}
	b, err := ffs.MarshalHeader(&hdr)
	if err != nil {
		return nil, err
	}
	for i := range t.entries {
		eb, err := ffs.MarshalEntry(&t.entries[i])
		if err != nil {
			return nil, err
		}
		b = append(b, eb...)
	}
	return b, nil
}

// Image is a flat image holding tables at arbitrary offsets.
type Image struct {
	Data []byte
}

// NewImage returns an image of size bytes filled with 0xFF, the erased flash
// value.
func NewImage(size int) *Image {
	data := make([]byte, size)
	for i := range data {
		data[i] = 0xFF
	}
	return &Image{Data: data}
}

func (img *Image) Put(offset int64, t *Table) error {
	b, err := t.Bytes()
	if err != nil {
		return err
	}
	if offset < 0 || offset+int64(len(b)) > int64(len(img.Data)) {
		return fmt.Errorf("table at '%x' does not fit", offset)
	}
	copy(img.Data[offset:], b)
	return nil
}

// WriteFile stores the image at path.
func (img *Image) WriteFile(path string) error {
	return os.WriteFile(path, img.Data, 0644)
}
