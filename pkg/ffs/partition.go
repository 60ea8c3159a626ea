package ffs

import (
	"fmt"
	"io"
	"math"
	"syscall"

	"github.com/lambertxiao/go-fcp/pkg/common"
	"github.com/lambertxiao/go-fcp/pkg/logg"
)

type File interface {
	io.ReaderAt
	io.WriterAt
}

// Partition is one partition table of an image. Entry table changes are kept
// in memory and written back by Flush or Close.
type Partition struct {
	f       File
	offset  int64
	hdr     Header
	entries []Entry
	dirty   []bool
	buffer  uint32
	closed  bool
}

// Open decodes the partition table located at offset of f.
func Open(f File, offset int64) (*Partition, error) {
	hbuf := make([]byte, HeaderSize)
	if _, err := f.ReadAt(hbuf, offset); err != nil {
		return nil, err
	}
	hdr, err := unmarshalHeader(hbuf)
	if err != nil {
		return nil, err
	}

	switch {
	case hdr.Magic != Magic:
		return nil, fmt.Errorf("%w at offset '%x'", ErrHeaderMagic, offset)
	case checksum(hbuf) != 0:
		return nil, fmt.Errorf("%w at offset '%x'", ErrHeaderChecksum, offset)
	case hdr.Version != Version1:
		return nil, fmt.Errorf("%w: '%d'", ErrVersion, hdr.Version)
	case hdr.EntrySize != EntrySize:
		return nil, fmt.Errorf("%w: '%d'", ErrEntrySize, hdr.EntrySize)
	case hdr.BlockSize == 0:
		return nil, ErrBlockSize
	}

	p := &Partition{
		f:       f,
		offset:  offset,
		hdr:     *hdr,
		entries: make([]Entry, 0, hdr.EntryCount),
		dirty:   make([]bool, hdr.EntryCount),
	}

	ebuf := make([]byte, EntrySize)
	for i := int64(0); i < int64(hdr.EntryCount); i++ {
		if _, err := f.ReadAt(ebuf, offset+HeaderSize+i*EntrySize); err != nil {
			return nil, err
		}
		if checksum(ebuf) != 0 {
			return nil, fmt.Errorf("%w: entry %d at offset '%x'", ErrEntryChecksum, i, offset)
		}
		e, err := unmarshalEntry(ebuf)
		if err != nil {
			return nil, err
		}
		p.entries = append(p.entries, *e)
	}

	logg.Dlog.Debugf("partition at '%x': %d entries, block size '%x'", offset, len(p.entries), hdr.BlockSize)
	return p, nil
}

func (p *Partition) Offset() int64 {
	return p.offset
}

func (p *Partition) Header() Header {
	return p.hdr
}

func (p *Partition) Count() int {
	return len(p.entries)
}

func (p *Partition) BlockSize() uint32 {
	return p.hdr.BlockSize
}

// SetBuffer sets the chunk size used when streaming into entries.
func (p *Partition) SetBuffer(size uint32) error {
	if size == 0 {
		return fmt.Errorf("%w: '%d'", ErrBuffer, size)
	}
	p.buffer = size
	return nil
}

func (p *Partition) bufferSize() uint32 {
	if p.buffer == 0 {
		return p.hdr.BlockSize
	}
	return p.buffer
}

// Find resolves a '/' separated entry path starting at the top level. The
// first matching entry in table order wins.
func (p *Partition) Find(path string) (Entry, bool) {
	i := p.find(path)
	if i < 0 {
		return Entry{}, false
	}
	return p.entries[i], true
}

func (p *Partition) find(path string) int {
	names := splitPath(path)
	if len(names) == 0 {
		return -1
	}

	idx := -1
	pid := uint32(PidTopLevel)
	for _, name := range names {
		idx = -1
		for i := range p.entries {
			if p.entries[i].Pid == pid && p.entries[i].NameString() == name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return -1
		}
		pid = p.entries[idx].ID
	}
	return idx
}

func (p *Partition) byID(id uint32) int {
	for i := range p.entries {
		if p.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// FullName returns the path of e through its logical parents.
func (p *Partition) FullName(e Entry) (string, error) {
	name := e.NameString()
	pid := e.Pid
	for depth := 0; pid != PidTopLevel; depth++ {
		if depth >= len(p.entries) {
			return "", fmt.Errorf("%w: '%s'", ErrNameLoop, e.NameString())
		}
		i := p.byID(pid)
		if i < 0 {
			return "", fmt.Errorf("%w: parent id '%d' of '%s'", ErrNotFound, pid, e.NameString())
		}
		name = p.entries[i].NameString() + "/" + name
		pid = p.entries[i].Pid
	}
	return name, nil
}

// Location returns the absolute image address of the data of e.
func (p *Partition) Location(e Entry) int64 {
	return p.offset + int64(e.Base)*int64(p.hdr.BlockSize)
}

// capacity is the largest actual size e can record. Actual is a 32-bit
// field, so allocations beyond 4GiB are capped there.
func (p *Partition) capacity(e *Entry) int64 {
	c := int64(e.Size) * int64(p.hdr.BlockSize)
	if c > math.MaxUint32 {
		c = math.MaxUint32
	}
	return c
}

func (p *Partition) lookup(name string) (int, error) {
	if p.closed {
		return -1, ErrClosed
	}
	i := p.find(name)
	if i < 0 {
		return -1, fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}
	return i, nil
}

// Truncate sets the number of bytes in use of the named entry. The size can
// not exceed the blocks allocated to it.
func (p *Partition) Truncate(name string, size int64) error {
	i, err := p.lookup(name)
	if err != nil {
		return err
	}
	e := &p.entries[i]
	if size < 0 || size > p.capacity(e) {
		return fmt.Errorf("entry '%s' size '%x' exceeds '%x': %w", name, size, p.capacity(e), syscall.ENOSPC)
	}
	e.Actual = uint32(size)
	p.dirty[i] = true
	return nil
}

// WriteEntry copies r into the named entry starting at its first byte. The
// entry's actual size grows to the number of bytes written, it never shrinks.
func (p *Partition) WriteEntry(name string, r io.Reader) (int64, error) {
	i, err := p.lookup(name)
	if err != nil {
		return 0, err
	}
	e := &p.entries[i]
	start := p.Location(*e)
	limit := p.capacity(e)

	chunk := int64(p.bufferSize())
	data, err := common.MMP.GetData(chunk)
	if err != nil {
		return 0, err
	}
	defer common.MMP.PutData(data)
	buf := data[:chunk]

	var total int64
	for {
		n, rerr := io.ReadFull(r, buf)
		if n > 0 {
			if total+int64(n) > limit {
				return total, fmt.Errorf("entry '%s' size '%x' exceeded: %w", name, limit, syscall.ENOSPC)
			}
			if _, err := p.f.WriteAt(buf[:n], start+total); err != nil {
				return total, err
			}
			total += int64(n)
		}
		if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
			break
		}
		if rerr != nil {
			return total, rerr
		}
	}

	if total > int64(e.Actual) {
		e.Actual = uint32(total)
		p.dirty[i] = true
	}
	return total, nil
}

// Flush writes modified entries back to the table.
func (p *Partition) Flush() error {
	for i := range p.entries {
		if !p.dirty[i] {
			continue
		}
		b, err := MarshalEntry(&p.entries[i])
		if err != nil {
			return err
		}
		if _, err := p.f.WriteAt(b, p.offset+HeaderSize+int64(i)*EntrySize); err != nil {
			return err
		}
		p.dirty[i] = false
	}
	return nil
}

func (p *Partition) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return p.Flush()
}
