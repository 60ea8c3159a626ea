// Package ffs reads and updates FFS partition tables: a big-endian header
// followed by a table of fixed size entries, each describing a block range of
// the underlying image.
package ffs

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"

	xdr "github.com/rasky/go-xdr/xdr2"
)

const (
	Magic     = 0x50415254 // "PART"
	Version1  = 1
	NameLen   = 16
	UserWords = 16

	HeaderSize = 48
	EntrySize  = 128

	// PidTopLevel is the parent id of entries that are not nested in a
	// logical container.
	PidTopLevel = 0xFFFFFFFF
)

// entry types
const (
	TypeData      = 1
	TypeLogical   = 2
	TypePartition = 3
)

// entry flags
const (
	FlagProtected = 0x0001
	FlagUBootEnv  = 0x0002
)

var (
	ErrOffsetRange    = errors.New("offset outside of image")
	ErrTruncated      = errors.New("partition table truncated")
	ErrHeaderMagic    = errors.New("no partition table found")
	ErrHeaderChecksum = errors.New("partition header checksum invalid")
	ErrEntryChecksum  = errors.New("partition entry checksum invalid")
	ErrVersion        = errors.New("unsupported partition table version")
	ErrEntrySize      = errors.New("unsupported partition entry size")
	ErrBlockSize      = errors.New("invalid partition block size")
	ErrNotFound       = errors.New("partition entry not found")
	ErrNameLoop       = errors.New("partition entry parent loop")
	ErrBuffer         = errors.New("invalid buffer size")
	ErrClosed         = errors.New("partition closed")
)

type Header struct {
	Magic      uint32
	Version    uint32
	Size       uint32 // table size in blocks
	EntrySize  uint32
	EntryCount uint32
	BlockSize  uint32
	BlockCount uint32
	Resvd      [4]uint32
	Checksum   uint32
}

type Entry struct {
	Name     [NameLen]byte
	Base     uint32 // in blocks, relative to the partition offset
	Size     uint32 // in blocks
	Pid      uint32
	ID       uint32
	Type     uint32
	Flags    uint32
	Actual   uint32 // bytes in use
	Resvd    [4]uint32
	User     [UserWords]uint32
	Checksum uint32
}

func (e *Entry) NameString() string {
	if i := bytes.IndexByte(e.Name[:], 0); i >= 0 {
		return string(e.Name[:i])
	}
	return string(e.Name[:])
}

func (e *Entry) SetName(name string) {
	e.Name = [NameLen]byte{}
	copy(e.Name[:NameLen-1], name)
}

func (e *Entry) IsLogical() bool {
	return e.Type == TypeLogical
}

func (e *Entry) IsProtected() bool {
	return e.Flags&FlagProtected != 0
}

// checksum XORs the big-endian words of buf.
func checksum(buf []byte) uint32 {
	var sum uint32
	for i := 0; i+4 <= len(buf); i += 4 {
		sum ^= binary.BigEndian.Uint32(buf[i:])
	}
	return sum
}

// MarshalHeader encodes h with a freshly computed checksum.
func MarshalHeader(h *Header) ([]byte, error) {
	return marshal(h, &h.Checksum, HeaderSize)
}

// MarshalEntry encodes e with a freshly computed checksum.
func MarshalEntry(e *Entry) ([]byte, error) {
	return marshal(e, &e.Checksum, EntrySize)
}

func marshal(v interface{}, sum *uint32, size int) ([]byte, error) {
	*sum = 0
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, v); err != nil {
		return nil, err
	}
	b := buf.Bytes()
	*sum = checksum(b[:size-4])
	binary.BigEndian.PutUint32(b[size-4:], *sum)
	return b, nil
}

func unmarshalHeader(b []byte) (*Header, error) {
	var h Header
	if _, err := xdr.Unmarshal(bytes.NewReader(b[:HeaderSize]), &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func unmarshalEntry(b []byte) (*Entry, error) {
	var e Entry
	if _, err := xdr.Unmarshal(bytes.NewReader(b[:EntrySize]), &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func splitPath(path string) []string {
	var names []string
	for _, name := range strings.Split(path, "/") {
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}
