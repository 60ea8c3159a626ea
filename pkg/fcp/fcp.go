// Package fcp copies a payload into a named entry of every FFS partition table
// listed in an --offset value.
package fcp

//go:generate mockgen -destination=../mocks/mock_fcp.go -package=mocks github.com/lambertxiao/go-fcp/pkg/fcp Partition,Opener,SourceOpener

import (
	"io"

	"github.com/lambertxiao/go-fcp/pkg/ffs"
	"github.com/lambertxiao/go-fcp/pkg/ledger"
)

// Partition is one open partition table. Close flushes the entry table and
// releases the underlying file.
type Partition interface {
	Path() string
	Count() int
	BlockSize() uint32
	SetBuffer(size uint32) error
	Find(name string) (ffs.Entry, bool)
	FullName(e ffs.Entry) (string, error)
	Location(e ffs.Entry) int64
	Truncate(name string, size int64) error
	WriteEntry(name string, r io.Reader) (int64, error)
	Close() error
}

type Opener interface {
	Open(typ, target string, offset int64) (Partition, error)
}

type SourceOpener interface {
	// Size returns the payload length; known is false for streams.
	Size(path string) (size int64, known bool, err error)
	Open(path string) (io.ReadCloser, error)
}

// Outcome is what happened at one offset.
type Outcome int

const (
	OutcomeEmpty Outcome = iota
	OutcomeLogical
	OutcomeProtected
	OutcomeDuplicate
	OutcomeWritten
)

func (o Outcome) String() string {
	switch o {
	case OutcomeEmpty:
		return "empty"
	case OutcomeLogical:
		return "logical"
	case OutcomeProtected:
		return "protected"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeWritten:
		return "written"
	default:
		return "unknown"
	}
}

type Result struct {
	// LastPartition is the display path of the most recently opened
	// partition.
	LastPartition string

	// Outcomes holds one value per successfully processed offset, in order.
	Outcomes []Outcome

	// Ledger holds the entries written by this invocation.
	Ledger *ledger.Ledger
}

func (r *Result) Count(o Outcome) int {
	var n int
	for _, v := range r.Outcomes {
		if v == o {
			n++
		}
	}
	return n
}
