package fcp

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/lambertxiao/go-fcp/pkg/common"
	"github.com/lambertxiao/go-fcp/pkg/ledger"
	"github.com/lambertxiao/go-fcp/pkg/logg"
	"github.com/lambertxiao/go-fcp/pkg/metrics"
	"github.com/lambertxiao/go-fcp/pkg/types"
)

// Writer runs the write command. A Writer is not safe for concurrent use.
type Writer struct {
	opener  Opener
	sources SourceOpener
	diag    io.Writer
	metrics *metrics.WriteMetrics
	clock   common.Clock
}

type Option func(*Writer)

// WithDiagnostics sets where verbose progress lines go, stderr by default.
func WithDiagnostics(w io.Writer) Option {
	return func(wr *Writer) {
		wr.diag = w
	}
}

func WithMetrics(m *metrics.WriteMetrics) Option {
	return func(wr *Writer) {
		wr.metrics = m
	}
}

func WithClock(c common.Clock) Option {
	return func(wr *Writer) {
		wr.clock = c
	}
}

func NewWriter(opener Opener, sources SourceOpener, opts ...Option) *Writer {
	w := &Writer{
		opener:  opener,
		sources: sources,
		diag:    os.Stderr,
		clock:   common.NewDefaultClock(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write copies args.Source into entry args.DstName of the partition at every
// offset of args.Offset, in order, stopping at the first failure. Entries
// written before a failure stay written. The result describes the offsets
// processed so far and is returned on failure too.
func (w *Writer) Write(args *types.WriteArgs) (*Result, error) {
	res := &Result{
		Ledger: ledger.New(),
	}

	err := forEachOffset(args.Offset, func(offset int64) error {
		outcome, err := w.writeAt(args, offset, res)
		if err != nil {
			return err
		}
		res.Outcomes = append(res.Outcomes, outcome)
		return nil
	})
	return res, err
}

func (w *Writer) progress(args *types.WriteArgs, offset int64, name, action string) {
	if !args.Verbose {
		return
	}
	fmt.Fprintf(w.diag, "%8x: %s: %s\n", offset, name, action)
}

func (w *Writer) skip(args *types.WriteArgs, offset int64, name string, outcome Outcome) Outcome {
	switch outcome {
	case OutcomeLogical:
		w.progress(args, offset, name, "logical (skip)")
		w.metrics.Skipped(metrics.SkipLogical)
	case OutcomeProtected:
		w.progress(args, offset, name, "protected (skip)")
		w.metrics.Skipped(metrics.SkipProtected)
	case OutcomeDuplicate:
		w.progress(args, offset, name, fmt.Sprintf("read from '%s' (skip)", args.Source))
		w.metrics.Skipped(metrics.SkipDuplicate)
	case OutcomeEmpty:
		w.metrics.Skipped(metrics.SkipEmpty)
	}
	return outcome
}

// writeAt handles the partition at one offset. The partition, and the source
// once opened, are released on every return path.
func (w *Writer) writeAt(args *types.WriteArgs, offset int64, res *Result) (outcome Outcome, err error) {
	part, err := w.opener.Open(args.DstType, args.DstTarget, offset)
	if err != nil {
		return OutcomeEmpty, err
	}
	defer func() {
		if cerr := part.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: close partition at '%x': %w", types.ErrWrite, offset, cerr)
		}
	}()
	w.metrics.Opened()

	res.LastPartition = part.Path()

	if part.Count() <= 0 {
		return w.skip(args, offset, "", OutcomeEmpty), nil
	}

	blockSize := part.BlockSize()

	if args.Buffer != "" {
		size, err := common.ParseStringToSize(args.Buffer)
		if err != nil {
			return OutcomeEmpty, fmt.Errorf("%w: %w", types.ErrInvalidSize, err)
		}
		if size > math.MaxUint32 {
			return OutcomeEmpty, fmt.Errorf("%w: '%s' exceeds 32 bits", types.ErrBufferConfig, args.Buffer)
		}
		if err := part.SetBuffer(uint32(size)); err != nil {
			return OutcomeEmpty, fmt.Errorf("%w: %w", types.ErrBufferConfig, err)
		}
		logg.Dlog.Debugf("%x: buffer %s, block size %s", offset, humanize.IBytes(size), humanize.IBytes(uint64(blockSize)))
	}

	entry, ok := part.Find(args.DstName)
	if !ok {
		return OutcomeEmpty, fmt.Errorf("%w: '%s' at '%x'", types.ErrEntryNotFound, args.DstName, offset)
	}

	name, err := part.FullName(entry)
	if err != nil {
		return OutcomeEmpty, fmt.Errorf("%w: %w", types.ErrFormat, err)
	}

	if entry.IsLogical() {
		return w.skip(args, offset, name, OutcomeLogical), nil
	}

	if !args.Protected && entry.IsProtected() {
		return w.skip(args, offset, name, OutcomeProtected), nil
	}

	if !args.IsStdin() {
		size, known, err := w.sources.Size(args.Source)
		if err != nil {
			return OutcomeEmpty, fmt.Errorf("%w: %w", types.ErrSourceOpen, err)
		}
		if known && size > int64(entry.Actual) {
			if err := part.Truncate(name, size); err != nil {
				return OutcomeEmpty, fmt.Errorf("%w: '%s' at '%x': %w", types.ErrGrow, name, offset, err)
			}
			w.metrics.Grown()
			w.progress(args, offset, name, fmt.Sprintf("trunc size '%x' (done)", size))
		}
	}

	key := ledger.Key{Device: args.DstTarget, Addr: part.Location(entry)}
	if res.Ledger.Contains(key) {
		return w.skip(args, offset, name, OutcomeDuplicate), nil
	}
	if err := res.Ledger.Add(key); err != nil {
		return OutcomeEmpty, fmt.Errorf("%w: %w", types.ErrLedger, err)
	}

	src, err := w.sources.Open(args.Source)
	if err != nil {
		return OutcomeEmpty, fmt.Errorf("%w: %w", types.ErrSourceOpen, err)
	}
	defer src.Close()

	start := w.clock.Now()
	n, err := part.WriteEntry(name, src)
	if err != nil {
		return OutcomeEmpty, fmt.Errorf("%w: '%s' at '%x': %w", types.ErrWrite, name, offset, err)
	}
	w.metrics.Written(n, w.clock.Since(start))
	logg.Dlog.Debugf("%x: %s: %s written at '%x'", offset, name, humanize.IBytes(uint64(n)), key.Addr)

	if !args.IsStdin() {
		w.progress(args, offset, name, fmt.Sprintf("read from '%s' (done)", args.Source))
	}
	return OutcomeWritten, nil
}
