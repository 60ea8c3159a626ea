package fcp_test

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/lambertxiao/go-fcp/pkg/common"
	"github.com/lambertxiao/go-fcp/pkg/fcp"
	"github.com/lambertxiao/go-fcp/pkg/ffs"
	"github.com/lambertxiao/go-fcp/pkg/ffs/ffstest"
	"github.com/lambertxiao/go-fcp/pkg/ledger"
	"github.com/lambertxiao/go-fcp/pkg/metrics"
	"github.com/lambertxiao/go-fcp/pkg/source"
	"github.com/lambertxiao/go-fcp/pkg/types"
	"github.com/stretchr/testify/suite"
)

const (
	blockSize = 0x100
	imageSize = 0x4000
	offsetA   = 0x1000
	offsetB   = 0x2000
	// offsetAlias holds a table whose BOOT entry covers the same blocks as
	// BOOT of the table at offsetA.
	offsetAlias = 0x800
)

func TestWriteTestSuite(t *testing.T) {
	suite.Run(t, new(WriteTestSuite))
}

type WriteTestSuite struct {
	suite.Suite
	image   string
	src     string
	payload []byte
	diag    *bytes.Buffer
	sources *source.Opener
	writer  *fcp.Writer
}

func table() *ffstest.Table {
	return ffstest.NewTable(blockSize, 0x10).
		Add(ffstest.Entry{Name: "part", Base: 0, Size: 4, Type: ffs.TypePartition, Actual: 4 * blockSize}).
		Add(ffstest.Entry{Name: "BOOT", Base: 4, Size: 4, Actual: 0x10}).
		Add(ffstest.Entry{Name: "LOGIC", Base: 8, Size: 4, Type: ffs.TypeLogical}).
		Add(ffstest.Entry{Name: "SECURE", Base: 12, Size: 4, Flags: ffs.FlagProtected, Actual: 0x10})
}

func (s *WriteTestSuite) SetupTest() {
	dir := s.T().TempDir()

	img := ffstest.NewImage(imageSize)
	s.Require().NoError(img.Put(offsetA, table()))
	s.Require().NoError(img.Put(offsetB, table()))
	alias := ffstest.NewTable(blockSize, 0x10).
		Add(ffstest.Entry{Name: "BOOT", Base: 0xC, Size: 4, Actual: 0x10})
	s.Require().NoError(img.Put(offsetAlias, alias))
	s.image = filepath.Join(dir, "pnor.img")
	s.Require().NoError(img.WriteFile(s.image))

	s.payload = bytes.Repeat([]byte{0xA5, 0x5A, 0x00, 0x11}, 0x40)
	s.src = filepath.Join(dir, "boot.bin")
	s.Require().NoError(os.WriteFile(s.src, s.payload, 0644))

	s.diag = &bytes.Buffer{}
	s.sources = source.NewOpener(nil)
	s.writer = fcp.NewWriter(fcp.FileOpener{}, s.sources, fcp.WithDiagnostics(s.diag))
}

func (s *WriteTestSuite) args(offset, name string) *types.WriteArgs {
	return &types.WriteArgs{
		Source:    s.src,
		DstType:   types.DEFAULT_DST_TYPE,
		DstTarget: s.image,
		DstName:   name,
		Offset:    offset,
		Verbose:   true,
	}
}

func (s *WriteTestSuite) imageSum() [sha256.Size]byte {
	data, err := os.ReadFile(s.image)
	s.Require().NoError(err)
	return sha256.Sum256(data)
}

// entry reads back name from the table at offset.
func (s *WriteTestSuite) entry(offset int64, name string) (ffs.Entry, []byte) {
	data, err := os.ReadFile(s.image)
	s.Require().NoError(err)

	f, err := os.Open(s.image)
	s.Require().NoError(err)
	defer f.Close()
	p, err := ffs.Open(f, offset)
	s.Require().NoError(err)

	e, ok := p.Find(name)
	s.Require().True(ok)
	start := p.Location(e)
	return e, data[start : start+int64(e.Actual)]
}

func (s *WriteTestSuite) line(offset int64, name, action string) string {
	return fmt.Sprintf("%8x: %s: %s\n", offset, name, action)
}

func (s *WriteTestSuite) TestTwoPartitions() {
	res, err := s.writer.Write(s.args("0x1000,0x2000", "BOOT"))
	s.Require().NoError(err)

	s.Equal([]fcp.Outcome{fcp.OutcomeWritten, fcp.OutcomeWritten}, res.Outcomes)
	s.Equal(2, res.Ledger.Len())
	s.Equal([]ledger.Key{
		{Device: s.image, Addr: offsetA + 4*blockSize},
		{Device: s.image, Addr: offsetB + 4*blockSize},
	}, res.Ledger.Keys())
	s.Equal("pnor.img", res.LastPartition)

	for _, offset := range []int64{offsetA, offsetB} {
		e, data := s.entry(offset, "BOOT")
		s.Equal(uint32(len(s.payload)), e.Actual)
		s.Equal(s.payload, data)
	}

	s.Equal(
		s.line(offsetA, "BOOT", "trunc size '100' (done)")+
			s.line(offsetA, "BOOT", fmt.Sprintf("read from '%s' (done)", s.src))+
			s.line(offsetB, "BOOT", "trunc size '100' (done)")+
			s.line(offsetB, "BOOT", fmt.Sprintf("read from '%s' (done)", s.src)),
		s.diag.String())
}

func (s *WriteTestSuite) TestSameEntryFromTwoTables() {
	res, err := s.writer.Write(s.args("0x1000,0x800", "BOOT"))
	s.Require().NoError(err)

	s.Equal([]fcp.Outcome{fcp.OutcomeWritten, fcp.OutcomeDuplicate}, res.Outcomes)
	s.Equal(1, res.Ledger.Len())
	s.Contains(s.diag.String(), s.line(offsetAlias, "BOOT", fmt.Sprintf("read from '%s' (skip)", s.src)))

	_, data := s.entry(offsetA, "BOOT")
	s.Equal(s.payload, data)
}

func (s *WriteTestSuite) TestRepeatedOffset() {
	res, err := s.writer.Write(s.args("0x1000:0x1000", "BOOT"))
	s.Require().NoError(err)

	s.Equal(1, res.Count(fcp.OutcomeWritten))
	s.Equal(1, res.Count(fcp.OutcomeDuplicate))
	s.Equal(2, strings.Count(s.diag.String(), "(done)\n"))
}

func (s *WriteTestSuite) TestLogicalEntry() {
	before := s.imageSum()

	res, err := s.writer.Write(s.args("0x1000", "LOGIC"))
	s.Require().NoError(err)

	s.Equal([]fcp.Outcome{fcp.OutcomeLogical}, res.Outcomes)
	s.Equal(0, res.Ledger.Len())
	s.Equal(before, s.imageSum())
	s.Equal(s.line(offsetA, "LOGIC", "logical (skip)"), s.diag.String())
}

func (s *WriteTestSuite) TestProtectedEntry() {
	before := s.imageSum()

	res, err := s.writer.Write(s.args("0x1000", "SECURE"))
	s.Require().NoError(err)
	s.Equal([]fcp.Outcome{fcp.OutcomeProtected}, res.Outcomes)
	s.Equal(before, s.imageSum())
	s.Equal(s.line(offsetA, "SECURE", "protected (skip)"), s.diag.String())

	args := s.args("0x1000", "SECURE")
	args.Protected = true
	res, err = s.writer.Write(args)
	s.Require().NoError(err)
	s.Equal([]fcp.Outcome{fcp.OutcomeWritten}, res.Outcomes)
	_, data := s.entry(offsetA, "SECURE")
	s.Equal(s.payload, data)
}

func (s *WriteTestSuite) TestQuietSkips() {
	args := s.args("0x1000", "LOGIC")
	args.Verbose = false

	_, err := s.writer.Write(args)
	s.Require().NoError(err)
	s.Empty(s.diag.String())
}

func (s *WriteTestSuite) TestSmallerSourceKeepsAllocation() {
	s.Require().NoError(os.WriteFile(s.src, []byte("tiny"), 0644))

	_, err := s.writer.Write(s.args("0x1000", "BOOT"))
	s.Require().NoError(err)

	e, data := s.entry(offsetA, "BOOT")
	s.Equal(uint32(0x10), e.Actual)
	s.Equal([]byte("tiny"), data[:4])
	s.NotContains(s.diag.String(), "trunc")
}

func (s *WriteTestSuite) TestGrowBeyondCapacity() {
	s.Require().NoError(os.WriteFile(s.src, make([]byte, 4*blockSize+1), 0644))
	before := s.imageSum()

	_, err := s.writer.Write(s.args("0x1000", "BOOT"))
	s.ErrorIs(err, types.ErrGrow)
	s.ErrorIs(err, syscall.ENOSPC)
	s.Equal(before, s.imageSum())
}

func (s *WriteTestSuite) TestStdin() {
	data := []byte("streamed through stdin, no stat")
	s.sources.Stdin = bytes.NewReader(data)
	args := s.args("0x1000", "BOOT")
	args.Source = types.StdinPath

	res, err := s.writer.Write(args)
	s.Require().NoError(err)
	s.Equal([]fcp.Outcome{fcp.OutcomeWritten}, res.Outcomes)

	e, content := s.entry(offsetA, "BOOT")
	s.Equal(uint32(len(data)), e.Actual)
	s.Equal(data, content)
	s.Empty(s.diag.String())
}

func (s *WriteTestSuite) TestEntryNotFound() {
	before := s.imageSum()

	res, err := s.writer.Write(s.args("0x1000", "NOPE"))
	s.ErrorIs(err, types.ErrEntryNotFound)
	s.Empty(res.Outcomes)
	s.Equal(before, s.imageSum())
}

func (s *WriteTestSuite) TestEmptyOffset() {
	before := s.imageSum()

	res, err := s.writer.Write(s.args("", "BOOT"))
	s.NoError(err)
	s.Empty(res.Outcomes)
	s.Equal(0, res.Ledger.Len())
	s.Empty(res.LastPartition)
	s.Equal(before, s.imageSum())
}

func (s *WriteTestSuite) TestStopsAtFirstFailure() {
	res, err := s.writer.Write(s.args("0x1000,0x3000,0x2000", "BOOT"))
	s.ErrorIs(err, types.ErrInvalidImage)
	s.ErrorIs(err, ffs.ErrHeaderMagic)

	s.Equal([]fcp.Outcome{fcp.OutcomeWritten}, res.Outcomes)
	_, data := s.entry(offsetA, "BOOT")
	s.Equal(s.payload, data)
	e, _ := s.entry(offsetB, "BOOT")
	s.Equal(uint32(0x10), e.Actual)
}

func (s *WriteTestSuite) TestMalformedOffsetAfterWrite() {
	res, err := s.writer.Write(s.args("0x1000;0x2000", "BOOT"))
	s.ErrorIs(err, types.ErrInvalidSeparator)
	s.Empty(res.Outcomes)

	res, err = s.writer.Write(s.args("0x1000,junk", "BOOT"))
	s.ErrorIs(err, types.ErrInvalidOffset)
	s.Equal([]fcp.Outcome{fcp.OutcomeWritten}, res.Outcomes)
}

func (s *WriteTestSuite) TestOffsetOutsideImage() {
	_, err := s.writer.Write(s.args("0x10000", "BOOT"))
	s.ErrorIs(err, types.ErrInvalidImage)
	s.ErrorIs(err, ffs.ErrOffsetRange)
}

func (s *WriteTestSuite) TestOpenErrors() {
	args := s.args("0x1000", "BOOT")
	args.DstTarget = filepath.Join(s.T().TempDir(), "absent.img")
	_, err := s.writer.Write(args)
	s.ErrorIs(err, types.ErrOpen)
	s.ErrorIs(err, os.ErrNotExist)

	args = s.args("0x1000", "BOOT")
	args.DstType = "aa"
	_, err = s.writer.Write(args)
	s.ErrorIs(err, types.ErrOpen)
}

func (s *WriteTestSuite) TestSourceMissing() {
	s.Require().NoError(os.Remove(s.src))

	_, err := s.writer.Write(s.args("0x1000", "BOOT"))
	s.ErrorIs(err, types.ErrSourceOpen)
	s.ErrorIs(err, os.ErrNotExist)
}

func (s *WriteTestSuite) TestBuffer() {
	args := s.args("0x1000", "BOOT")
	args.Buffer = "0x10"
	_, err := s.writer.Write(args)
	s.Require().NoError(err)
	_, data := s.entry(offsetA, "BOOT")
	s.Equal(s.payload, data)

	for buffer, want := range map[string]error{
		"12q": types.ErrInvalidSize,
		"0":   types.ErrBufferConfig,
		"8G":  types.ErrBufferConfig,
	} {
		args.Buffer = buffer
		_, err = s.writer.Write(args)
		s.ErrorIs(err, want, buffer)
	}
}

func (s *WriteTestSuite) TestEmptyPartition() {
	img := ffstest.NewImage(imageSize)
	s.Require().NoError(img.Put(offsetA, ffstest.NewTable(blockSize, 0x10)))
	s.Require().NoError(img.WriteFile(s.image))

	res, err := s.writer.Write(s.args("0x1000", "BOOT"))
	s.NoError(err)
	s.Equal([]fcp.Outcome{fcp.OutcomeEmpty}, res.Outcomes)
}

func (s *WriteTestSuite) TestMetrics() {
	m := metrics.New("pnor.img")
	clock := &common.ManualClock{T: time.Unix(1700000000, 0)}
	writer := fcp.NewWriter(fcp.FileOpener{}, s.sources,
		fcp.WithMetrics(m),
		fcp.WithDiagnostics(s.diag),
		fcp.WithClock(clock),
	)

	_, err := writer.Write(s.args("0x1000,0x800,0x2000", "BOOT"))
	s.Require().NoError(err)

	path := filepath.Join(s.T().TempDir(), "go-fcp.prom")
	s.Require().NoError(m.WriteToTextfile(path))
	data, err := os.ReadFile(path)
	s.Require().NoError(err)
	text := string(data)
	s.Contains(text, `gofcp_entries_written_total{target="pnor.img"} 2`)
	s.Contains(text, `gofcp_partitions_opened_total{target="pnor.img"} 3`)
	s.Contains(text, `gofcp_entries_skipped_total{reason="duplicate",target="pnor.img"} 1`)
	s.Contains(text, `gofcp_entries_truncated_total{target="pnor.img"} 3`)
	s.Contains(text, `gofcp_entry_write_durations_histogram_seconds_count{target="pnor.img"} 2`)
	s.Contains(text, `gofcp_entry_write_durations_histogram_seconds_sum{target="pnor.img"} 0`)
}
