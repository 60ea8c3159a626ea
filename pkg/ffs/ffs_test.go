package ffs_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"syscall"
	"testing"

	"github.com/lambertxiao/go-fcp/pkg/ffs"
	"github.com/lambertxiao/go-fcp/pkg/ffs/ffstest"
	"github.com/stretchr/testify/suite"
)

const (
	blockSize  = 0x100
	imageSize  = 0x4000
	partOffset = 0x1000
)

type memFile struct {
	data []byte
}

func (m *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (m *memFile) WriteAt(p []byte, off int64) (int, error) {
	if off+int64(len(p)) > int64(len(m.data)) {
		return 0, io.ErrShortWrite
	}
	return copy(m.data[off:], p), nil
}

func TestPartitionTestSuite(t *testing.T) {
	suite.Run(t, new(PartitionTestSuite))
}

type PartitionTestSuite struct {
	suite.Suite
	file *memFile
}

func (s *PartitionTestSuite) SetupTest() {
	img := ffstest.NewImage(imageSize)
	table := ffstest.NewTable(blockSize, imageSize/blockSize).
		Add(ffstest.Entry{Name: "part", Base: 0, Size: 4, Type: ffs.TypePartition, Actual: 4 * blockSize}).
		Add(ffstest.Entry{Name: "BOOT", Base: 4, Size: 4, Actual: 0x80}).
		Add(ffstest.Entry{Name: "FW", Base: 8, Size: 8, Type: ffs.TypeLogical}).
		Add(ffstest.Entry{Name: "HBI", Parent: "FW", Base: 8, Size: 4, Flags: ffs.FlagProtected}).
		Add(ffstest.Entry{Name: "HBD", Parent: "FW", Base: 12, Size: 4})
	s.Require().NoError(img.Put(partOffset, table))
	s.file = &memFile{data: img.Data}
}

func (s *PartitionTestSuite) open() *ffs.Partition {
	p, err := ffs.Open(s.file, partOffset)
	s.Require().NoError(err)
	return p
}

func (s *PartitionTestSuite) TestCheck() {
	s.NoError(ffs.Check(s.file, imageSize, partOffset))
	s.ErrorIs(ffs.Check(s.file, imageSize, imageSize), ffs.ErrOffsetRange)
	s.ErrorIs(ffs.Check(s.file, imageSize, -1), ffs.ErrOffsetRange)
	s.ErrorIs(ffs.Check(s.file, imageSize, 0), ffs.ErrHeaderMagic)
	s.ErrorIs(ffs.Check(s.file, imageSize, imageSize-ffs.HeaderSize/2), ffs.ErrTruncated)
}

func (s *PartitionTestSuite) TestCheckHeaderChecksum() {
	s.file.data[partOffset+8] ^= 0x01
	s.ErrorIs(ffs.Check(s.file, imageSize, partOffset), ffs.ErrHeaderChecksum)

	_, err := ffs.Open(s.file, partOffset)
	s.ErrorIs(err, ffs.ErrHeaderChecksum)
}

func (s *PartitionTestSuite) TestCheckEntryChecksum() {
	s.file.data[partOffset+ffs.HeaderSize+ffs.EntrySize+20] ^= 0x01
	s.ErrorIs(ffs.Check(s.file, imageSize, partOffset), ffs.ErrEntryChecksum)

	_, err := ffs.Open(s.file, partOffset)
	s.ErrorIs(err, ffs.ErrEntryChecksum)
}

func (s *PartitionTestSuite) TestCheckTableBeyondImage() {
	s.ErrorIs(ffs.Check(s.file, partOffset+ffs.HeaderSize+ffs.EntrySize, partOffset), ffs.ErrTruncated)
}

func (s *PartitionTestSuite) TestOpenVersion() {
	// bump the version and repair the checksum
	hdr := s.file.data[partOffset : partOffset+ffs.HeaderSize]
	binary.BigEndian.PutUint32(hdr[4:], 2)
	sum := binary.BigEndian.Uint32(hdr[44:]) ^ 1 ^ 2
	binary.BigEndian.PutUint32(hdr[44:], sum)

	s.NoError(ffs.Check(s.file, imageSize, partOffset))
	_, err := ffs.Open(s.file, partOffset)
	s.ErrorIs(err, ffs.ErrVersion)
}

func (s *PartitionTestSuite) TestOpen() {
	p := s.open()

	s.Equal(5, p.Count())
	s.Equal(uint32(blockSize), p.BlockSize())
	s.Equal(int64(partOffset), p.Offset())
	s.Equal(uint32(ffs.Magic), p.Header().Magic)
}

func (s *PartitionTestSuite) TestFind() {
	p := s.open()

	e, ok := p.Find("BOOT")
	s.True(ok)
	s.Equal("BOOT", e.NameString())
	s.Equal(uint32(0x80), e.Actual)
	s.Equal(int64(partOffset+4*blockSize), p.Location(e))

	e, ok = p.Find("FW/HBI")
	s.True(ok)
	s.True(e.IsProtected())
	s.False(e.IsLogical())

	e, ok = p.Find("/FW/")
	s.True(ok)
	s.True(e.IsLogical())

	_, ok = p.Find("HBI")
	s.False(ok)
	_, ok = p.Find("")
	s.False(ok)
	_, ok = p.Find("FW/NOPE")
	s.False(ok)
}

func (s *PartitionTestSuite) TestFullName() {
	p := s.open()

	e, _ := p.Find("FW/HBD")
	name, err := p.FullName(e)
	s.NoError(err)
	s.Equal("FW/HBD", name)

	e, _ = p.Find("BOOT")
	name, err = p.FullName(e)
	s.NoError(err)
	s.Equal("BOOT", name)

	e.Pid = 99
	_, err = p.FullName(e)
	s.ErrorIs(err, ffs.ErrNotFound)
}

func (s *PartitionTestSuite) TestTruncatePersists() {
	p := s.open()

	s.NoError(p.Truncate("BOOT", 4*blockSize))
	e, _ := p.Find("BOOT")
	s.Equal(uint32(4*blockSize), e.Actual)
	s.NoError(p.Close())

	s.NoError(ffs.Check(s.file, imageSize, partOffset))
	e, _ = s.open().Find("BOOT")
	s.Equal(uint32(4*blockSize), e.Actual)
}

func (s *PartitionTestSuite) TestTruncateBeyondCapacity() {
	p := s.open()

	err := p.Truncate("BOOT", 4*blockSize+1)
	s.ErrorIs(err, syscall.ENOSPC)
	s.ErrorIs(p.Truncate("NOPE", 1), ffs.ErrNotFound)
}

func (s *PartitionTestSuite) TestTruncateActualRange() {
	const bigBlock = 0x10000
	img := ffstest.NewImage(0x1000)
	table := ffstest.NewTable(bigBlock, 0x20000).
		Add(ffstest.Entry{Name: "BIG", Base: 1, Size: 0x10001, Actual: 0x10})
	s.Require().NoError(img.Put(0, table))
	p, err := ffs.Open(&memFile{data: img.Data}, 0)
	s.Require().NoError(err)

	err = p.Truncate("BIG", 1<<32+5)
	s.ErrorIs(err, syscall.ENOSPC)
	e, _ := p.Find("BIG")
	s.Equal(uint32(0x10), e.Actual)

	s.NoError(p.Truncate("BIG", math.MaxUint32))
	e, _ = p.Find("BIG")
	s.Equal(uint32(math.MaxUint32), e.Actual)
}

func (s *PartitionTestSuite) TestWriteEntry() {
	p := s.open()
	s.NoError(p.SetBuffer(3))

	payload := bytes.Repeat([]byte("fcp!"), 100)
	n, err := p.WriteEntry("FW/HBD", bytes.NewReader(payload))
	s.NoError(err)
	s.Equal(int64(len(payload)), n)

	e, _ := p.Find("FW/HBD")
	start := p.Location(e)
	s.Equal(payload, s.file.data[start:start+int64(len(payload))])
	s.Equal(byte(0xFF), s.file.data[start+int64(len(payload))])
	s.Equal(uint32(len(payload)), e.Actual)

	s.NoError(p.Close())
	e, _ = s.open().Find("FW/HBD")
	s.Equal(uint32(len(payload)), e.Actual)
}

func (s *PartitionTestSuite) TestWriteEntryKeepsLargerActual() {
	p := s.open()

	n, err := p.WriteEntry("BOOT", bytes.NewReader([]byte("ab")))
	s.NoError(err)
	s.Equal(int64(2), n)

	e, _ := p.Find("BOOT")
	s.Equal(uint32(0x80), e.Actual)
}

func (s *PartitionTestSuite) TestWriteEntryOverflow() {
	p := s.open()

	_, err := p.WriteEntry("BOOT", bytes.NewReader(make([]byte, 4*blockSize+1)))
	s.ErrorIs(err, syscall.ENOSPC)
}

func (s *PartitionTestSuite) TestSetBuffer() {
	p := s.open()
	s.ErrorIs(p.SetBuffer(0), ffs.ErrBuffer)
	s.NoError(p.SetBuffer(4096))
}

func (s *PartitionTestSuite) TestClosed() {
	p := s.open()
	s.NoError(p.Close())
	s.NoError(p.Close())

	s.ErrorIs(p.Truncate("BOOT", 1), ffs.ErrClosed)
	_, err := p.WriteEntry("BOOT", bytes.NewReader(nil))
	s.ErrorIs(err, ffs.ErrClosed)
}
