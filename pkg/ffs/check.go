package ffs

import (
	"fmt"
	"io"
)

// Check verifies that r holds a sane partition table at offset: the offset lies
// inside an image of the given size, the header magic and every checksum
// match, and the whole table fits in the image.
func Check(r io.ReaderAt, size, offset int64) error {
	if offset < 0 || offset >= size {
		return fmt.Errorf("%w: offset '%x' image size '%x'", ErrOffsetRange, offset, size)
	}
	if offset+HeaderSize > size {
		return fmt.Errorf("%w: header at '%x'", ErrTruncated, offset)
	}

	hbuf := make([]byte, HeaderSize)
	if _, err := r.ReadAt(hbuf, offset); err != nil {
		return err
	}
	hdr, err := unmarshalHeader(hbuf)
	if err != nil {
		return err
	}
	if hdr.Magic != Magic {
		return fmt.Errorf("%w at offset '%x'", ErrHeaderMagic, offset)
	}
	if checksum(hbuf) != 0 {
		return fmt.Errorf("%w at offset '%x'", ErrHeaderChecksum, offset)
	}
	if hdr.EntrySize != EntrySize {
		return fmt.Errorf("%w: '%d'", ErrEntrySize, hdr.EntrySize)
	}

	tableEnd := offset + HeaderSize + int64(hdr.EntryCount)*EntrySize
	if tableEnd > size {
		return fmt.Errorf("%w: '%d' entries at '%x'", ErrTruncated, hdr.EntryCount, offset)
	}

	ebuf := make([]byte, EntrySize)
	for i := int64(0); i < int64(hdr.EntryCount); i++ {
		if _, err := r.ReadAt(ebuf, offset+HeaderSize+i*EntrySize); err != nil {
			return err
		}
		if checksum(ebuf) != 0 {
			return fmt.Errorf("%w: entry %d at offset '%x'", ErrEntryChecksum, i, offset)
		}
	}
	return nil
}
