package fcp

import (
	"fmt"
	"math"
	"strconv"

	"github.com/lambertxiao/go-fcp/pkg/types"
)

func isSeparator(c byte) bool {
	return c == ',' || c == ':'
}

// scanOffset reads the unsigned integer at the start of s the way strtoull
// with base 0 does, without skipping whitespace or accepting a sign. It
// returns the value and the number of bytes consumed; n is 0 when s does not
// start with a digit.
func scanOffset(s string) (v uint64, n int, err error) {
	base, start := 10, 0
	switch {
	case len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') && isDigit(s[2], 16):
		base, start = 16, 2
	case len(s) > 0 && s[0] == '0':
		base = 8
	}

	end := start
	for end < len(s) && isDigit(s[end], base) {
		end++
	}
	if end == start {
		return 0, 0, nil
	}

	v, err = strconv.ParseUint(s[start:end], base, 64)
	if err != nil {
		return 0, 0, err
	}
	return v, end, nil
}

func isDigit(c byte, base int) bool {
	switch base {
	case 8:
		return c >= '0' && c <= '7'
	case 10:
		return c >= '0' && c <= '9'
	default:
		return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
	}
}

// forEachOffset calls fn for every offset of list, left to right, and stops at
// the first malformed token or failing call. Tokens after the stopping point
// are not examined.
func forEachOffset(list string, fn func(offset int64) error) error {
	rest := list
	for rest != "" {
		v, n, err := scanOffset(rest)
		if n == 0 || err != nil || v > math.MaxInt64 {
			return fmt.Errorf("%w '%s'", types.ErrInvalidOffset, list)
		}
		rest = rest[n:]

		if rest != "" && !isSeparator(rest[0]) {
			return fmt.Errorf("%w '%c'", types.ErrInvalidSeparator, rest[0])
		}

		if err := fn(int64(v)); err != nil {
			return err
		}

		if rest == "" {
			break
		}
		rest = rest[1:]
	}
	return nil
}
