package common

import (
	"fmt"
	"regexp"
	"strconv"
)

var sizeReg = regexp.MustCompile(`^(0[xX][0-9a-fA-F]+|0[0-7]*|[1-9][0-9]*)([kKmMgG]|[KMG]iB)?$`)

// ParseStringToSize parses a size literal: a decimal, 0x hex or 0 octal
// number with an optional K/M/G (or KiB/MiB/GiB) binary suffix.
func ParseStringToSize(str string) (uint64, error) {
	ret := sizeReg.FindStringSubmatch(str)
	if ret == nil {
		return 0, fmt.Errorf("invalid size specified '%s'", str)
	}

	size, err := strconv.ParseUint(ret[1], 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size specified '%s': %w", str, err)
	}

	var shift uint
	switch ret[2] {
	case "":
	case "k", "K", "KiB":
		shift = 10
	case "m", "M", "MiB":
		shift = 20
	case "g", "G", "GiB":
		shift = 30
	}
	if size > (^uint64(0))>>shift {
		return 0, fmt.Errorf("size '%s' overflows", str)
	}
	return size << shift, nil
}
