//go:build !windows
// +build !windows

package utils

import (
	"bytes"
	"os"
	"strconv"
	"syscall"
	"time"
)

// Usage is the resource consumption of the current process.
type Usage struct {
	User   time.Duration
	System time.Duration
	// RSS is the resident set in bytes, or the peak resident set when /proc
	// is unavailable.
	RSS uint64
}

func timeval(tv syscall.Timeval) time.Duration {
	return time.Duration(tv.Sec)*time.Second + time.Duration(tv.Usec)*time.Microsecond
}

// SelfUsage samples CPU times and memory of the current process.
func SelfUsage() Usage {
	var ru syscall.Rusage
	_ = syscall.Getrusage(syscall.RUSAGE_SELF, &ru)

	u := Usage{
		User:   timeval(ru.Utime),
		System: timeval(ru.Stime),
		RSS:    uint64(ru.Maxrss) * 1024,
	}
	if rss, ok := residentSet(); ok {
		u.RSS = rss
	}
	return u
}

// residentSet reads field 24 of /proc/self/stat, in pages.
func residentSet() (uint64, bool) {
	stat, err := os.ReadFile("/proc/self/stat")
	if err != nil {
		return 0, false
	}
	// the command name may contain spaces
	if i := bytes.LastIndexByte(stat, ')'); i >= 0 {
		stat = stat[i+1:]
	}
	fields := bytes.Fields(stat)
	if len(fields) < 22 {
		return 0, false
	}
	pages, err := strconv.ParseUint(string(fields[21]), 10, 64)
	if err != nil {
		return 0, false
	}
	return pages * uint64(os.Getpagesize()), true
}

// Since returns the CPU time spent after prev. RSS is kept from u.
func (u Usage) Since(prev Usage) Usage {
	return Usage{
		User:   u.User - prev.User,
		System: u.System - prev.System,
		RSS:    u.RSS,
	}
}
