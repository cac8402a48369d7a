//go:build linux

package hostinfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Detect returns the host memory capacity via sysinfo(2).
func Detect() (*Capacity, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return nil, fmt.Errorf("sysinfo: %w", err)
	}
	// Totalram is in units of Unit bytes.
	return &Capacity{
		TotalMemoryBytes: uint64(info.Totalram) * uint64(info.Unit),
	}, nil
}
