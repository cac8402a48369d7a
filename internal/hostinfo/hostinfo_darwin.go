//go:build darwin

package hostinfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Detect returns the host memory capacity via the hw.memsize sysctl.
func Detect() (*Capacity, error) {
	mem, err := unix.SysctlUint64("hw.memsize")
	if err != nil {
		return nil, fmt.Errorf("sysctl hw.memsize: %w", err)
	}
	return &Capacity{TotalMemoryBytes: mem}, nil
}
