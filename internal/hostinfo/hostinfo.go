// Package hostinfo probes host capacity and storage state at session start.
// Results are never cached; callers snapshot once per planning call.
package hostinfo

import "os"

// Capacity is an immutable snapshot of host memory capacity.
type Capacity struct {
	// TotalMemoryBytes is the total physical memory of the host.
	TotalMemoryBytes uint64
}

// Detect queries the host for its memory capacity.
// Implemented per platform; see hostinfo_linux.go and hostinfo_darwin.go.

// StorageMounted reports whether external storage is available at path.
// The answer is valid only for the moment of the call; callers freeze it
// into the launch descriptor rather than re-evaluating later.
func StorageMounted(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
