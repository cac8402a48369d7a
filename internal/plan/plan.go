// Package plan computes safe VM resource limits from host capacity.
package plan

import (
	"go.uber.org/zap"

	"github.com/virtshell/vshell/internal/hostinfo"
)

// Fractions of host memory handed to the VM. The rest stays with the host
// so the UI and the emulator's own allocations cannot push it into OOM.
const (
	ramFraction = 0.32
	tcgFraction = 0.08
)

// Fallback values used when host capacity cannot be determined.
const (
	FallbackRAMMB = 256
	FallbackTCGMB = 64
)

// Budget holds the memory limits used to launch a VM.
type Budget struct {
	// VMMemoryMB is the emulated RAM size in megabytes.
	VMMemoryMB int

	// TCGBufferMB is the translation-block cache size in megabytes.
	TCGBufferMB int
}

// Plan derives a Budget from the given host capacity snapshot.
// A nil capacity means the host query failed; the fixed fallback is
// returned and a warning logged. Plan never fails.
func Plan(capacity *hostinfo.Capacity, log *zap.Logger) Budget {
	if capacity == nil {
		if log != nil {
			log.Warn("failed to determine size of host memory, using fallback budget",
				zap.Int("vm_memory_mb", FallbackRAMMB),
				zap.Int("tcg_buffer_mb", FallbackTCGMB))
		}
		return Budget{VMMemoryMB: FallbackRAMMB, TCGBufferMB: FallbackTCGMB}
	}

	total := float64(capacity.TotalMemoryBytes)
	return Budget{
		VMMemoryMB:  int(total * ramFraction / 1048576),
		TCGBufferMB: int(total * tcgFraction / 1048576),
	}
}
