package plan

import (
	"testing"

	"go.uber.org/zap"

	"github.com/virtshell/vshell/internal/hostinfo"
)

func TestPlanFormula(t *testing.T) {
	tests := []struct {
		name       string
		totalBytes uint64
		wantRAM    int
		wantTCG    int
	}{
		{"zero", 0, 0, 0},
		{"one MiB", 1048576, 0, 0},
		{"1 GiB", 1 << 30, 327, 81},
		{"4 GiB", 4294967296, 1310, 327},
		{"8 GiB", 8589934592, 2621, 655},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Plan(&hostinfo.Capacity{TotalMemoryBytes: tt.totalBytes}, zap.NewNop())
			if b.VMMemoryMB != tt.wantRAM {
				t.Errorf("VMMemoryMB = %d, want %d", b.VMMemoryMB, tt.wantRAM)
			}
			if b.TCGBufferMB != tt.wantTCG {
				t.Errorf("TCGBufferMB = %d, want %d", b.TCGBufferMB, tt.wantTCG)
			}
		})
	}
}

func TestPlanFallback(t *testing.T) {
	b := Plan(nil, zap.NewNop())
	if b.VMMemoryMB != FallbackRAMMB {
		t.Errorf("fallback VMMemoryMB = %d, want %d", b.VMMemoryMB, FallbackRAMMB)
	}
	if b.TCGBufferMB != FallbackTCGMB {
		t.Errorf("fallback TCGBufferMB = %d, want %d", b.TCGBufferMB, FallbackTCGMB)
	}
}

func TestPlanNilLogger(t *testing.T) {
	// Fallback path must not panic without a logger.
	b := Plan(nil, nil)
	if b.VMMemoryMB != FallbackRAMMB || b.TCGBufferMB != FallbackTCGMB {
		t.Errorf("Plan(nil, nil) = %+v, want fallback", b)
	}
}

func TestPlanDeterministic(t *testing.T) {
	cap := &hostinfo.Capacity{TotalMemoryBytes: 4294967296}
	first := Plan(cap, zap.NewNop())
	for i := 0; i < 10; i++ {
		if got := Plan(cap, zap.NewNop()); got != first {
			t.Fatalf("Plan not deterministic: %+v != %+v", got, first)
		}
	}
}
