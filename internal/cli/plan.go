package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/virtshell/vshell/internal/config"
	"github.com/virtshell/vshell/internal/hostinfo"
	"github.com/virtshell/vshell/internal/plan"
	"github.com/virtshell/vshell/internal/qemu"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the memory budget and launch arguments for this host",
	Long: `Compute the VM memory budget from the host's total RAM and print
the emulator command line a session would launch with, without starting
anything.`,
	RunE: runPlan,
}

func runPlan(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	cfg := config.Global
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	capacity, err := hostinfo.Detect()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: host memory query failed (%v); using fallback budget\n", err)
		capacity = nil
	}
	budget := plan.Plan(capacity, log)

	if capacity != nil {
		fmt.Printf("Host memory:  %d MB\n", capacity.TotalMemoryBytes/1048576)
	} else {
		fmt.Println("Host memory:  unknown")
	}
	fmt.Printf("VM memory:    %d MB\n", budget.VMMemoryMB)
	fmt.Printf("TCG buffer:   %d MB\n", budget.TCGBufferMB)

	storage := hostinfo.StorageMounted(cfg.StorageRoot)
	fmt.Printf("Host storage: %s (mounted: %v)\n", cfg.StorageRoot, storage)

	desc := qemu.BuildDescriptor(cfg.RuntimeDir, budget, storage, cfg.DNSUpstream)
	fmt.Printf("\n%s %s\n", cfg.QEMUBinary, desc)
	return nil
}
