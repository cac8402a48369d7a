package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/virtshell/vshell/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Global
		if cfg == nil {
			cfg = config.DefaultConfig()
		}

		if file := config.ConfigFileUsed(); file != "" {
			fmt.Printf("Config file:  %s\n", file)
		} else {
			fmt.Println("Config file:  (defaults, none found)")
		}
		fmt.Printf("Runtime dir:  %s\n", cfg.RuntimeDir)
		fmt.Printf("Tmp dir:      %s\n", cfg.TmpDir)
		fmt.Printf("QEMU binary:  %s\n", cfg.QEMUBinary)
		fmt.Printf("DNS upstream: %s\n", cfg.DNSUpstream)
		fmt.Printf("Storage root: %s\n", cfg.StorageRoot)
		fmt.Printf("Seed ISO:     %s\n", cfg.SeedISO)
		fmt.Printf("HDD size:     %d MB\n", cfg.HDDSizeMB)
		fmt.Printf("Ignore bell:  %v\n", cfg.IgnoreBell)
		return nil
	},
}

var configBellCmd = &cobra.Command{
	Use:   "bell [on|off]",
	Short: "Enable or disable the terminal bell",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "on":
			return config.SetIgnoreBell(false)
		case "off":
			return config.SetIgnoreBell(true)
		default:
			return fmt.Errorf("unknown bell mode %q (want on or off)", args[0])
		}
	},
}

func init() {
	configCmd.AddCommand(configBellCmd)
}
