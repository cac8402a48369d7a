// Package cli provides the command-line interface for vshell.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/virtshell/vshell/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "vshell",
	Short: "vshell - Linux VM console",
	Long: `vshell boots a Linux VM under QEMU and presents its serial console
in a terminal window.

Memory for the guest is sized from the host automatically, the disk and
installer images are staged on first run, and closing the window shuts
the VM down.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch cmd.Name() {
		case "version", "completion":
			return nil
		}
		return config.Load()
	},
}

var debugMode bool

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("command failed: %w", err)
	}
	return nil
}

// newLogger builds the process logger. Debug mode switches to the
// development encoder with per-call stack context.
func newLogger() (*zap.Logger, error) {
	if debugMode {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "verbose logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(configCmd)
}
