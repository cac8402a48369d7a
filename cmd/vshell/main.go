// Package main is the entry point for vshell.
package main

import (
	"fmt"
	"os"

	"github.com/virtshell/vshell/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
