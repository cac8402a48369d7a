package qemu

import "errors"

var (
	// ErrNotRunning is returned for I/O against a terminated process.
	ErrNotRunning = errors.New("qemu: process is not running")

	// ErrMissingBinary is returned when the emulator binary cannot be found.
	ErrMissingBinary = errors.New("qemu: emulator binary not found")
)
