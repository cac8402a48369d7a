package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a configuration issue.
type ValidationError struct {
	Field   string
	Message string
	Fatal   bool // true = can't proceed, false = will be ignored
}

// Validate checks a loaded configuration for problems a session start
// would trip over.
func Validate(cfg *Config) []ValidationError {
	var errors []ValidationError

	if cfg.RuntimeDir == "" {
		errors = append(errors, ValidationError{
			Field:   "RuntimeDir",
			Message: "runtime directory must be set",
			Fatal:   true,
		})
	}
	if cfg.QEMUBinary == "" {
		errors = append(errors, ValidationError{
			Field:   "QEMUBinary",
			Message: "emulator binary must be set",
			Fatal:   true,
		})
	}
	if cfg.HDDSizeMB <= 0 {
		errors = append(errors, ValidationError{
			Field:   "HDDSizeMB",
			Message: "hard disk size must be positive; default will be used",
			Fatal:   false,
		})
	}
	if cfg.DNSUpstream == "" {
		errors = append(errors, ValidationError{
			Field:   "DNSUpstream",
			Message: "DNS upstream not set; guest name resolution will fail",
			Fatal:   false,
		})
	}

	return errors
}

// FormatValidationErrors returns human-readable error summary.
func FormatValidationErrors(errors []ValidationError) string {
	if len(errors) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Configuration warnings:\n")
	for _, e := range errors {
		prefix := "Warning"
		if e.Fatal {
			prefix = "Error"
		}
		fmt.Fprintf(&b, "  %s [%s]: %s\n", prefix, e.Field, e.Message)
	}
	return b.String()
}
