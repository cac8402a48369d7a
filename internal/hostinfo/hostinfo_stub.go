//go:build !darwin && !linux

package hostinfo

import "errors"

// Detect reports no capacity information on unsupported platforms.
// Callers fall back to fixed safe budget values.
func Detect() (*Capacity, error) {
	return nil, errors.New("hostinfo: platform not supported")
}
