package ui

import "sync/atomic"

// Visibility is the process-wide flag recording whether the UI surface is
// on-screen. It is written only by UI lifecycle transitions and read from
// VM callback goroutines, hence the atomic.
type Visibility struct {
	visible atomic.Bool
}

// Set records a visibility transition.
func (v *Visibility) Set(visible bool) {
	v.visible.Store(visible)
}

// Visible reports the current visibility.
func (v *Visibility) Visible() bool {
	return v.visible.Load()
}
