package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/virtshell/vshell/internal/ui"
)

// Dispatcher routes session events to the attached surface. Delivery is
// at-most-once and best-effort: gated events are dropped, never queued,
// because the surface does a full refresh on the next attach or
// visibility change anyway.
//
// Events arrive on VM worker goroutines; every surface call is marshaled
// onto the UI context through the Poster and guarded by a liveness check.
type Dispatcher struct {
	log  *zap.Logger
	vis  *ui.Visibility
	post ui.Poster

	// bellDisabled reports the user preference for ignoring the bell.
	bellDisabled func() bool

	mu      sync.Mutex
	surface ui.Surface
	session *Session

	// onFinished is the supervisor's lifecycle hook, invoked on the UI
	// context after the surface has been notified.
	onFinished func(*Session)
}

// NewDispatcher creates a dispatcher with nothing attached.
func NewDispatcher(vis *ui.Visibility, post ui.Poster, bellDisabled func() bool, log *zap.Logger) *Dispatcher {
	if bellDisabled == nil {
		bellDisabled = func() bool { return false }
	}
	return &Dispatcher{
		log:          log,
		vis:          vis,
		post:         post,
		bellDisabled: bellDisabled,
	}
}

// Attach makes sess the session whose events reach surface. Events tagged
// with any other session are dropped from now on.
func (d *Dispatcher) Attach(sess *Session, surface ui.Surface) {
	d.mu.Lock()
	d.session = sess
	d.surface = surface
	d.mu.Unlock()
}

// Detach revokes the surface reference. Session events are dropped until
// the next Attach.
func (d *Dispatcher) Detach() {
	d.mu.Lock()
	d.session = nil
	d.surface = nil
	d.mu.Unlock()
}

// SetFinishedHook installs the supervisor's session-finished handler.
func (d *Dispatcher) SetFinishedHook(fn func(*Session)) {
	d.mu.Lock()
	d.onFinished = fn
	d.mu.Unlock()
}

// attached returns the current surface if sess is the attached session.
func (d *Dispatcher) attached(sess *Session) ui.Surface {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session != sess || d.session == nil {
		return nil
	}
	return d.surface
}

// OnTextChanged delivers a text update iff the UI is visible and sess is
// the attached session.
func (d *Dispatcher) OnTextChanged(sess *Session) {
	if !d.vis.Visible() {
		return
	}
	surface := d.attached(sess)
	if surface == nil {
		return
	}
	d.post.Post(func() {
		if surface.Alive() {
			surface.RefreshText()
		}
	})
}

// OnSessionFinished always delivers, regardless of visibility: it drives
// lifecycle, not just rendering. The surface is told its session ended and
// transient display state is reset so the next session starts fresh.
//
// The lifecycle hook fires even with nothing attached: an exit with no
// surface watching still has to stop the service. Only a stale session,
// one displaced by a later Attach, drives nothing.
func (d *Dispatcher) OnSessionFinished(sess *Session) {
	d.mu.Lock()
	if d.session != nil && d.session != sess {
		d.mu.Unlock()
		return
	}
	surface := d.surface
	if d.session != sess {
		surface = nil
	}
	hook := d.onFinished
	d.mu.Unlock()

	d.post.Post(func() {
		if surface != nil && surface.Alive() {
			surface.SessionFinished()
			surface.ResetScale()
		}
		if hook != nil {
			hook(sess)
		}
	})
}

// OnClipboardText replaces the system clipboard iff the UI is visible and
// sess is the attached session. Clipboard failures are swallowed by the
// surface; there is nothing useful to report.
func (d *Dispatcher) OnClipboardText(sess *Session, text string) {
	if !d.vis.Visible() {
		return
	}
	surface := d.attached(sess)
	if surface == nil {
		return
	}
	d.post.Post(func() {
		if surface.Alive() {
			surface.SetClipboard(text)
		}
	})
}

// OnBell rings the bell iff the UI is visible, the user has not disabled
// the bell, and sess is the attached session.
func (d *Dispatcher) OnBell(sess *Session) {
	if !d.vis.Visible() || d.bellDisabled() {
		return
	}
	surface := d.attached(sess)
	if surface == nil {
		return
	}
	d.post.Post(func() {
		if surface.Alive() {
			surface.Bell()
		}
	})
}
