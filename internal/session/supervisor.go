package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/virtshell/vshell/internal/hostinfo"
	"github.com/virtshell/vshell/internal/plan"
	"github.com/virtshell/vshell/internal/qemu"
	"github.com/virtshell/vshell/internal/ui"
)

// Installer gates session start behind first-run setup. The completion
// callback fires exactly once on the UI context: immediately when setup
// has already run, otherwise after asynchronous completion.
type Installer interface {
	SetupNeeded() bool
	SetupIfNeeded(post ui.Poster, onComplete func(error))
}

// Starter launches a VM process from a descriptor and environment.
// Injectable so tests can run the state machine without an emulator.
type Starter func(desc *qemu.Descriptor, env []string) (*qemu.Process, error)

// SupervisorConfig carries the inputs for building launch descriptors and
// the probe/start hooks. Zero-value hooks get real implementations.
type SupervisorConfig struct {
	// RuntimeDir holds firmware, keymaps and disk images.
	RuntimeDir string

	// TmpDir is handed to the VM process as TMPDIR.
	TmpDir string

	// Binary is the emulator binary name or path.
	Binary string

	// DNSUpstream is consumed by the VM's internal resolver.
	DNSUpstream string

	// StorageRoot is probed for external storage at session start.
	StorageRoot string

	// DetectCapacity queries host memory. Defaults to hostinfo.Detect.
	DetectCapacity func() (*hostinfo.Capacity, error)

	// StorageMounted probes the storage root. Defaults to
	// hostinfo.StorageMounted.
	StorageMounted func(path string) bool

	// Start launches the VM process. Defaults to qemu.StartProcess.
	Start Starter
}

// Supervisor owns at most one session at a time and runs the state
// machine binding UI visibility, service lifetime and VM process
// lifetime. All UI-directed side effects go through the Poster and are
// guarded by a surface liveness check.
type Supervisor struct {
	cfg        SupervisorConfig
	log        *zap.Logger
	svc        *Service
	installer  Installer
	dispatcher *Dispatcher
	vis        *ui.Visibility
	post       ui.Poster

	mu            sync.Mutex
	state         State
	surface       ui.Surface
	startInFlight bool
}

// NewSupervisor wires a supervisor to its collaborators.
func NewSupervisor(cfg SupervisorConfig, svc *Service, installer Installer, dispatcher *Dispatcher, vis *ui.Visibility, post ui.Poster, log *zap.Logger) *Supervisor {
	if cfg.DetectCapacity == nil {
		cfg.DetectCapacity = hostinfo.Detect
	}
	if cfg.StorageMounted == nil {
		cfg.StorageMounted = hostinfo.StorageMounted
	}
	if cfg.Start == nil {
		binary := cfg.Binary
		cfg.Start = func(desc *qemu.Descriptor, env []string) (*qemu.Process, error) {
			return qemu.StartProcess(context.Background(), binary, desc, env, log)
		}
	}
	s := &Supervisor{
		cfg:        cfg,
		log:        log,
		svc:        svc,
		installer:  installer,
		dispatcher: dispatcher,
		vis:        vis,
		post:       post,
		state:      StateIdle,
	}
	dispatcher.SetFinishedHook(s.handleFinished)
	return s
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// RequestSession starts (or re-attaches) a session for surface. A request
// while one is already in progress or attached is a no-op. A binding
// failure is fatal to the request: the service is local, so it signals a
// programming or environment error, and there is no retry.
func (s *Supervisor) RequestSession(surface ui.Surface) error {
	s.mu.Lock()
	if s.state != StateIdle && s.state != StateStopped {
		s.mu.Unlock()
		return nil
	}
	s.state = StateBinding
	s.surface = surface
	s.mu.Unlock()

	if err := s.svc.Bind(s.onServiceDisconnected); err != nil {
		s.mu.Lock()
		s.state = StateIdle
		s.surface = nil
		s.mu.Unlock()
		return fmt.Errorf("bind service: %w", err)
	}
	s.svc.SetCallback(s.dispatcher)
	s.onServiceConnected()
	return nil
}

// onServiceConnected continues once the service connection is up.
func (s *Supervisor) onServiceConnected() {
	if existing := s.svc.Session(); existing != nil {
		// The owner already holds a live session: re-attach it to the
		// newly bound surface and force a full refresh, since events may
		// have been missed while unbound.
		s.attach(existing, true)
		return
	}

	if !s.vis.Visible() {
		// Connected while not in foreground - just bail out.
		s.log.Info("service connected while UI not visible, finishing")
		s.finishSurface()
		s.cleanup()
		return
	}

	s.mu.Lock()
	if s.startInFlight {
		// At most one installer run or VM start at a time.
		s.mu.Unlock()
		return
	}
	s.startInFlight = true
	if s.installer.SetupNeeded() {
		s.state = StateInstalling
	} else {
		s.state = StateBoundNoSession
	}
	s.mu.Unlock()

	s.installer.SetupIfNeeded(s.post, func(err error) {
		if err != nil {
			s.log.Error("first-run setup failed", zap.Error(err))
			s.mu.Lock()
			s.startInFlight = false
			surface := s.surface
			s.mu.Unlock()
			if surface != nil && surface.Alive() {
				surface.ShowError(err)
			}
			return
		}
		s.startVM()
	})
}

// startVM plans resources, builds the descriptor and launches the VM
// process. It runs as a continuation on the UI context; the surface may
// have been torn down while the installer was busy, in which case the
// start is abandoned without launching anything.
func (s *Supervisor) startVM() {
	s.mu.Lock()
	s.state = StateStarting
	surface := s.surface
	s.mu.Unlock()

	if surface == nil || !surface.Alive() {
		// Nothing to attach to; do not start a second VM later either.
		s.log.Info("surface gone before VM start, abandoning")
		s.mu.Lock()
		s.startInFlight = false
		s.mu.Unlock()
		return
	}

	capacity, err := s.cfg.DetectCapacity()
	if err != nil {
		// Planner substitutes the fixed fallback.
		capacity = nil
	}
	budget := plan.Plan(capacity, s.log)
	mounted := s.cfg.StorageMounted(s.cfg.StorageRoot)
	desc := qemu.BuildDescriptor(s.cfg.RuntimeDir, budget, mounted, s.cfg.DNSUpstream)
	env := qemu.BuildEnv(desc, s.cfg.RuntimeDir, s.cfg.TmpDir)

	proc, err := s.cfg.Start(desc, env)
	if err != nil {
		s.mu.Lock()
		s.startInFlight = false
		s.state = StateBoundNoSession
		surface = s.surface
		s.mu.Unlock()
		// Starting a VM is expensive; no automatic retry. If the surface
		// is gone there is nothing to report to.
		if surface != nil && surface.Alive() {
			surface.ShowError(fmt.Errorf("start VM: %w", err))
		} else {
			s.log.Warn("VM start failed with no surface to report to", zap.Error(err))
		}
		return
	}

	sess := newSession(desc, proc, s.log)
	if proc != nil {
		proc.SetListener(sess)
	}
	if err := s.svc.SetSession(sess); err != nil {
		// The owner refuses a second live session.
		s.log.Error("service refused session", zap.Error(err))
		sess.RequestStop()
		s.mu.Lock()
		s.startInFlight = false
		s.mu.Unlock()
		return
	}
	s.log.Info("session started", zap.String("id", sess.ID().String()))

	s.mu.Lock()
	s.startInFlight = false
	s.mu.Unlock()
	s.attach(sess, false)
}

// attach binds sess to the current surface if it is still alive. With
// refresh set, a full output refresh is forced after attaching.
func (s *Supervisor) attach(sess *Session, refresh bool) {
	s.mu.Lock()
	surface := s.surface
	if surface == nil || !surface.Alive() {
		// Torn down mid-setup: silently abandon the attach. The VM keeps
		// running under the service.
		s.state = StateDetached
		s.surface = nil
		s.mu.Unlock()
		return
	}
	if s.vis.Visible() {
		s.state = StateAttached
	} else {
		s.state = StateDetached
	}
	s.mu.Unlock()

	s.dispatcher.Attach(sess, surface)
	s.post.Post(func() {
		if !surface.Alive() {
			return
		}
		surface.AttachSession(sess)
		if refresh {
			surface.RefreshText()
		}
	})
}

// SetVisible records a UI visibility transition. Foregrounding while a
// session is live re-attaches it and forces a full refresh, since events
// were dropped while detached.
func (s *Supervisor) SetVisible(visible bool) {
	s.vis.Set(visible)

	s.mu.Lock()
	switch {
	case visible && s.state == StateDetached:
		sess := s.svc.Session()
		surface := s.surface
		if sess == nil || sess.Finished() || surface == nil {
			s.mu.Unlock()
			return
		}
		s.state = StateAttached
		s.mu.Unlock()
		s.post.Post(func() {
			if surface.Alive() {
				surface.RefreshText()
			}
		})
	case !visible && s.state == StateAttached:
		s.state = StateDetached
		s.mu.Unlock()
	default:
		s.mu.Unlock()
	}
}

// Shutdown is the explicit stop request: the service terminates, taking
// the VM process with it, and the surface is finished via the disconnect
// path.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	if s.state == StateStopped || s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	s.mu.Unlock()

	if sess := s.svc.Session(); sess != nil {
		sess.RequestStop()
	}
	s.svc.Terminate()
}

// handleFinished runs on the UI context when the live session's VM
// process reported termination. It fires whether or not a surface is
// attached: a session that outlived its surface still has to take the
// service down with it when the VM exits.
func (s *Supervisor) handleFinished(sess *Session) {
	s.mu.Lock()
	if s.state == StateStopped || s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	s.mu.Unlock()

	if s.svc.WantsToStop() {
		// The service wants to stop as soon as possible: finish the UI
		// immediately, no further teardown.
		s.finishSurface()
		s.cleanup()
		return
	}
	s.svc.Terminate()
}

// onServiceDisconnected fires when the service goes away while bound.
// The owner stopped intentionally; the UI finishes, no reconnection.
func (s *Supervisor) onServiceDisconnected() {
	s.mu.Lock()
	if s.state == StateStopped || s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateStopping
	s.mu.Unlock()

	s.finishSurface()
	s.cleanup()
}

// finishSurface closes the surface, if it is still there to close.
func (s *Supervisor) finishSurface() {
	s.mu.Lock()
	surface := s.surface
	s.mu.Unlock()
	if surface == nil {
		return
	}
	s.post.Post(func() {
		if surface.Alive() {
			surface.DetachSession()
			surface.Finish()
		}
	})
}

// cleanup releases every reference so neither the session nor the UI
// outlives the other.
func (s *Supervisor) cleanup() {
	s.dispatcher.Detach()
	s.svc.Unbind()

	s.mu.Lock()
	s.surface = nil
	s.startInFlight = false
	s.state = StateStopped
	s.mu.Unlock()
}
