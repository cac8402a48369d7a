package session

import (
	"sync"

	"go.uber.org/zap"

	"github.com/virtshell/vshell/internal/hostinfo"
	"github.com/virtshell/vshell/internal/qemu"
	"github.com/virtshell/vshell/internal/ui"
)

// syncPoster runs posted functions inline, standing in for the
// single-threaded UI context.
var syncPoster = ui.PosterFunc(func(fn func()) { fn() })

func zapNop() *zap.Logger { return zap.NewNop() }

// fakeSurface records every callback it receives.
type fakeSurface struct {
	mu        sync.Mutex
	alive     bool
	attached  ui.SessionRef
	refreshes int
	bells     int
	resets    int
	sessEnds  int
	finished  bool
	clipboard []string
	errs      []error
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{alive: true}
}

func (f *fakeSurface) kill() {
	f.mu.Lock()
	f.alive = false
	f.mu.Unlock()
}

func (f *fakeSurface) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive
}

func (f *fakeSurface) AttachSession(sess ui.SessionRef) {
	f.mu.Lock()
	f.attached = sess
	f.mu.Unlock()
}

func (f *fakeSurface) DetachSession() {
	f.mu.Lock()
	f.attached = nil
	f.mu.Unlock()
}

func (f *fakeSurface) RefreshText() {
	f.mu.Lock()
	f.refreshes++
	f.mu.Unlock()
}

func (f *fakeSurface) SessionFinished() {
	f.mu.Lock()
	f.sessEnds++
	f.mu.Unlock()
}

func (f *fakeSurface) sessionEndCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessEnds
}

func (f *fakeSurface) SetClipboard(text string) {
	f.mu.Lock()
	f.clipboard = append(f.clipboard, text)
	f.mu.Unlock()
}

func (f *fakeSurface) Bell() {
	f.mu.Lock()
	f.bells++
	f.mu.Unlock()
}

func (f *fakeSurface) ResetScale() {
	f.mu.Lock()
	f.resets++
	f.mu.Unlock()
}

func (f *fakeSurface) ShowError(err error) {
	f.mu.Lock()
	f.errs = append(f.errs, err)
	f.mu.Unlock()
}

func (f *fakeSurface) Finish() {
	f.mu.Lock()
	f.finished = true
	f.alive = false
	f.mu.Unlock()
}

func (f *fakeSurface) refreshCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshes
}

func (f *fakeSurface) isFinished() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished
}

// fakeInstaller defers completion until release is called when pending.
type fakeInstaller struct {
	needed  bool
	pending bool
	release func()
	runs    int
}

func (f *fakeInstaller) SetupNeeded() bool { return f.needed }

func (f *fakeInstaller) SetupIfNeeded(post ui.Poster, onComplete func(error)) {
	f.runs++
	if !f.pending {
		post.Post(func() { onComplete(nil) })
		return
	}
	f.release = func() {
		post.Post(func() { onComplete(nil) })
	}
}

// testEnv bundles a supervisor with observable fakes.
type testEnv struct {
	sup       *Supervisor
	svc       *Service
	disp      *Dispatcher
	vis       *ui.Visibility
	surface   *fakeSurface
	installer *fakeInstaller
	starts    *int
	startErr  error

	// onStart runs inside the start hook, before it returns. Lets a test
	// tear the surface down at the worst possible moment.
	onStart func()
}

func newTestEnv(installer *fakeInstaller) *testEnv {
	log := zap.NewNop()
	vis := &ui.Visibility{}
	vis.Set(true)

	svc := NewService(log)
	disp := NewDispatcher(vis, syncPoster, nil, log)

	starts := 0
	env := &testEnv{
		svc:       svc,
		disp:      disp,
		vis:       vis,
		surface:   newFakeSurface(),
		installer: installer,
		starts:    &starts,
	}

	cfg := SupervisorConfig{
		RuntimeDir:  "/run/vshell",
		TmpDir:      "/tmp/vshell",
		Binary:      "qemu-system-x86_64",
		DNSUpstream: qemu.DefaultDNSUpstream,
		StorageRoot: "/nonexistent",
		DetectCapacity: func() (*hostinfo.Capacity, error) {
			return &hostinfo.Capacity{TotalMemoryBytes: 4294967296}, nil
		},
		Start: func(desc *qemu.Descriptor, env2 []string) (*qemu.Process, error) {
			starts++
			if env.onStart != nil {
				env.onStart()
			}
			if env.startErr != nil {
				return nil, env.startErr
			}
			return nil, nil
		},
	}
	env.sup = NewSupervisor(cfg, svc, installer, disp, vis, syncPoster, log)
	return env
}
