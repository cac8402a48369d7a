// Package session owns the lifetime of one VM-backed interactive session:
// the background service holding it, the supervisor state machine binding
// it to a UI surface, and the dispatcher routing its events.
package session

import (
	"bytes"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/virtshell/vshell/internal/qemu"
)

// Callback receives session events. The service holds a single slot;
// the last registered callback wins. Callbacks may fire on VM worker
// goroutines — the dispatcher is responsible for UI-context hand-off.
type Callback interface {
	OnTextChanged(s *Session)
	OnSessionFinished(s *Session)
	OnClipboardText(s *Session, text string)
	OnBell(s *Session)
}

// Session records one VM process lifetime. It is owned exclusively by the
// Service; the UI only ever borrows a reference while attached.
type Session struct {
	id         uuid.UUID
	descriptor *qemu.Descriptor
	proc       *qemu.Process
	log        *zap.Logger

	mu            sync.Mutex
	sink          Callback
	transcript    []byte
	stopRequested bool
	finished      bool
}

// transcriptMax bounds the retained console output. Older output is
// discarded from the front; the tail is what surfaces re-render from.
const transcriptMax = 256 * 1024

// newSession wraps a started VM process. The caller installs the session
// as the process listener.
func newSession(desc *qemu.Descriptor, proc *qemu.Process, log *zap.Logger) *Session {
	return &Session{
		id:         uuid.New(),
		descriptor: desc,
		proc:       proc,
		log:        log,
	}
}

// ID returns the session identity.
func (s *Session) ID() uuid.UUID { return s.id }

// Descriptor returns the launch descriptor this session was started with.
func (s *Session) Descriptor() *qemu.Descriptor { return s.descriptor }

// Finished reports whether the VM process has terminated.
func (s *Session) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// RequestStop flags that a stop was explicitly asked for and terminates
// the VM process. The finished event still arrives through the listener.
func (s *Session) RequestStop() {
	s.mu.Lock()
	s.stopRequested = true
	proc := s.proc
	s.mu.Unlock()
	if proc != nil {
		proc.Terminate()
	}
}

// StopRequested reports whether a stop was explicitly requested.
func (s *Session) StopRequested() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopRequested
}

// WriteInput sends input bytes to the VM console.
func (s *Session) WriteInput(data []byte) error {
	s.mu.Lock()
	proc := s.proc
	s.mu.Unlock()
	if proc == nil {
		return qemu.ErrNotRunning
	}
	_, err := proc.Write(data)
	return err
}

// NotifyClipboard raises a clipboard-write event for this session. The
// terminal renderer calls this when the guest asks to set the clipboard;
// the core does not interpret escape sequences itself.
func (s *Session) NotifyClipboard(text string) {
	if cb := s.callback(); cb != nil {
		cb.OnClipboardText(s, text)
	}
}

func (s *Session) setSink(cb Callback) {
	s.mu.Lock()
	s.sink = cb
	s.mu.Unlock()
}

func (s *Session) callback() Callback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink
}

// Transcript returns the retained console output.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return string(s.transcript)
}

// OnOutput implements qemu.Listener. Fires on the process reader goroutine.
func (s *Session) OnOutput(data []byte) {
	s.mu.Lock()
	s.transcript = append(s.transcript, data...)
	if over := len(s.transcript) - transcriptMax; over > 0 {
		s.transcript = s.transcript[over:]
	}
	cb := s.sink
	s.mu.Unlock()
	if cb == nil {
		return
	}
	cb.OnTextChanged(s)
	// BEL is a single control byte, not an escape sequence, so detecting
	// it here does not cross into terminal emulation territory.
	if bytes.IndexByte(data, 0x07) >= 0 {
		cb.OnBell(s)
	}
}

// OnExit implements qemu.Listener. Fires exactly once.
func (s *Session) OnExit(err error) {
	s.mu.Lock()
	s.finished = true
	cb := s.sink
	s.mu.Unlock()

	if err != nil {
		s.log.Info("session finished", zap.String("id", s.id.String()), zap.Error(err))
	} else {
		s.log.Info("session finished", zap.String("id", s.id.String()))
	}

	if cb != nil {
		cb.OnSessionFinished(s)
	}
}
