package session

import (
	"sync"

	"go.uber.org/zap"
)

// Service is the background owner of the single live session. It outlives
// any particular UI surface: the surface binds to it, borrows the session,
// and unbinds, while the VM process keeps running underneath.
//
// Service implements Callback by forwarding every event to the currently
// registered slot, so a session keeps emitting into whichever listener is
// bound right now.
type Service struct {
	log *zap.Logger

	mu           sync.Mutex
	session      *Session
	callback     Callback
	onDisconnect func()
	wantsToStop  bool
	stopped      bool
}

// NewService creates a background owner with no session.
func NewService(log *zap.Logger) *Service {
	return &Service{log: log}
}

// Bind establishes the supervisor's connection. onDisconnect fires when
// the service terminates while still bound. Binding a stopped service
// fails; the caller treats that as fatal to the session request.
func (s *Service) Bind(onDisconnect func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrServiceStopped
	}
	s.onDisconnect = onDisconnect
	return nil
}

// Unbind releases the supervisor's connection and its callback slot.
func (s *Service) Unbind() {
	s.mu.Lock()
	s.onDisconnect = nil
	s.callback = nil
	s.mu.Unlock()
}

// Session returns the live session, or nil.
func (s *Service) Session() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// SetSession hands a started session to the service. The service refuses
// a second session while one is live.
func (s *Service) SetSession(sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil && !s.session.Finished() {
		return ErrSessionLive
	}
	s.session = sess
	sess.setSink(s)
	return nil
}

// SetCallback installs the event listener slot. Last writer wins; only
// one UI may be registered at a time. Passing nil clears the slot.
func (s *Service) SetCallback(cb Callback) {
	s.mu.Lock()
	s.callback = cb
	s.mu.Unlock()
}

// RequestStop flags that the service wants to stop as soon as possible.
func (s *Service) RequestStop() {
	s.mu.Lock()
	s.wantsToStop = true
	s.mu.Unlock()
}

// WantsToStop reports whether a stop has been requested.
func (s *Service) WantsToStop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wantsToStop
}

// Stopped reports whether the service has terminated.
func (s *Service) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Terminate shuts the service down: the session's VM process is killed,
// held references are dropped, and the bound supervisor is notified of
// the disconnect. Terminating twice is a no-op.
func (s *Service) Terminate() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	sess := s.session
	s.session = nil
	disconnect := s.onDisconnect
	s.onDisconnect = nil
	s.mu.Unlock()

	s.log.Info("service terminating")
	if sess != nil {
		sess.RequestStop()
	}
	if disconnect != nil {
		disconnect()
	}
}

// OnTextChanged implements Callback by forwarding to the current slot.
func (s *Service) OnTextChanged(sess *Session) {
	if cb := s.slot(); cb != nil {
		cb.OnTextChanged(sess)
	}
}

// OnSessionFinished implements Callback by forwarding to the current slot.
func (s *Service) OnSessionFinished(sess *Session) {
	if cb := s.slot(); cb != nil {
		cb.OnSessionFinished(sess)
	}
}

// OnClipboardText implements Callback by forwarding to the current slot.
func (s *Service) OnClipboardText(sess *Session, text string) {
	if cb := s.slot(); cb != nil {
		cb.OnClipboardText(sess, text)
	}
}

// OnBell implements Callback by forwarding to the current slot.
func (s *Service) OnBell(sess *Session) {
	if cb := s.slot(); cb != nil {
		cb.OnBell(sess)
	}
}

func (s *Service) slot() Callback {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callback
}
