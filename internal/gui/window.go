// Package gui presents a session in a desktop terminal emulator window.
// The Window type is the fyne-backed ui.Surface; the session layer drives
// it exclusively through the Poster so every widget touch happens on the
// fyne event loop.
package gui

import (
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"
	fyneterm "github.com/fyne-io/terminal"
	"go.uber.org/zap"

	"github.com/virtshell/vshell/internal/ui"
	"github.com/virtshell/vshell/internal/urls"
)

// sessionInput forwards terminal keystrokes to whichever session is
// currently attached. Input typed while detached is dropped.
type sessionInput struct {
	w *Window
}

func (s sessionInput) Write(p []byte) (int, error) {
	s.w.mu.Lock()
	sess := s.w.sess
	s.w.mu.Unlock()
	if sess == nil {
		return len(p), nil
	}
	if err := sess.WriteInput(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (sessionInput) Close() error { return nil }

// Window is a fyne window wrapping a terminal emulator widget. It
// implements ui.Surface: the session layer pushes output, clipboard
// writes, bell and lifecycle events into it via the Poster.
type Window struct {
	app  fyne.App
	win  fyne.Window
	term *fyneterm.Terminal
	log  *zap.Logger

	mu       sync.Mutex
	alive    bool
	sess     ui.SessionRef
	rendered int
	outW     *io.PipeWriter

	onClose func()
}

// New builds the window and terminal widget but does not show them;
// call Run to enter the event loop.
//
// onVisible is invoked from the fyne lifecycle when the app moves
// between foreground and background. onClose is invoked once when the
// user closes the window or the process receives SIGINT/SIGTERM.
func New(title string, log *zap.Logger, onVisible func(bool), onClose func()) *Window {
	a := app.New()
	w := a.NewWindow(title)
	w.SetPadded(false)
	w.Resize(fyne.NewSize(800, 600))

	t := fyneterm.New()
	w.SetContent(t)

	gw := &Window{
		app:     a,
		win:     w,
		term:    t,
		log:     log,
		alive:   true,
		onClose: onClose,
	}

	if onVisible != nil {
		lc := a.Lifecycle()
		lc.SetOnEnteredForeground(func() { onVisible(true) })
		lc.SetOnExitedForeground(func() { onVisible(false) })
	}

	w.SetCloseIntercept(func() {
		gw.requestClose()
	})

	w.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu("Session",
			fyne.NewMenuItem("Copy URLs", gw.copyURLs),
		),
	))

	// First SIGINT/SIGTERM closes gracefully, second forces exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fyne.Do(gw.requestClose)
		<-sigCh
		os.Exit(1)
	}()

	return gw
}

// Poster returns the marshaller onto the fyne event loop.
func (w *Window) Poster() ui.Poster {
	return ui.PosterFunc(fyne.Do)
}

// Run shows the window and blocks until it is closed.
func (w *Window) Run() {
	w.win.Show()
	w.win.Canvas().Focus(w.term)
	w.app.Run()
}

func (w *Window) requestClose() {
	w.mu.Lock()
	onClose := w.onClose
	w.onClose = nil
	w.mu.Unlock()
	if onClose != nil {
		onClose()
	}
}

// Alive reports whether the window can still receive callbacks.
func (w *Window) Alive() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.alive
}

// AttachSession connects the terminal widget to a session's console.
// Output already retained in the session transcript is replayed by the
// full refresh that follows, so a re-attached window shows the whole
// scrollback.
func (w *Window) AttachSession(sess ui.SessionRef) {
	w.mu.Lock()
	if w.outW != nil {
		w.outW.Close()
	}
	outR, outW := io.Pipe()
	w.sess = sess
	w.rendered = 0
	w.outW = outW
	w.mu.Unlock()

	go func() {
		_ = w.term.RunWithConnection(sessionInput{w}, outR)
	}()
}

// DetachSession revokes the borrowed session reference and stops the
// terminal's read loop.
func (w *Window) DetachSession() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sess = nil
	w.rendered = 0
	if w.outW != nil {
		w.outW.Close()
		w.outW = nil
	}
}

// RefreshText feeds the portion of the transcript not yet rendered into
// the terminal widget. After a re-attach the rendered offset is zero, so
// the whole transcript is replayed.
func (w *Window) RefreshText() {
	w.mu.Lock()
	sess := w.sess
	outW := w.outW
	rendered := w.rendered
	w.mu.Unlock()
	if sess == nil || outW == nil {
		return
	}

	text := sess.Transcript()
	if rendered > len(text) {
		// Transcript was trimmed to its tail; replay from the start.
		rendered = 0
	}
	delta := text[rendered:]
	if delta == "" {
		return
	}

	// The pipe write may block on the widget's reader; keep it off the
	// event loop.
	go func() {
		if _, err := outW.Write([]byte(delta)); err != nil {
			return
		}
		w.mu.Lock()
		if w.outW == outW && rendered+len(delta) > w.rendered {
			w.rendered = rendered + len(delta)
		}
		w.mu.Unlock()
	}()
}

// SessionFinished notes the VM exit in the terminal so the user sees why
// input stopped working.
func (w *Window) SessionFinished() {
	w.mu.Lock()
	outW := w.outW
	w.mu.Unlock()
	if outW == nil {
		return
	}
	go func() {
		_, _ = outW.Write([]byte("\r\n[session finished]\r\n"))
	}()
}

// copyURLs extracts the URLs from the session scrollback and puts them
// on the clipboard, one per line.
func (w *Window) copyURLs() {
	w.mu.Lock()
	sess := w.sess
	w.mu.Unlock()
	if sess == nil {
		return
	}
	found := urls.Extract(sess.Transcript())
	if len(found) == 0 {
		return
	}
	w.SetClipboard(strings.Join(found, "\n"))
}

// SetClipboard replaces the system clipboard content.
func (w *Window) SetClipboard(text string) {
	w.app.Clipboard().SetContent(text)
}

// Bell plays the terminal bell.
func (w *Window) Bell() {
	// fyne has no beep API; the controlling terminal's bell is the
	// closest match.
	_, _ = os.Stdout.Write([]byte{0x07})
}

// ResetScale clears transient display state before a new session.
func (w *Window) ResetScale() {
	w.mu.Lock()
	w.rendered = 0
	w.mu.Unlock()
}

// ShowError surfaces a failure in a dialog over the terminal.
func (w *Window) ShowError(err error) {
	if err == nil {
		return
	}
	w.log.Warn("surface error", zap.Error(err))
	dialog.ShowError(err, w.win)
}

// Finish closes the window for good. Further callbacks are dropped by
// the Alive guard.
func (w *Window) Finish() {
	w.mu.Lock()
	if !w.alive {
		w.mu.Unlock()
		return
	}
	w.alive = false
	if w.outW != nil {
		w.outW.Close()
		w.outW = nil
	}
	w.sess = nil
	w.mu.Unlock()
	w.app.Quit()
}
