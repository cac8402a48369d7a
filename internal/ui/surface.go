// Package ui defines the contract between the session layer and whatever
// surface is currently presenting it. The session layer holds a Surface
// only as a borrowed reference: it is valid while attached and revoked on
// detach or stop, and never extends the surface's lifetime.
package ui

// SessionRef is the borrowed view of a session a surface may hold while
// attached. It is revoked on detach or stop.
type SessionRef interface {
	// WriteInput sends input bytes to the VM console.
	WriteInput(data []byte) error

	// Transcript returns the retained console output for rendering.
	Transcript() string
}

// Surface is one presentation of a session, e.g. a terminal window.
// All methods are invoked on the UI execution context via a Poster.
type Surface interface {
	// Alive reports whether the surface can still receive callbacks.
	// Continuations completing after the surface was torn down must check
	// this before touching it.
	Alive() bool

	// AttachSession hands the surface a borrowed session reference.
	AttachSession(sess SessionRef)

	// DetachSession revokes the borrowed reference.
	DetachSession()

	// RefreshText asks the surface to re-render from the session's
	// current output. Used both for incremental updates and the full
	// refresh after a re-attach.
	RefreshText()

	// SessionFinished tells the surface its session terminated.
	SessionFinished()

	// SetClipboard replaces the system clipboard content.
	SetClipboard(text string)

	// Bell plays the terminal bell.
	Bell()

	// ResetScale clears UI-local transient display state so the next
	// session starts fresh.
	ResetScale()

	// ShowError surfaces a user-visible failure, e.g. a VM start error.
	ShowError(err error)

	// Finish closes the surface for good.
	Finish()
}

// Poster marshals a function onto the UI's single-threaded execution
// context. Events may originate on VM worker goroutines; every UI-directed
// side effect goes through Post.
type Poster interface {
	Post(fn func())
}

// PosterFunc adapts a function to the Poster interface.
type PosterFunc func(fn func())

func (p PosterFunc) Post(fn func()) { p(fn) }
