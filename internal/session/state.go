package session

// State is the supervisor's lifecycle state for the current session
// request. Idle is the rest state between sessions; Stopped is terminal
// for a given session instance.
type State int

const (
	StateIdle           State = iota
	StateBinding              // Connecting to the background service
	StateBoundNoSession       // Connected, no session exists yet
	StateInstalling           // Waiting for first-run setup to complete
	StateStarting             // VM process launch in flight
	StateAttached             // Session live and attached to a visible UI
	StateDetached             // Session live, UI backgrounded
	StateStopping             // Teardown in progress
	StateStopped              // Teardown complete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBinding:
		return "binding"
	case StateBoundNoSession:
		return "bound-no-session"
	case StateInstalling:
		return "installing"
	case StateStarting:
		return "starting"
	case StateAttached:
		return "attached"
	case StateDetached:
		return "detached"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
