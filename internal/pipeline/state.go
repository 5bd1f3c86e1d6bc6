package pipeline

// State is a submission state.
type State int

const (
	StateIdle State = iota
	StateAwaitingAuth
	StateExporting
	StateSuccess
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingAuth:
		return "awaiting_auth"
	case StateExporting:
		return "exporting"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends the machine.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed
}
