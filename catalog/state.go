package catalog

// State is the phase of one aggregation.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateJoining
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateJoining:
		return "joining"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
