package scan

// State is the scan session's position in the orchestration machine.
// Transitions run strictly forward; Error is reachable from every
// non-terminal state.
type State int

const (
	StateIdle State = iota
	StateLaunching
	StateNavigating
	StateStabilizing
	StateScanning
	StateAttributing
	StateDone
	StateError
)

var stateNames = [...]string{
	"idle", "launching", "navigating", "stabilizing",
	"scanning", "attributing", "done", "error",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal reports whether the machine has finished, successfully or not.
func (s State) Terminal() bool {
	return s == StateDone || s == StateError
}
