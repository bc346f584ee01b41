package pipeline

import "fmt"

// State is a Controller state. A request only ever moves forward.
type State string

const (
	StateStart           State = "START"
	StateTextAttempted   State = "TEXT_ATTEMPTED"
	StateVisionAttempted State = "VISION_ATTEMPTED"
	StateDone            State = "DONE"
)

func (s State) rank() int {
	switch s {
	case StateStart:
		return 0
	case StateTextAttempted:
		return 1
	case StateVisionAttempted:
		return 2
	case StateDone:
		return 3
	default:
		return -1
	}
}

// checkTransition rejects transitions that do not move forward.
func checkTransition(from, to State) error {
	if to.rank() <= from.rank() {
		return fmt.Errorf("invalid transition %s -> %s", from, to)
	}
	return nil
}

// Policy restricts which modes the Controller may use.
type Policy string

const (
	PolicyAuto       Policy = "auto"   // text first for PDFs, vision fallback
	PolicyTextOnly   Policy = "text"   // never render or normalize
	PolicyVisionOnly Policy = "vision" // skip the fast path
)

// ParsePolicy parses a --mode flag value. "" means PolicyAuto.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "", PolicyAuto:
		return PolicyAuto, nil
	case PolicyTextOnly, PolicyVisionOnly:
		return Policy(s), nil
	default:
		return "", fmt.Errorf("unknown mode %q (want auto, text or vision)", s)
	}
}
