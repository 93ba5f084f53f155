package eir

import "fmt"

var transitions = map[Status][]Status{
	StatusPending:   {StatusComputing},
	StatusComputing: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether a calculation may move from one status to
// another. COMPLETED and FAILED are terminal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// lifecycle tracks one calculation's status. It lives only for the duration
// of a Calculate call.
type lifecycle struct {
	status Status
}

func newLifecycle() *lifecycle {
	return &lifecycle{status: StatusPending}
}

func (l *lifecycle) transition(to Status) error {
	if !CanTransition(l.status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, l.status, to)
	}
	l.status = to
	return nil
}
