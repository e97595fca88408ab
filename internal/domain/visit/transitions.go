package visit

import "fmt"

// transitionMap lists the allowed next states for each state. The visit
// lifecycle is a straight chain with no skips and no way back.
var transitionMap = map[Status][]Status{
	StatusRegistered:    {StatusWaitingTriage},
	StatusWaitingTriage: {StatusTriaged},
	StatusTriaged:       {StatusWaitingDoctor},
	StatusWaitingDoctor: {StatusInExamination},
	StatusInExamination: {StatusDone},
	StatusDone:          {},
}

// ValidTransition reports whether a visit may move from one state to another.
func ValidTransition(from, to Status) bool {
	for _, next := range transitionMap[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError reports a rejected state change.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %q to %q", e.From, e.To)
}
