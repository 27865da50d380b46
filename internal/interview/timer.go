// Package interview runs the time-boxed voice interview: a fixed interview
// phase followed by a feedback phase, ended automatically when time runs out.
package interview

// Durations in seconds.
const (
	InterviewDuration = 600
	FeedbackDuration  = 300
	TotalDuration     = InterviewDuration + FeedbackDuration
)

type Phase string

const (
	PhaseInterview Phase = "interview"
	PhaseFeedback  Phase = "feedback"
)

// PhaseFor derives the phase from the total time left. It is the only source
// of the phase; nothing stores it.
func PhaseFor(totalRemaining int) Phase {
	if totalRemaining > FeedbackDuration {
		return PhaseInterview
	}
	return PhaseFeedback
}

// PhaseRemaining returns the seconds left in the current phase.
func PhaseRemaining(totalRemaining int) int {
	if PhaseFor(totalRemaining) == PhaseInterview {
		return totalRemaining - FeedbackDuration
	}
	return totalRemaining
}

// Timer counts the session down one second per Tick while active.
type Timer struct {
	remaining int
	active    bool
}

// NewTimer returns an inactive timer holding the full session duration.
func NewTimer() Timer {
	return Timer{remaining: TotalDuration}
}

// Start activates the countdown. A timer at zero stays inactive.
func (t *Timer) Start() {
	t.active = t.remaining > 0
}

func (t *Timer) Stop() {
	t.active = false
}

// Tick consumes one second. It returns true on the tick that reaches zero
// and never again afterwards.
func (t *Timer) Tick() bool {
	if !t.active {
		return false
	}
	if t.remaining > 0 {
		t.remaining--
	}
	if t.remaining == 0 {
		t.active = false
		return true
	}
	return false
}

func (t Timer) Remaining() int { return t.remaining }
func (t Timer) Active() bool   { return t.active }
func (t Timer) Phase() Phase   { return PhaseFor(t.remaining) }
