package model

import "fmt"

// Phase is one countdown interval of the Pomodoro cycle.
// The string values double as the session_type wire values.
type Phase string

const (
	PhaseWork       Phase = "work"
	PhaseShortBreak Phase = "short_break"
	PhaseLongBreak  Phase = "long_break"
)

// ParsePhase converts a wire value into a Phase.
func ParsePhase(value string) (Phase, error) {
	switch phase := Phase(value); phase {
	case PhaseWork, PhaseShortBreak, PhaseLongBreak:
		return phase, nil
	}
	return "", fmt.Errorf("unknown phase %q", value)
}

// Label returns the human readable phase name.
func (phase Phase) Label() string {
	switch phase {
	case PhaseWork:
		return "Work"
	case PhaseShortBreak:
		return "Short break"
	case PhaseLongBreak:
		return "Long break"
	}
	return "Ready"
}

// IsBreak reports whether phase is a short or long break.
func (phase Phase) IsBreak() bool {
	return phase == PhaseShortBreak || phase == PhaseLongBreak
}
