package model

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig indicates a timer configuration that cannot drive a countdown.
var ErrInvalidConfig = errors.New("invalid timer config")

// TimerConfig contains the phase durations for the timer engine.
// Durations are whole minutes, as supplied by the user's settings.
type TimerConfig struct {
	WorkMinutes           int
	ShortBreakMinutes     int
	LongBreakMinutes      int
	CyclesBeforeLongBreak int
}

// DefaultTimerConfig returns the classic 25/5/15 schedule with a long break every 4 cycles.
func DefaultTimerConfig() TimerConfig {
	return TimerConfig{
		WorkMinutes:           25,
		ShortBreakMinutes:     5,
		LongBreakMinutes:      15,
		CyclesBeforeLongBreak: 4,
	}
}

// Validate reports the first field that is not positive.
func (config TimerConfig) Validate() error {
	switch {
	case config.WorkMinutes <= 0:
		return fmt.Errorf("%w: work duration must be positive, got %d", ErrInvalidConfig, config.WorkMinutes)
	case config.ShortBreakMinutes <= 0:
		return fmt.Errorf("%w: short break must be positive, got %d", ErrInvalidConfig, config.ShortBreakMinutes)
	case config.LongBreakMinutes <= 0:
		return fmt.Errorf("%w: long break must be positive, got %d", ErrInvalidConfig, config.LongBreakMinutes)
	case config.CyclesBeforeLongBreak <= 0:
		return fmt.Errorf("%w: cycles before long break must be positive, got %d", ErrInvalidConfig, config.CyclesBeforeLongBreak)
	}
	return nil
}

// Duration returns the length of phase in seconds.
func (config TimerConfig) Duration(phase Phase) int {
	switch phase {
	case PhaseShortBreak:
		return config.ShortBreakMinutes * 60
	case PhaseLongBreak:
		return config.LongBreakMinutes * 60
	default:
		return config.WorkMinutes * 60
	}
}
