package timer

import (
	"fmt"

	"focusmatrix/internal/core/model"
)

// SnapshotVersion is bumped whenever the Snapshot shape changes.
const SnapshotVersion = 1

// Buttons tells the presentation which controls accept input.
type Buttons struct {
	Start bool
	Pause bool
	Skip  bool
}

// Snapshot is the read-only display state of the engine.
type Snapshot struct {
	Version          int
	Phase            model.Phase
	PhaseLabel       string
	TimeText         string
	CycleText        string
	RemainingSeconds int
	Running          bool
	ProgressPercent  float64
	Buttons          Buttons
}

// TimerState is the engine's aggregate state.
type TimerState struct {
	Phase               model.Phase
	RemainingSeconds    int
	Running             bool
	CompletedWorkCycles int
	ActiveSessionID     string
}

func buildSnapshot(state TimerState, config model.TimerConfig) Snapshot {
	duration := config.Duration(state.Phase)
	fresh := state.RemainingSeconds == duration

	return Snapshot{
		Version:          SnapshotVersion,
		Phase:            state.Phase,
		PhaseLabel:       state.Phase.Label(),
		TimeText:         FormatSeconds(state.RemainingSeconds),
		CycleText:        fmt.Sprintf("%d/%d", state.CompletedWorkCycles+1, config.CyclesBeforeLongBreak),
		RemainingSeconds: state.RemainingSeconds,
		Running:          state.Running,
		ProgressPercent:  progressPercent(duration, state.RemainingSeconds),
		Buttons: Buttons{
			Start: !state.Running,
			Pause: state.Running,
			Skip:  state.Running || !fresh,
		},
	}
}

// FormatSeconds renders seconds as MM:SS.
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

func progressPercent(duration, remaining int) float64 {
	if duration <= 0 {
		return 100
	}
	progress := float64(duration-remaining) / float64(duration) * 100
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
