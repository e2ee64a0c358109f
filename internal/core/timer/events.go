package timer

import (
	"time"

	"focusmatrix/internal/core/model"
)

// EventType defines the type of Engine event.
type EventType string

const (
	EventDisplay       EventType = "display"
	EventPhaseComplete EventType = "phase_complete"
)

// Event represents an Engine update for observers.
type Event struct {
	Type     EventType
	Snapshot Snapshot
	// Completed is the phase that just ended; set for EventPhaseComplete only.
	Completed model.Phase
	Message   string
	At        time.Time
}
