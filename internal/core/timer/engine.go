// Package timer implements the Pomodoro phase state machine.
package timer

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"focusmatrix/internal/core/clock"
	"focusmatrix/internal/core/model"
	"focusmatrix/internal/core/session"
)

// Synchronizer mirrors phase boundaries to the session service.
// Implementations must not call back into the Engine.
type Synchronizer interface {
	Open(taskID string, phase model.Phase)
	Close(outcome session.Outcome)
	ActiveSessionID() string
}

// Options contains runtime collaborators for the Engine.
type Options struct {
	Clock  clock.Clock
	Logger *slog.Logger
}

// Engine is the state machine that drives phase countdowns.
// Every command and tick runs as one critical section under mu.
type Engine struct {
	mu         sync.Mutex
	config     model.TimerConfig
	taskID     string
	sync       Synchronizer
	clock      clock.Clock
	logger     *slog.Logger
	state      TimerState
	generation uint64
	events     []chan Event
	closed     bool
}

// New creates an Engine at the start of a work phase.
// A nil synchronizer runs the engine in local-only mode.
func New(config model.TimerConfig, taskID string, synchronizer Synchronizer, options Options) (*Engine, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if synchronizer == nil {
		synchronizer = localOnly{}
	}
	if options.Clock == nil {
		options.Clock = clock.NewTicker(time.Second)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	engine := &Engine{
		config: config,
		taskID: taskID,
		sync:   synchronizer,
		clock:  options.Clock,
		logger: options.Logger.With("component", "timer"),
		state: TimerState{
			Phase:            model.PhaseWork,
			RemainingSeconds: config.Duration(model.PhaseWork),
		},
	}
	return engine, nil
}

// Config returns the engine's configuration.
func (engine *Engine) Config() model.TimerConfig {
	return engine.config
}

// TaskID returns the task sessions are recorded against.
func (engine *Engine) TaskID() string {
	return engine.taskID
}

// Subscribe registers a new observer channel.
func (engine *Engine) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed {
		close(ch)
		return ch
	}
	engine.events = append(engine.events, ch)
	return ch
}

// State returns a copy of the current state.
func (engine *Engine) State() TimerState {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	state := engine.state
	state.ActiveSessionID = engine.sync.ActiveSessionID()
	return state
}

// Snapshot returns the current display state.
func (engine *Engine) Snapshot() Snapshot {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return buildSnapshot(engine.state, engine.config)
}

// Start runs the countdown. A phase started at full duration opens a session.
func (engine *Engine) Start() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed || engine.state.Running {
		return
	}

	engine.state.Running = true
	if engine.freshLocked() {
		engine.sync.Open(engine.taskID, engine.state.Phase)
	}
	engine.startClockLocked()
	engine.logger.Debug("timer started", "phase", engine.state.Phase, "remaining", engine.state.RemainingSeconds)
	engine.emitDisplayLocked()
}

// Pause freezes the countdown. The session stays open.
func (engine *Engine) Pause() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed || !engine.state.Running {
		return
	}

	engine.stopClockLocked()
	engine.state.Running = false
	engine.logger.Debug("timer paused", "phase", engine.state.Phase, "remaining", engine.state.RemainingSeconds)
	engine.emitDisplayLocked()
}

// Stop resets the current phase to full duration and cancels its session.
func (engine *Engine) Stop() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed {
		return
	}

	engine.stopClockLocked()
	engine.state.Running = false
	engine.state.RemainingSeconds = engine.config.Duration(engine.state.Phase)
	engine.sync.Close(session.OutcomeCancelled)
	engine.logger.Debug("timer stopped", "phase", engine.state.Phase)
	engine.emitDisplayLocked()
}

// Skip completes the current phase immediately.
func (engine *Engine) Skip() {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if engine.closed {
		return
	}

	engine.stopClockLocked()
	engine.completePhaseLocked()
}

// Close stops the clock and closes observer channels.
// Open sessions are left to the synchronizer's shutdown.
func (engine *Engine) Close() {
	engine.mu.Lock()
	if engine.closed {
		engine.mu.Unlock()
		return
	}
	engine.stopClockLocked()
	engine.state.Running = false
	engine.closed = true
	events := engine.events
	engine.events = nil
	engine.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

func (engine *Engine) tick(generation uint64) {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	if !engine.state.Running || generation != engine.generation {
		return
	}

	engine.state.RemainingSeconds--
	if engine.state.RemainingSeconds > 0 {
		engine.emitDisplayLocked()
		return
	}

	engine.state.RemainingSeconds = 0
	engine.stopClockLocked()
	engine.emitDisplayLocked()
	engine.completePhaseLocked()
}

// completePhaseLocked closes the session before advancing so the next
// phase's open never overlaps this phase's identifier.
func (engine *Engine) completePhaseLocked() {
	engine.state.Running = false
	engine.sync.Close(session.OutcomeCompleted)

	completed := engine.state.Phase
	message := engine.advancePhaseLocked()
	engine.state.RemainingSeconds = engine.config.Duration(engine.state.Phase)

	engine.logger.Info("phase complete",
		"completed", completed,
		"next", engine.state.Phase,
		"cycles", engine.state.CompletedWorkCycles,
	)

	now := time.Now()
	snapshot := buildSnapshot(engine.state, engine.config)
	engine.emitLocked(Event{
		Type:      EventPhaseComplete,
		Snapshot:  snapshot,
		Completed: completed,
		Message:   message,
		At:        now,
	})
	engine.emitLocked(Event{
		Type:     EventDisplay,
		Snapshot: snapshot,
		At:       now,
	})
}

func (engine *Engine) advancePhaseLocked() string {
	if engine.state.Phase != model.PhaseWork {
		engine.state.Phase = model.PhaseWork
		return "Break is over! Ready to work?"
	}

	engine.state.CompletedWorkCycles++
	if engine.state.CompletedWorkCycles >= engine.config.CyclesBeforeLongBreak {
		engine.state.Phase = model.PhaseLongBreak
		engine.state.CompletedWorkCycles = 0
		return "Great work! Time for a long break!"
	}
	engine.state.Phase = model.PhaseShortBreak
	return fmt.Sprintf("Good work! Time for a short break (%d/%d done).",
		engine.state.CompletedWorkCycles, engine.config.CyclesBeforeLongBreak)
}

func (engine *Engine) freshLocked() bool {
	return engine.state.RemainingSeconds == engine.config.Duration(engine.state.Phase)
}

func (engine *Engine) startClockLocked() {
	engine.generation++
	generation := engine.generation
	engine.clock.Start(func() {
		engine.tick(generation)
	})
}

// stopClockLocked invalidates ticks already scheduled by the previous run.
func (engine *Engine) stopClockLocked() {
	engine.generation++
	engine.clock.Stop()
}

func (engine *Engine) emitDisplayLocked() {
	engine.emitLocked(Event{
		Type:     EventDisplay,
		Snapshot: buildSnapshot(engine.state, engine.config),
		At:       time.Now(),
	})
}

func (engine *Engine) emitLocked(event Event) {
	for _, ch := range engine.events {
		select {
		case ch <- event:
		default:
		}
	}
}

type localOnly struct{}

func (localOnly) Open(string, model.Phase) {}

func (localOnly) Close(session.Outcome) {}

func (localOnly) ActiveSessionID() string { return "" }
