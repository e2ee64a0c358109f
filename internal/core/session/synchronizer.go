// Package session keeps the remote session record in step with the local timer.
//
// Every open request becomes an attempt that is pending until the service
// answers and confirmed once it returns an identifier. At most one attempt is
// current. Closing a pending attempt detaches it: the close is sent as soon
// as the open resolves, and the detached attempt never becomes the active
// session. While a previous session is still being closed, a new open is
// queued and only sent once that close has completed, so the service never
// holds two sessions for one timer. Remote calls never block the caller.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"focusmatrix/internal/core/model"
)

// DefaultTimeout bounds a single remote call.
const DefaultTimeout = 10 * time.Second

// Status is the state of the current session attempt.
type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
)

// Options configures a Synchronizer. Zero values are usable.
type Options struct {
	Notifier Notifier
	Progress ProgressSink
	Logger   *slog.Logger
	// Timeout bounds each remote call; zero means DefaultTimeout, negative disables it.
	Timeout time.Duration
}

type attempt struct {
	status    Status
	taskID    string
	phase     model.Phase
	sent      bool
	sessionID string
	detached  bool
	outcome   Outcome
}

// Synchronizer maps phase start/end transitions onto remote session calls.
type Synchronizer struct {
	mu       sync.Mutex
	idle     *sync.Cond
	remote   Remote
	notifier Notifier
	progress ProgressSink
	logger   *slog.Logger
	timeout  time.Duration
	baseCtx  context.Context
	cancel   context.CancelFunc
	current  *attempt
	inFlight int
	// closing counts previous sessions whose close has not completed:
	// detached attempts awaiting their open and close calls in flight.
	closing int
	stopped bool
}

// New creates a Synchronizer calling remote.
func New(remote Remote, options Options) *Synchronizer {
	if options.Logger == nil {
		options.Logger = slog.Default()
	}
	if options.Timeout == 0 {
		options.Timeout = DefaultTimeout
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	synchronizer := &Synchronizer{
		remote:   remote,
		notifier: options.Notifier,
		progress: options.Progress,
		logger:   options.Logger.With("component", "session"),
		timeout:  options.Timeout,
		baseCtx:  baseCtx,
		cancel:   cancel,
	}
	synchronizer.idle = sync.NewCond(&synchronizer.mu)
	return synchronizer
}

// Open requests a remote session for taskID and phase.
// It is ignored while another attempt is pending or confirmed. While a
// previous session is still closing, the request is queued and reported
// as pending.
func (synchronizer *Synchronizer) Open(taskID string, phase model.Phase) {
	if taskID == "" {
		synchronizer.logger.Warn("open session skipped: no task id", "phase", phase)
		synchronizer.notify(LevelWarning, "No task selected, this session will not be recorded")
		return
	}

	synchronizer.mu.Lock()
	if synchronizer.stopped {
		synchronizer.mu.Unlock()
		return
	}
	if synchronizer.current != nil {
		status := synchronizer.current.status
		synchronizer.mu.Unlock()
		synchronizer.logger.Debug("open session ignored", "phase", phase, "current", status)
		return
	}
	current := &attempt{status: StatusPending, taskID: taskID, phase: phase}
	synchronizer.current = current
	if synchronizer.closing > 0 {
		synchronizer.mu.Unlock()
		synchronizer.logger.Debug("open queued until previous session closes", "phase", phase)
		return
	}
	current.sent = true
	synchronizer.beginCallLocked()
	synchronizer.mu.Unlock()

	go synchronizer.open(current)
}

// Close requests that the current session be closed with outcome.
// The active identifier is cleared before Close returns.
func (synchronizer *Synchronizer) Close(outcome Outcome) {
	synchronizer.mu.Lock()
	current := synchronizer.current
	if current == nil {
		synchronizer.mu.Unlock()
		return
	}
	synchronizer.current = nil

	if !current.sent {
		synchronizer.mu.Unlock()
		synchronizer.logger.Debug("queued open dropped", "phase", current.phase, "outcome", outcome)
		return
	}

	synchronizer.closing++
	if current.status == StatusPending {
		current.detached = true
		current.outcome = outcome
		synchronizer.mu.Unlock()
		synchronizer.logger.Debug("close deferred until open resolves", "phase", current.phase, "outcome", outcome)
		return
	}

	sessionID := current.sessionID
	synchronizer.beginCallLocked()
	synchronizer.mu.Unlock()

	go synchronizer.close(sessionID, outcome)
}

// ActiveSessionID returns the confirmed session identifier, or "".
func (synchronizer *Synchronizer) ActiveSessionID() string {
	synchronizer.mu.Lock()
	defer synchronizer.mu.Unlock()
	if synchronizer.current == nil || synchronizer.current.status != StatusConfirmed {
		return ""
	}
	return synchronizer.current.sessionID
}

// Status reports the state of the current attempt. A queued open is pending.
func (synchronizer *Synchronizer) Status() Status {
	synchronizer.mu.Lock()
	defer synchronizer.mu.Unlock()
	if synchronizer.current == nil {
		return StatusNone
	}
	return synchronizer.current.status
}

// InFlight returns the number of remote calls not yet resolved.
func (synchronizer *Synchronizer) InFlight() int {
	synchronizer.mu.Lock()
	defer synchronizer.mu.Unlock()
	return synchronizer.inFlight
}

// Wait blocks until no remote call is in flight.
func (synchronizer *Synchronizer) Wait() {
	synchronizer.mu.Lock()
	defer synchronizer.mu.Unlock()
	for synchronizer.inFlight > 0 {
		synchronizer.idle.Wait()
	}
}

// Shutdown cancels any open session and waits for outstanding calls.
// If ctx expires first, outstanding calls are aborted.
func (synchronizer *Synchronizer) Shutdown(ctx context.Context) error {
	synchronizer.mu.Lock()
	synchronizer.stopped = true
	synchronizer.mu.Unlock()
	synchronizer.Close(OutcomeCancelled)

	done := make(chan struct{})
	go func() {
		synchronizer.Wait()
		close(done)
	}()

	select {
	case <-done:
		synchronizer.cancel()
		return nil
	case <-ctx.Done():
		synchronizer.cancel()
		<-done
		return ctx.Err()
	}
}

func (synchronizer *Synchronizer) open(current *attempt) {
	defer synchronizer.endCall()

	request := StartRequest{TaskID: current.taskID, Phase: current.phase}
	ctx, cancel := synchronizer.callContext()
	response, err := synchronizer.remote.StartSession(ctx, request)
	cancel()

	synchronizer.mu.Lock()
	if err != nil {
		current.status = StatusNone
		if synchronizer.current == current {
			synchronizer.current = nil
		}
		var next *attempt
		if current.detached {
			synchronizer.closing--
			next = synchronizer.releaseLocked()
		}
		synchronizer.mu.Unlock()
		if next != nil {
			go synchronizer.open(next)
		}
		synchronizer.logger.Error("start session failed", "task", request.TaskID, "phase", request.Phase, "error", err)
		synchronizer.notify(LevelError, "Could not start session")
		return
	}

	current.status = StatusConfirmed
	current.sessionID = response.SessionID
	if current.detached {
		outcome := current.outcome
		synchronizer.beginCallLocked()
		synchronizer.mu.Unlock()
		synchronizer.logger.Info("closing session confirmed after local close", "session", response.SessionID, "outcome", outcome)
		synchronizer.close(response.SessionID, outcome)
		return
	}
	synchronizer.mu.Unlock()

	synchronizer.logger.Info("session started", "session", response.SessionID, "phase", request.Phase)
	if response.Message != "" {
		synchronizer.notify(LevelInfo, response.Message)
	}
}

// close ends sessionID and, once the call has returned, sends any queued open.
func (synchronizer *Synchronizer) close(sessionID string, outcome Outcome) {
	defer synchronizer.endCall()
	defer synchronizer.closeDone()

	ctx, cancel := synchronizer.callContext()
	response, err := synchronizer.remote.EndSession(ctx, EndRequest{SessionID: sessionID, Outcome: outcome})
	cancel()

	if err != nil {
		synchronizer.logger.Error("end session failed", "session", sessionID, "outcome", outcome, "error", err)
		synchronizer.notify(LevelError, "Could not end session")
		return
	}

	synchronizer.logger.Info("session ended", "session", sessionID, "outcome", outcome)
	if response.Message != "" {
		synchronizer.notify(LevelInfo, response.Message)
	}
	if response.Progress != nil && synchronizer.progress != nil {
		synchronizer.progress.UpdateProgress(*response.Progress)
	}
}

func (synchronizer *Synchronizer) closeDone() {
	synchronizer.mu.Lock()
	synchronizer.closing--
	next := synchronizer.releaseLocked()
	synchronizer.mu.Unlock()
	if next != nil {
		go synchronizer.open(next)
	}
}

// releaseLocked marks a queued open as sent once nothing is closing.
// The caller must start open for the returned attempt.
func (synchronizer *Synchronizer) releaseLocked() *attempt {
	current := synchronizer.current
	if synchronizer.closing > 0 || synchronizer.stopped || current == nil || current.sent {
		return nil
	}
	current.sent = true
	synchronizer.beginCallLocked()
	synchronizer.logger.Debug("sending queued open", "phase", current.phase)
	return current
}

func (synchronizer *Synchronizer) callContext() (context.Context, context.CancelFunc) {
	if synchronizer.timeout < 0 {
		return context.WithCancel(synchronizer.baseCtx)
	}
	return context.WithTimeout(synchronizer.baseCtx, synchronizer.timeout)
}

func (synchronizer *Synchronizer) beginCallLocked() {
	synchronizer.inFlight++
}

func (synchronizer *Synchronizer) endCall() {
	synchronizer.mu.Lock()
	synchronizer.inFlight--
	if synchronizer.inFlight == 0 {
		synchronizer.idle.Broadcast()
	}
	synchronizer.mu.Unlock()
}

func (synchronizer *Synchronizer) notify(level Level, message string) {
	if synchronizer.notifier == nil {
		return
	}
	synchronizer.notifier.Notify(Notice{Level: level, Message: message})
}
