// Package sessiontest provides a scriptable in-memory session.Remote.
package sessiontest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"focusmatrix/internal/core/session"
)

// StartCall is a StartSession call waiting for the test to resolve it.
type StartCall struct {
	Request session.StartRequest
	result  chan startResult
}

type startResult struct {
	response session.StartResponse
	err      error
}

// Succeed resolves the call with sessionID.
func (call *StartCall) Succeed(sessionID string) {
	call.result <- startResult{response: session.StartResponse{SessionID: sessionID, Message: "session started"}}
}

// Fail resolves the call with err.
func (call *StartCall) Fail(err error) {
	call.result <- startResult{err: err}
}

// Remote is a fake session service. With Hold set, StartSession blocks until
// the call is taken with NextStart or TryNextStart and resolved; otherwise it
// succeeds at once with sequential identifiers. A non-nil EndGate makes
// EndSession wait until the channel is closed.
type Remote struct {
	Hold      bool
	StartErr  error
	EndErr    error
	EndResult func(session.EndRequest) session.EndResponse
	EndGate   chan struct{}

	mu     sync.Mutex
	calls  int
	seq    int
	opened map[string]bool
	ends   []session.EndRequest
	starts chan *StartCall
}

// New creates a Remote.
func New() *Remote {
	return &Remote{
		opened: make(map[string]bool),
		starts: make(chan *StartCall, 16),
	}
}

// StartSession implements session.Remote.
func (remote *Remote) StartSession(ctx context.Context, request session.StartRequest) (session.StartResponse, error) {
	remote.mu.Lock()
	remote.calls++
	remote.mu.Unlock()

	if !remote.Hold {
		if remote.StartErr != nil {
			return session.StartResponse{}, remote.StartErr
		}
		remote.mu.Lock()
		remote.seq++
		id := fmt.Sprintf("s-%d", remote.seq)
		remote.opened[id] = true
		remote.mu.Unlock()
		return session.StartResponse{SessionID: id, Message: "session started"}, nil
	}

	call := &StartCall{Request: request, result: make(chan startResult, 1)}
	remote.starts <- call
	select {
	case result := <-call.result:
		if result.err == nil {
			remote.mu.Lock()
			remote.opened[result.response.SessionID] = true
			remote.mu.Unlock()
		}
		return result.response, result.err
	case <-ctx.Done():
		return session.StartResponse{}, ctx.Err()
	}
}

// EndSession implements session.Remote.
func (remote *Remote) EndSession(ctx context.Context, request session.EndRequest) (session.EndResponse, error) {
	remote.mu.Lock()
	remote.ends = append(remote.ends, request)
	delete(remote.opened, request.SessionID)
	remote.mu.Unlock()

	if remote.EndGate != nil {
		select {
		case <-remote.EndGate:
		case <-ctx.Done():
			return session.EndResponse{}, ctx.Err()
		}
	}
	if remote.EndErr != nil {
		return session.EndResponse{}, remote.EndErr
	}
	if remote.EndResult != nil {
		return remote.EndResult(request), nil
	}
	return session.EndResponse{Message: "session ended"}, nil
}

// NextStart returns the next held StartSession call, failing the test after a timeout.
func (remote *Remote) NextStart(t interface {
	Helper()
	Fatalf(string, ...any)
}) *StartCall {
	t.Helper()
	select {
	case call := <-remote.starts:
		return call
	case <-time.After(2 * time.Second):
		t.Fatalf("no StartSession call arrived")
		return nil
	}
}

// TryNextStart returns the next held StartSession call if one arrives within wait.
func (remote *Remote) TryNextStart(wait time.Duration) (*StartCall, bool) {
	select {
	case call := <-remote.starts:
		return call, true
	case <-time.After(wait):
		return nil, false
	}
}

// StartCalls returns how many StartSession calls were made.
func (remote *Remote) StartCalls() int {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	return remote.calls
}

// Ends returns the EndSession requests received so far.
func (remote *Remote) Ends() []session.EndRequest {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	return append([]session.EndRequest(nil), remote.ends...)
}

// OpenSessions returns how many sessions were started and never ended.
func (remote *Remote) OpenSessions() int {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	return len(remote.opened)
}
