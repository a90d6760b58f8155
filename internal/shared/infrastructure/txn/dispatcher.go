package txn

import (
	"context"
	"errors"
	"sync"
)

// State is the lifecycle position of a Dispatcher.
type State int

const (
	StatePending State = iota
	StateCommitted
	StateAborted
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Action is a side effect that must only run once its transaction has committed.
type Action func(ctx context.Context)

var (
	ErrNoTransaction = errors.New("no active transaction in context")
	ErrSettled       = errors.New("transaction already settled")
)

// Dispatcher collects the post-commit actions of one transaction.
// Actions fire exactly once, in registration order, and only on Commit.
type Dispatcher struct {
	mu      sync.Mutex
	state   State
	actions []Action
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register queues an action. It fails once the dispatcher left the pending state.
func (d *Dispatcher) Register(action Action) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StatePending {
		return ErrSettled
	}
	d.actions = append(d.actions, action)
	return nil
}

// Commit marks the transaction committed and fires every queued action.
// Calling it again, or after Abort, is a no-op.
func (d *Dispatcher) Commit(ctx context.Context) {
	d.mu.Lock()
	if d.state != StatePending {
		d.mu.Unlock()
		return
	}
	d.state = StateCommitted
	actions := d.actions
	d.actions = nil
	d.mu.Unlock()

	for _, action := range actions {
		action(ctx)
	}
}

// Abort discards every queued action without running it.
func (d *Dispatcher) Abort() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StatePending {
		return
	}
	d.state = StateAborted
	d.actions = nil
}

func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Len reports how many actions are waiting for the commit.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.actions)
}
