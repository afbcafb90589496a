package state

import (
	"context"
	"sync"

	"github.com/elektrokombinacija/mapf-pibt/internal/algo"
	"github.com/elektrokombinacija/mapf-pibt/internal/core"
)

// LiveState drives a Scheduler one step at a time from the UI.
type LiveState struct {
	mu sync.Mutex

	sched    *algo.Scheduler
	maxSteps int
	done     bool
	err      error
}

// NewLiveState wraps a scheduler that stops after maxSteps transitions.
func NewLiveState(sched *algo.Scheduler, maxSteps int) *LiveState {
	return &LiveState{
		sched:    sched,
		maxSteps: maxSteps,
		done:     sched.AtGoals(),
	}
}

// Step advances the scheduler once. ok is false when the run had already
// finished.
func (l *LiveState) Step(ctx context.Context) (cfg core.Config, ok bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.done {
		return nil, false, l.err
	}
	cfg, err = l.sched.Step(ctx)
	if err != nil {
		l.done, l.err = true, err
		return nil, false, err
	}
	if l.sched.AtGoals() || l.sched.Timestep() >= l.maxSteps {
		l.done = true
	}
	return cfg, true, nil
}

// Finished reports whether the run reached its goals, its step budget or an
// error.
func (l *LiveState) Finished() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

// Err returns the error that stopped the run, if any.
func (l *LiveState) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Timestep returns the scheduler's current timestep.
func (l *LiveState) Timestep() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sched.Timestep()
}

// Priorities returns the scheduler's current priorities.
func (l *LiveState) Priorities() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sched.Priorities()
}
