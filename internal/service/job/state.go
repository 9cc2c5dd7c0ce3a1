// Package job provides job ID generation and lifecycle management for call
// processing.
package job

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a processing job.
type State int

const (
	// StateQueued - Job accepted, nothing has run yet.
	StateQueued State = iota
	// StateSplitting - Recording is being fetched and split into channels.
	StateSplitting
	// StateTranscribing - Both channels are with the STT provider.
	StateTranscribing
	// StateAligning - Word timestamps are being refined. Skipped in plain mode.
	StateAligning
	// StateAssembling - Turns, interruptions and latency are being built.
	StateAssembling
	// StateCompleted - Transcript produced. Terminal.
	StateCompleted
	// StateFailed - An upstream stage failed. Terminal.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateQueued:
		return "QUEUED"
	case StateSplitting:
		return "SPLITTING"
	case StateTranscribing:
		return "TRANSCRIBING"
	case StateAligning:
		return "ALIGNING"
	case StateAssembling:
		return "ASSEMBLING"
	case StateCompleted:
		return "COMPLETED"
	case StateFailed:
		return "FAILED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (COMPLETED or FAILED).
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Errors for invalid state transitions.
var (
	ErrJobFinished       = errors.New("job is finished")
	ErrInvalidTransition = errors.New("invalid job state transition")
)

// next lists the forward transitions allowed from each non-terminal state.
var next = map[State][]State{
	StateQueued:       {StateSplitting},
	StateSplitting:    {StateTranscribing},
	StateTranscribing: {StateAligning, StateAssembling},
	StateAligning:     {StateAssembling},
	StateAssembling:   {StateCompleted},
}

// Lifecycle manages the state machine for a single job.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	QUEUED → SPLITTING → TRANSCRIBING → [ALIGNING] → ASSEMBLING → COMPLETED
//	   │          │            │             │             │
//	   └──────────┴────────────┴─────────────┴─────────────┴──→ FAILED
//
// Rules:
//   - Advance moves one step forward; ALIGNING may be skipped
//   - Fail is allowed from any non-terminal state
//   - COMPLETED and FAILED are final
type Lifecycle struct {
	mu     sync.RWMutex
	jobId  string
	state  State
	failed string // stage the job failed in
}

// NewLifecycle creates a new job lifecycle in QUEUED state.
func NewLifecycle(jobId string) *Lifecycle {
	return &Lifecycle{
		jobId: jobId,
		state: StateQueued,
	}
}

// JobId returns the job ID.
func (l *Lifecycle) JobId() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.jobId
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// IsFinished returns true if the job is in a terminal state.
func (l *Lifecycle) IsFinished() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.IsTerminal()
}

// FailedStage returns the state the job was in when it failed, or "".
func (l *Lifecycle) FailedStage() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.failed
}

// Advance transitions the job to the given state.
// Returns an error if the transition is not allowed.
func (l *Lifecycle) Advance(to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state.IsTerminal() {
		return ErrJobFinished
	}
	for _, s := range next[l.state] {
		if s == to {
			l.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %v → %v", ErrInvalidTransition, l.state, to)
}

// Fail transitions the job to FAILED and remembers the stage it failed in.
// Returns true if the job was failed, false if already in a terminal state.
func (l *Lifecycle) Fail() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.failed = l.state.String()
	l.state = StateFailed
	return true
}
