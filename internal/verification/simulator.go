package verification

import (
	"time"

	"github.com/liveness-broker/internal/types"
)

// SimulatedProgress fakes provider progression from elapsed time since the
// submission was created. It exists for demo deployments and tests that run
// without a real verification provider; it is never consulted once a
// submission reaches a terminal state.
type SimulatedProgress struct {
	// ProcessingAfter, ReadyAfter and CompletedAfter are elapsed-time
	// thresholds. Zero values fall back to the defaults below.
	ProcessingAfter time.Duration
	ReadyAfter      time.Duration
	CompletedAfter  time.Duration
}

// Default simulated progression thresholds
const (
	DefaultProcessingAfter = 1 * time.Minute
	DefaultReadyAfter      = 2 * time.Minute
	DefaultCompletedAfter  = 3 * time.Minute
)

// NewSimulatedProgress creates a simulator with the default thresholds
func NewSimulatedProgress() *SimulatedProgress {
	return &SimulatedProgress{
		ProcessingAfter: DefaultProcessingAfter,
		ReadyAfter:      DefaultReadyAfter,
		CompletedAfter:  DefaultCompletedAfter,
	}
}

// Progress implements ProgressSource
func (p *SimulatedProgress) Progress(sub *types.Submission, now time.Time) types.Status {
	processingAfter := p.ProcessingAfter
	if processingAfter == 0 {
		processingAfter = DefaultProcessingAfter
	}
	readyAfter := p.ReadyAfter
	if readyAfter == 0 {
		readyAfter = DefaultReadyAfter
	}
	completedAfter := p.CompletedAfter
	if completedAfter == 0 {
		completedAfter = DefaultCompletedAfter
	}

	elapsed := now.Sub(sub.CreatedAt)
	switch {
	case elapsed >= completedAfter:
		return types.StatusCompleted
	case elapsed >= readyAfter:
		return types.StatusReady
	case elapsed >= processingAfter:
		return types.StatusProcessing
	default:
		return types.StatusPending
	}
}
