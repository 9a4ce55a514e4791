package jobs

import (
	"context"
	"fmt"
	"log"
	"time"
)

// RequestSweeper is the slice of the request service the sweeper needs.
type RequestSweeper interface {
	SweepTimeouts(ctx context.Context, cutoff time.Time) (int64, error)
}

// TimeoutSweeper closes out requests that have waited on a supervisor for
// longer than the configured timeout.
type TimeoutSweeper struct {
	svc     RequestSweeper
	timeout time.Duration
}

func NewTimeoutSweeper(svc RequestSweeper, timeout time.Duration) *TimeoutSweeper {
	return &TimeoutSweeper{svc: svc, timeout: timeout}
}

// ProcessJobs implements the JobProcessor interface
func (s *TimeoutSweeper) ProcessJobs(ctx context.Context) error {
	cutoff := time.Now().UTC().Add(-s.timeout)

	swept, err := s.svc.SweepTimeouts(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to sweep timed out requests: %w", err)
	}
	if swept > 0 {
		log.Printf("Swept %d timed out requests to unresolved", swept)
	}
	return nil
}
