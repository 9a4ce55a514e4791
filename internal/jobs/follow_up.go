package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/frontline-hq/frontline/internal/domain"
)

// DefaultFollowUpBatch caps how many resolved requests one poll picks up.
const DefaultFollowUpBatch = 20

// Notifier delivers a resolved answer back to the caller. Implementations
// report the channel they used; errors count as a failed attempt.
type Notifier interface {
	Notify(ctx context.Context, request *domain.HelpRequest) (method string, err error)
}

// FollowUpSource is the slice of the request service the dispatcher needs.
type FollowUpSource interface {
	ListForFollowUp(ctx context.Context, maxAttempts, limit int) ([]*domain.HelpRequest, error)
	RecordFollowUpAttempt(ctx context.Context, requestID int64, method string, succeeded bool) (*domain.HelpRequest, error)
}

// FollowUpDispatcher delivers supervisor answers to callers who were
// promised a follow-up. Every delivery attempt is recorded; requests that
// exhaust maxAttempts drop out of the candidate query on their own.
type FollowUpDispatcher struct {
	source      FollowUpSource
	notifier    Notifier
	maxAttempts int
}

func NewFollowUpDispatcher(source FollowUpSource, notifier Notifier, maxAttempts int) *FollowUpDispatcher {
	return &FollowUpDispatcher{
		source:      source,
		notifier:    notifier,
		maxAttempts: maxAttempts,
	}
}

// ProcessJobs implements the JobProcessor interface
func (d *FollowUpDispatcher) ProcessJobs(ctx context.Context) error {
	pending, err := d.source.ListForFollowUp(ctx, d.maxAttempts, DefaultFollowUpBatch)
	if err != nil {
		return fmt.Errorf("failed to list requests awaiting follow-up: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	log.Printf("Dispatching follow-ups for %d resolved requests", len(pending))

	for _, request := range pending {
		method, notifyErr := d.notifier.Notify(ctx, request)
		if notifyErr != nil {
			log.Printf("Follow-up delivery for request %d failed: %v", request.ID, notifyErr)
		}

		if _, err := d.source.RecordFollowUpAttempt(ctx, request.ID, method, notifyErr == nil); err != nil {
			log.Printf("Failed to record follow-up attempt for request %d: %v", request.ID, err)
		}
	}

	return nil
}

// LogNotifier is the default delivery channel: it only logs. Real SMS or
// callback providers are collaborators plugged in at wiring time.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, request *domain.HelpRequest) (string, error) {
	method := domain.FollowUpMethodCallback
	if request.CallerPhone != "" {
		method = domain.FollowUpMethodSMS
	}
	log.Printf("Follow-up (%s) for request %d to caller %s: %s",
		method, request.ID, request.CallerID, request.SupervisorResponse)
	return method, nil
}
