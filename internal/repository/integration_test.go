//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/frontline-hq/frontline/internal/domain"
	"github.com/frontline-hq/frontline/internal/testutil"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoFixture struct {
	pool      *pgxpool.Pool
	requests  *RequestRepository
	knowledge *KnowledgeRepository
	links     *LinkRepository
	tx        *TxRunner
}

func setupRepos(t *testing.T) (context.Context, *repoFixture) {
	t.Helper()
	ctx := context.Background()

	pc := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { pc.Terminate(ctx) })

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	t.Cleanup(pool.Close)

	return ctx, &repoFixture{
		pool:      pool,
		requests:  NewRequestRepository(pool),
		knowledge: NewKnowledgeRepository(pool),
		links:     NewLinkRepository(pool),
		tx:        NewTxRunner(pool),
	}
}

func (f *repoFixture) truncate(ctx context.Context, t *testing.T) {
	t.Helper()
	if err := testutil.TruncateAll(ctx, f.pool); err != nil {
		t.Fatalf("failed to truncate: %v", err)
	}
}

func newPendingRequest(caller, question string) *domain.HelpRequest {
	now := time.Now().UTC()
	return &domain.HelpRequest{
		CallerID:  caller,
		Question:  question,
		Status:    domain.RequestStatusPending,
		Priority:  domain.PriorityNormal,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newEntry(question, answer string) *domain.KnowledgeEntry {
	return &domain.KnowledgeEntry{
		Question: question,
		Answer:   answer,
		Source:   domain.SourceSupervisor,
	}
}
