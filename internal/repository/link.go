package repository

import (
	"context"
	"strings"

	"github.com/frontline-hq/frontline/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LinkRepository stores the append-only trace of which knowledge entries
// were considered or used for a request.
type LinkRepository struct {
	db dbtx
}

func NewLinkRepository(pool *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{db: pool}
}

func NewLinkRepositoryWithTx(tx pgx.Tx) *LinkRepository {
	return &LinkRepository{db: tx}
}

// Create links a request to a knowledge entry. Re-linking the same pair is
// a no-op; a link naming a nonexistent request or entry is rejected.
func (r *LinkRepository) Create(ctx context.Context, requestID, kbID int64) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO request_kb_mapping (request_id, kb_id)
		 VALUES ($1, $2)
		 ON CONFLICT (request_id, kb_id) DO NOTHING`,
		requestID, kbID)
	if err != nil {
		if constraint := foreignKeyTarget(err); constraint != "" {
			if strings.Contains(constraint, "request_id") {
				return domain.ErrRequestNotFound
			}
			return domain.ErrKnowledgeEntryNotFound
		}
		return mapStorageErr(err)
	}
	return nil
}

func (r *LinkRepository) Exists(ctx context.Context, requestID, kbID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM request_kb_mapping WHERE request_id = $1 AND kb_id = $2)`,
		requestID, kbID).Scan(&exists)
	if err != nil {
		return false, mapStorageErr(err)
	}
	return exists, nil
}

func (r *LinkRepository) ListByRequest(ctx context.Context, requestID int64) ([]*domain.RequestKnowledgeLink, error) {
	rows, err := r.db.Query(ctx,
		`SELECT request_id, kb_id, created_at
		 FROM request_kb_mapping
		 WHERE request_id = $1
		 ORDER BY created_at ASC`,
		requestID)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()

	var links []*domain.RequestKnowledgeLink
	for rows.Next() {
		var l domain.RequestKnowledgeLink
		if err := rows.Scan(&l.RequestID, &l.KBID, &l.CreatedAt); err != nil {
			return nil, mapStorageErr(err)
		}
		links = append(links, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr(err)
	}
	return links, nil
}
