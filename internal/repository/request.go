package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/frontline-hq/frontline/internal/domain"
	"github.com/frontline-hq/frontline/internal/pagination"
	"github.com/frontline-hq/frontline/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const requestColumns = `id, caller_id, caller_phone, question, escalation_reason, call_transcript,
	transcript_key, status, priority, supervisor_response, supervisor_id, resolved_at,
	followed_up, follow_up_attempts, follow_up_method, created_at, updated_at`

type RequestRepository struct {
	db dbtx
}

func NewRequestRepository(pool *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{db: pool}
}

func NewRequestRepositoryWithTx(tx pgx.Tx) *RequestRepository {
	return &RequestRepository{db: tx}
}

func (r *RequestRepository) Create(ctx context.Context, req *domain.HelpRequest) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO help_requests
		 (caller_id, caller_phone, question, escalation_reason, call_transcript, transcript_key,
		  status, priority, supervisor_response, supervisor_id, resolved_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $12)
		 RETURNING id, created_at, updated_at`,
		req.CallerID,
		nullableString(req.CallerPhone),
		req.Question,
		nullableString(req.EscalationReason),
		nullableString(req.CallTranscript),
		nullableString(req.TranscriptKey),
		req.Status,
		req.Priority,
		nullableString(req.SupervisorResponse),
		nullableString(req.SupervisorID),
		req.ResolvedAt,
		req.CreatedAt,
	).Scan(&req.ID, &req.CreatedAt, &req.UpdatedAt)
	return mapStorageErr(err)
}

func (r *RequestRepository) GetByID(ctx context.Context, id int64) (*domain.HelpRequest, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM help_requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, mapStorageErr(err)
	}
	return req, nil
}

// Resolve performs the state transition to resolved with the state check
// inside the same statement: concurrent resolutions race on the row lock
// and only the first matches the awaiting-supervisor predicate.
func (r *RequestRepository) Resolve(ctx context.Context, id int64, supervisorID, response string) (*domain.HelpRequest, error) {
	now := time.Now().UTC()
	row := r.db.QueryRow(ctx,
		`UPDATE help_requests
		 SET status = $2, supervisor_response = $3, supervisor_id = $4, resolved_at = $5, updated_at = $5
		 WHERE id = $1 AND status IN ('pending', 'escalated')
		 RETURNING `+requestColumns,
		id, domain.RequestStatusResolved, response, supervisorID, now)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.terminalStateError(ctx, id, "resolve")
		}
		return nil, mapStorageErr(err)
	}
	return req, nil
}

func (r *RequestRepository) MarkUnresolved(ctx context.Context, id int64, supervisorID, reason string) (*domain.HelpRequest, error) {
	now := time.Now().UTC()
	row := r.db.QueryRow(ctx,
		`UPDATE help_requests
		 SET status = $2, supervisor_response = $3, supervisor_id = $4, resolved_at = $5, updated_at = $5
		 WHERE id = $1 AND status IN ('pending', 'escalated')
		 RETURNING `+requestColumns,
		id, domain.RequestStatusUnresolved, reason, supervisorID, now)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.terminalStateError(ctx, id, "mark unresolved")
		}
		return nil, mapStorageErr(err)
	}
	return req, nil
}

// terminalStateError distinguishes a missing request from one that already
// reached a terminal state, carrying the offending id and current status.
func (r *RequestRepository) terminalStateError(ctx context.Context, id int64, op string) error {
	var status domain.RequestStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM help_requests WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrRequestNotFound
		}
		return mapStorageErr(err)
	}
	return domain.NewDomainErrorWithCause(
		domain.ErrCodeInvalidState,
		fmt.Sprintf("cannot %s request %d: status is %s", op, id, status),
		domain.ErrRequestAlreadyTerminal,
	)
}

// RecordFollowUpAttempt bumps the attempt counter atomically. The method is
// pinned by the first successful attempt; later successes keep it.
func (r *RequestRepository) RecordFollowUpAttempt(ctx context.Context, id int64, method string, succeeded bool) (*domain.HelpRequest, error) {
	now := time.Now().UTC()
	row := r.db.QueryRow(ctx,
		`UPDATE help_requests
		 SET follow_up_attempts = follow_up_attempts + 1,
		     followed_up = followed_up OR $2,
		     follow_up_method = CASE WHEN $2 AND NOT followed_up THEN $3 ELSE follow_up_method END,
		     updated_at = $4
		 WHERE id = $1 AND status IN ('resolved', 'unresolved')
		 RETURNING `+requestColumns,
		id, succeeded, method, now)
	req, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.followUpStateError(ctx, id)
		}
		return nil, mapStorageErr(err)
	}
	return req, nil
}

func (r *RequestRepository) followUpStateError(ctx context.Context, id int64) error {
	var status domain.RequestStatus
	err := r.db.QueryRow(ctx, `SELECT status FROM help_requests WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrRequestNotFound
		}
		return mapStorageErr(err)
	}
	return domain.NewDomainErrorWithCause(
		domain.ErrCodeInvalidState,
		fmt.Sprintf("cannot record follow-up for request %d: status is %s", id, status),
		domain.ErrRequestNotTerminal,
	)
}

func (r *RequestRepository) List(ctx context.Context, filter domain.RequestFilter, cursor *pagination.Cursor, limit int) (*service.RequestPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `SELECT ` + requestColumns + ` FROM help_requests`
	var conditions []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Status != "" {
		conditions = append(conditions, "status = "+arg(filter.Status))
	}
	if filter.CallerID != "" {
		conditions = append(conditions, "caller_id = "+arg(filter.CallerID))
	}
	if filter.Priority != "" {
		conditions = append(conditions, "priority = "+arg(filter.Priority))
	}
	if cursor != nil {
		conditions = append(conditions, "(created_at, id) < ("+arg(cursor.Timestamp)+", "+arg(cursor.LastID)+")")
	}

	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT " + arg(limit+1)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()

	items, err := scanRequestRows(rows)
	if err != nil {
		return nil, mapStorageErr(err)
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.CreatedAt)
	}

	return &service.RequestPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// ListPending returns the supervisor queue ordered urgent, high, normal,
// newest first within each band.
func (r *RequestRepository) ListPending(ctx context.Context) ([]*domain.HelpRequest, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+requestColumns+`
		 FROM help_requests
		 WHERE status IN ('pending', 'escalated')
		 ORDER BY
		     CASE priority
		         WHEN 'urgent' THEN 1
		         WHEN 'high' THEN 2
		         ELSE 3
		     END,
		     created_at DESC`)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()
	items, err := scanRequestRows(rows)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return items, nil
}

func (r *RequestRepository) ListForFollowUp(ctx context.Context, maxAttempts, limit int) ([]*domain.HelpRequest, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+requestColumns+`
		 FROM help_requests
		 WHERE status = 'resolved' AND NOT followed_up AND follow_up_attempts < $1
		 ORDER BY resolved_at ASC
		 LIMIT $2`,
		maxAttempts, limit)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()
	items, err := scanRequestRows(rows)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return items, nil
}

// SweepTimeouts closes out requests that waited past the cutoff. The
// terminal invariant still holds: reason and sentinel supervisor are
// recorded alongside the transition.
func (r *RequestRepository) SweepTimeouts(ctx context.Context, cutoff time.Time, reason string) (int64, error) {
	now := time.Now().UTC()
	tag, err := r.db.Exec(ctx,
		`UPDATE help_requests
		 SET status = $1, supervisor_response = $2, supervisor_id = $3, resolved_at = $4, updated_at = $4
		 WHERE status IN ('pending', 'escalated') AND created_at < $5`,
		domain.RequestStatusUnresolved, reason, domain.AutoSupervisorID, now, cutoff)
	if err != nil {
		return 0, mapStorageErr(err)
	}
	return tag.RowsAffected(), nil
}

func (r *RequestRepository) SetTranscriptKey(ctx context.Context, id int64, key string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE help_requests SET transcript_key = $2, updated_at = $3 WHERE id = $1`,
		id, key, time.Now().UTC())
	if err != nil {
		return mapStorageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRequestNotFound
	}
	return nil
}

func (r *RequestRepository) Stats(ctx context.Context) (*domain.RequestStats, error) {
	var stats domain.RequestStats
	var avgHours *float64
	err := r.db.QueryRow(ctx,
		`SELECT
		     COUNT(*) FILTER (WHERE status = 'pending'),
		     COUNT(*) FILTER (WHERE status = 'resolved'),
		     COUNT(*) FILTER (WHERE status = 'unresolved'),
		     COUNT(*) FILTER (WHERE status = 'escalated'),
		     COUNT(*) FILTER (WHERE priority = 'urgent' AND status IN ('pending', 'escalated')),
		     COUNT(*),
		     AVG(EXTRACT(EPOCH FROM (resolved_at - created_at)) / 3600.0)
		         FILTER (WHERE status = 'resolved' AND resolved_at IS NOT NULL)
		 FROM help_requests`).Scan(
		&stats.Pending,
		&stats.Resolved,
		&stats.Unresolved,
		&stats.Escalated,
		&stats.UrgentPending,
		&stats.Total,
		&avgHours,
	)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	if avgHours != nil {
		stats.AvgResolutionHours = *avgHours
	}
	return &stats, nil
}

func scanRequest(row pgx.Row) (*domain.HelpRequest, error) {
	var req domain.HelpRequest
	var callerPhone, escalationReason, transcript, transcriptKey *string
	var supervisorResponse, supervisorID, followUpMethod *string
	err := row.Scan(
		&req.ID, &req.CallerID, &callerPhone, &req.Question, &escalationReason, &transcript,
		&transcriptKey, &req.Status, &req.Priority, &supervisorResponse, &supervisorID, &req.ResolvedAt,
		&req.FollowedUp, &req.FollowUpAttempts, &followUpMethod, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if callerPhone != nil {
		req.CallerPhone = *callerPhone
	}
	if escalationReason != nil {
		req.EscalationReason = *escalationReason
	}
	if transcript != nil {
		req.CallTranscript = *transcript
	}
	if transcriptKey != nil {
		req.TranscriptKey = *transcriptKey
	}
	if supervisorResponse != nil {
		req.SupervisorResponse = *supervisorResponse
	}
	if supervisorID != nil {
		req.SupervisorID = *supervisorID
	}
	if followUpMethod != nil {
		req.FollowUpMethod = *followUpMethod
	}
	return &req, nil
}

func scanRequestRows(rows pgx.Rows) ([]*domain.HelpRequest, error) {
	var results []*domain.HelpRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, req)
	}
	return results, rows.Err()
}
