package repository

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/frontline-hq/frontline/internal/domain"
	"github.com/frontline-hq/frontline/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

const entryColumns = `id, question, answer, source, category, confidence_score, usage_count,
	last_used_at, positive_feedback, negative_feedback, is_active, created_at, updated_at, created_by`

type KnowledgeRepository struct {
	db dbtx
}

func NewKnowledgeRepository(pool *pgxpool.Pool) *KnowledgeRepository {
	return &KnowledgeRepository{db: pool}
}

func NewKnowledgeRepositoryWithTx(tx pgx.Tx) *KnowledgeRepository {
	return &KnowledgeRepository{db: tx}
}

// Upsert inserts a new entry or, when the question is already owned
// (case-insensitively, by an active or deactivated row), updates the stored
// answer in place. Usage and feedback counters are never touched by an
// update, and a deactivated row is not reactivated.
func (r *KnowledgeRepository) Upsert(ctx context.Context, e *domain.KnowledgeEntry) (*domain.KnowledgeEntry, error) {
	now := time.Now().UTC()
	row := r.db.QueryRow(ctx,
		`INSERT INTO knowledge_base
		 (question, answer, source, category, confidence_score, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
		 ON CONFLICT ((LOWER(question))) DO UPDATE
		 SET answer = EXCLUDED.answer,
		     source = EXCLUDED.source,
		     category = COALESCE(EXCLUDED.category, knowledge_base.category),
		     created_by = COALESCE(EXCLUDED.created_by, knowledge_base.created_by),
		     updated_at = EXCLUDED.updated_at
		 RETURNING `+entryColumns,
		e.Question, e.Answer, e.Source, nullableString(e.Category), domain.DefaultConfidence,
		nullableString(e.CreatedBy), now)
	stored, err := scanEntry(row)
	if err != nil {
		if isUniqueViolation(err) {
			// Two differently-raced inserts can still collide twice in
			// pathological cases; surface rather than guess.
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConflict, "concurrent insert for question", domain.ErrQuestionTaken)
		}
		return nil, mapStorageErr(err)
	}
	return stored, nil
}

func (r *KnowledgeRepository) GetActive(ctx context.Context, id int64) (*domain.KnowledgeEntry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM knowledge_base WHERE id = $1 AND is_active`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeEntryNotFound
		}
		return nil, mapStorageErr(err)
	}
	return entry, nil
}

// GetAny resolves deactivated entries too, for audit and link history.
func (r *KnowledgeRepository) GetAny(ctx context.Context, id int64) (*domain.KnowledgeEntry, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+entryColumns+` FROM knowledge_base WHERE id = $1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrKnowledgeEntryNotFound
		}
		return nil, mapStorageErr(err)
	}
	return entry, nil
}

// SearchCandidates returns active entries whose question contains every
// token as a case-insensitive substring, best candidates first. The
// ordering is deterministic: usage desc, confidence desc, id asc.
func (r *KnowledgeRepository) SearchCandidates(ctx context.Context, tokens []string, limit int) ([]*domain.KnowledgeEntry, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = service.DefaultSearchLimit
	}

	query := `SELECT ` + entryColumns + ` FROM knowledge_base WHERE is_active`
	var args []any
	for _, token := range tokens {
		args = append(args, likePattern(token))
		query += ` AND LOWER(question) LIKE $` + strconv.Itoa(len(args)) + ` ESCAPE '\'`
	}
	args = append(args, limit)
	query += ` ORDER BY usage_count DESC, confidence_score DESC, id ASC LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()
	entries, err := scanEntryRows(rows)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return entries, nil
}

// SearchByEmbedding returns active embedded entries nearest to the query
// vector by cosine distance.
func (r *KnowledgeRepository) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]service.ScoredEntry, error) {
	if limit <= 0 {
		limit = service.DefaultSearchLimit
	}
	rows, err := r.db.Query(ctx,
		`SELECT `+entryColumns+`, 1 - (embedding <=> $1) AS similarity
		 FROM knowledge_base
		 WHERE is_active AND embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()

	var results []service.ScoredEntry
	for rows.Next() {
		entry, similarity, err := scanScoredEntry(rows)
		if err != nil {
			return nil, mapStorageErr(err)
		}
		results = append(results, service.ScoredEntry{Entry: entry, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr(err)
	}
	return results, nil
}

// RecordUsage increments the usage counter atomically; no read-modify-write.
func (r *KnowledgeRepository) RecordUsage(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_base
		 SET usage_count = usage_count + 1, last_used_at = $2, updated_at = $2
		 WHERE id = $1`,
		id, now)
	if err != nil {
		return mapStorageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrKnowledgeEntryNotFound
	}
	return nil
}

// RecordFeedback bumps one feedback counter and recomputes the smoothed
// confidence in the same statement. Inactive entries are a silent no-op.
func (r *KnowledgeRepository) RecordFeedback(ctx context.Context, id int64, positive bool) error {
	now := time.Now().UTC()
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_base
		 SET positive_feedback = positive_feedback + CASE WHEN $2 THEN 1 ELSE 0 END,
		     negative_feedback = negative_feedback + CASE WHEN $2 THEN 0 ELSE 1 END,
		     confidence_score = (positive_feedback + CASE WHEN $2 THEN 1 ELSE 0 END + 1)::float8
		         / (positive_feedback + negative_feedback + 3),
		     updated_at = $3
		 WHERE id = $1 AND is_active`,
		id, positive, now)
	if err != nil {
		return mapStorageErr(err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing entry from a deactivated one.
		if _, err := r.GetAny(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *KnowledgeRepository) Deactivate(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_base SET is_active = FALSE, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC())
	if err != nil {
		return mapStorageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrKnowledgeEntryNotFound
	}
	return nil
}

func (r *KnowledgeRepository) List(ctx context.Context, filter service.EntryFilter) ([]*domain.KnowledgeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM knowledge_base`
	var conditions []string
	var args []any

	if filter.ActiveOnly {
		conditions = append(conditions, "is_active")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, "category = $"+strconv.Itoa(len(args)))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY usage_count DESC, created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()
	entries, err := scanEntryRows(rows)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return entries, nil
}

func (r *KnowledgeRepository) CategoryStats(ctx context.Context) ([]*domain.CategoryStats, error) {
	rows, err := r.db.Query(ctx,
		`SELECT COALESCE(category, 'uncategorized'), COUNT(*), COALESCE(SUM(usage_count), 0), COALESCE(AVG(confidence_score), 0)
		 FROM knowledge_base
		 WHERE is_active
		 GROUP BY category
		 ORDER BY SUM(usage_count) DESC`)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()

	var stats []*domain.CategoryStats
	for rows.Next() {
		var s domain.CategoryStats
		if err := rows.Scan(&s.Category, &s.TotalEntries, &s.TotalUses, &s.AvgConfidence); err != nil {
			return nil, mapStorageErr(err)
		}
		stats = append(stats, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStorageErr(err)
	}
	return stats, nil
}

// ListMissingEmbeddings returns active entries the backfill worker still
// needs to embed.
func (r *KnowledgeRepository) ListMissingEmbeddings(ctx context.Context, limit int) ([]*domain.KnowledgeEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+entryColumns+`
		 FROM knowledge_base
		 WHERE is_active AND embedding IS NULL
		 ORDER BY updated_at ASC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	defer rows.Close()
	entries, err := scanEntryRows(rows)
	if err != nil {
		return nil, mapStorageErr(err)
	}
	return entries, nil
}

func (r *KnowledgeRepository) UpdateEmbedding(ctx context.Context, id int64, embedding []float32) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_base SET embedding = $2 WHERE id = $1`,
		id, pgvector.NewVector(embedding))
	if err != nil {
		return mapStorageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrKnowledgeEntryNotFound
	}
	return nil
}

// likePattern lower-cases a token and escapes LIKE metacharacters.
func likePattern(token string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(token))
	return "%" + escaped + "%"
}

func scanEntry(row pgx.Row) (*domain.KnowledgeEntry, error) {
	var e domain.KnowledgeEntry
	var category, createdBy *string
	err := row.Scan(
		&e.ID, &e.Question, &e.Answer, &e.Source, &category, &e.ConfidenceScore, &e.UsageCount,
		&e.LastUsedAt, &e.PositiveFeedback, &e.NegativeFeedback, &e.IsActive, &e.CreatedAt, &e.UpdatedAt, &createdBy,
	)
	if err != nil {
		return nil, err
	}
	if category != nil {
		e.Category = *category
	}
	if createdBy != nil {
		e.CreatedBy = *createdBy
	}
	return &e, nil
}

func scanScoredEntry(row pgx.Row) (*domain.KnowledgeEntry, float64, error) {
	var e domain.KnowledgeEntry
	var category, createdBy *string
	var similarity float64
	err := row.Scan(
		&e.ID, &e.Question, &e.Answer, &e.Source, &category, &e.ConfidenceScore, &e.UsageCount,
		&e.LastUsedAt, &e.PositiveFeedback, &e.NegativeFeedback, &e.IsActive, &e.CreatedAt, &e.UpdatedAt, &createdBy,
		&similarity,
	)
	if err != nil {
		return nil, 0, err
	}
	if category != nil {
		e.Category = *category
	}
	if createdBy != nil {
		e.CreatedBy = *createdBy
	}
	return &e, similarity, nil
}

func scanEntryRows(rows pgx.Rows) ([]*domain.KnowledgeEntry, error) {
	var results []*domain.KnowledgeEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	return results, rows.Err()
}
