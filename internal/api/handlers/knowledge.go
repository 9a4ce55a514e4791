package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/frontline-hq/frontline/internal/api"
	"github.com/frontline-hq/frontline/internal/domain"
	"github.com/frontline-hq/frontline/internal/service"
	"github.com/go-chi/chi/v5"
)

type KnowledgeService interface {
	Upsert(ctx context.Context, input service.UpsertInput) (*domain.KnowledgeEntry, error)
	Get(ctx context.Context, id int64, activeOnly bool) (*domain.KnowledgeEntry, error)
	List(ctx context.Context, filter service.EntryFilter) ([]*domain.KnowledgeEntry, error)
	Deactivate(ctx context.Context, id int64) error
	CategoryStats(ctx context.Context) ([]*domain.CategoryStats, error)
}

type FeedbackService interface {
	OnDelivered(ctx context.Context, requestID, kbID int64) error
	OnCustomerFeedback(ctx context.Context, kbID int64, positive bool) error
}

type KnowledgeHandler struct {
	svc      KnowledgeService
	feedback FeedbackService
	matcher  service.Matcher
}

func NewKnowledgeHandler(svc KnowledgeService, feedback FeedbackService, matcher service.Matcher) *KnowledgeHandler {
	return &KnowledgeHandler{svc: svc, feedback: feedback, matcher: matcher}
}

type UpsertEntryRequest struct {
	Question  string `json:"question"`
	Answer    string `json:"answer"`
	Category  string `json:"category"`
	Source    string `json:"source"`
	CreatedBy string `json:"created_by"`
}

type EntryResponse struct {
	ID               int64   `json:"id"`
	Question         string  `json:"question"`
	Answer           string  `json:"answer"`
	Source           string  `json:"source"`
	Category         string  `json:"category,omitempty"`
	ConfidenceScore  float64 `json:"confidence_score"`
	UsageCount       int     `json:"usage_count"`
	LastUsedAt       string  `json:"last_used_at,omitempty"`
	PositiveFeedback int     `json:"positive_feedback"`
	NegativeFeedback int     `json:"negative_feedback"`
	IsActive         bool    `json:"is_active"`
	CreatedBy        string  `json:"created_by,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

func entryToResponse(e *domain.KnowledgeEntry) *EntryResponse {
	resp := &EntryResponse{
		ID:               e.ID,
		Question:         e.Question,
		Answer:           e.Answer,
		Source:           e.Source,
		Category:         e.Category,
		ConfidenceScore:  e.ConfidenceScore,
		UsageCount:       e.UsageCount,
		PositiveFeedback: e.PositiveFeedback,
		NegativeFeedback: e.NegativeFeedback,
		IsActive:         e.IsActive,
		CreatedBy:        e.CreatedBy,
		CreatedAt:        e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        e.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if e.LastUsedAt != nil {
		resp.LastUsedAt = e.LastUsedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *KnowledgeHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.svc.Upsert(r.Context(), service.UpsertInput{
		Question:  req.Question,
		Answer:    req.Answer,
		Category:  req.Category,
		Source:    req.Source,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, entryToResponse(entry))
}

func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	activeOnly := r.URL.Query().Get("active_only") == "true"

	entry, err := h.svc.Get(r.Context(), id, activeOnly)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, entryToResponse(entry))
}

func (h *KnowledgeHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := service.EntryFilter{
		Category:   q.Get("category"),
		ActiveOnly: q.Get("active_only") != "false",
	}

	entries, err := h.svc.List(r.Context(), filter)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		responses[i] = entryToResponse(e)
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *KnowledgeHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Deactivate(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}

type FeedbackRequest struct {
	Positive bool `json:"positive"`
}

func (h *KnowledgeHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.feedback.OnCustomerFeedback(r.Context(), id, req.Positive); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}

type DeliveredRequest struct {
	RequestID int64 `json:"request_id"`
}

func (h *KnowledgeHandler) Delivered(w http.ResponseWriter, r *http.Request) {
	id, ok := entryID(w, r)
	if !ok {
		return
	}

	var req DeliveredRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RequestID <= 0 {
		api.Error(w, http.StatusBadRequest, "request_id is required")
		return
	}

	if err := h.feedback.OnDelivered(r.Context(), req.RequestID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}

type SearchRequest struct {
	Question string `json:"question"`
}

type SearchResponse struct {
	Hit   bool           `json:"hit"`
	Entry *EntryResponse `json:"entry,omitempty"`
	Rank  int            `json:"rank,omitempty"`
}

// Search answers a dry-run lookup for the agent collaborator. It never
// records usage; only a confirmed delivery does that.
func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Question == "" {
		api.Error(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := h.matcher.FindAnswer(r.Context(), req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	resp := SearchResponse{Hit: result.Hit, Rank: result.Rank}
	if result.Entry != nil {
		resp.Entry = entryToResponse(result.Entry)
	}

	api.Success(w, http.StatusOK, resp)
}

type CategoryStatsResponse struct {
	Category      string  `json:"category"`
	TotalEntries  int64   `json:"total_entries"`
	TotalUses     int64   `json:"total_uses"`
	AvgConfidence float64 `json:"avg_confidence"`
}

func (h *KnowledgeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.CategoryStats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*CategoryStatsResponse, len(stats))
	for i, s := range stats {
		responses[i] = &CategoryStatsResponse{
			Category:      s.Category,
			TotalEntries:  s.TotalEntries,
			TotalUses:     s.TotalUses,
			AvgConfidence: s.AvgConfidence,
		}
	}

	api.Success(w, http.StatusOK, responses)
}

func entryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		api.Error(w, http.StatusBadRequest, "invalid knowledge entry id")
		return 0, false
	}
	return id, true
}
