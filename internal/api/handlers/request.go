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

type RequestService interface {
	CreateRequest(ctx context.Context, input service.CreateRequestInput) (*domain.HelpRequest, error)
	GetByID(ctx context.Context, id int64) (*domain.HelpRequest, error)
	List(ctx context.Context, input service.ListRequestsInput) (*service.ListRequestsOutput, error)
	ListPending(ctx context.Context) ([]*domain.HelpRequest, error)
	Resolve(ctx context.Context, requestID int64, supervisorID, answer string) (*domain.HelpRequest, error)
	MarkUnresolved(ctx context.Context, requestID int64, supervisorID, reason string) (*domain.HelpRequest, error)
	RecordFollowUpAttempt(ctx context.Context, requestID int64, method string, succeeded bool) (*domain.HelpRequest, error)
	SweepTimeouts(ctx context.Context, cutoff time.Time) (int64, error)
	Stats(ctx context.Context) (*domain.RequestStats, error)
	Links(ctx context.Context, requestID int64) ([]*domain.RequestKnowledgeLink, error)
}

// TranscriptArchive resolves the archived call transcript for a request to a
// time-limited download URL.
type TranscriptArchive interface {
	PresignDownload(ctx context.Context, key string) (string, error)
}

type RequestHandler struct {
	svc            RequestService
	archive        TranscriptArchive
	requestTimeout time.Duration
}

func NewRequestHandler(svc RequestService, archive TranscriptArchive, requestTimeout time.Duration) *RequestHandler {
	return &RequestHandler{svc: svc, archive: archive, requestTimeout: requestTimeout}
}

type CreateRequestRequest struct {
	CallerID         string `json:"caller_id"`
	CallerPhone      string `json:"caller_phone"`
	Question         string `json:"question"`
	EscalationReason string `json:"escalation_reason"`
	CallTranscript   string `json:"call_transcript"`
	Priority         string `json:"priority"`
}

type ResolveRequestRequest struct {
	SupervisorID string `json:"supervisor_id"`
	Answer       string `json:"answer"`
}

type UnresolvedRequestRequest struct {
	SupervisorID string `json:"supervisor_id"`
	Reason       string `json:"reason"`
}

type FollowUpRequest struct {
	Method    string `json:"method"`
	Succeeded bool   `json:"succeeded"`
}

type RequestResponse struct {
	ID                 int64  `json:"id"`
	CallerID           string `json:"caller_id"`
	CallerPhone        string `json:"caller_phone,omitempty"`
	Question           string `json:"question"`
	EscalationReason   string `json:"escalation_reason,omitempty"`
	Status             string `json:"status"`
	Priority           string `json:"priority"`
	SupervisorResponse string `json:"supervisor_response,omitempty"`
	SupervisorID       string `json:"supervisor_id,omitempty"`
	ResolvedAt         string `json:"resolved_at,omitempty"`
	FollowedUp         bool   `json:"followed_up"`
	FollowUpAttempts   int    `json:"follow_up_attempts"`
	FollowUpMethod     string `json:"follow_up_method,omitempty"`
	CreatedAt          string `json:"created_at"`
	UpdatedAt          string `json:"updated_at"`
}

func requestToResponse(r *domain.HelpRequest) *RequestResponse {
	resp := &RequestResponse{
		ID:                 r.ID,
		CallerID:           r.CallerID,
		CallerPhone:        r.CallerPhone,
		Question:           r.Question,
		EscalationReason:   r.EscalationReason,
		Status:             string(r.Status),
		Priority:           string(r.Priority),
		SupervisorResponse: r.SupervisorResponse,
		SupervisorID:       r.SupervisorID,
		FollowedUp:         r.FollowedUp,
		FollowUpAttempts:   r.FollowUpAttempts,
		FollowUpMethod:     r.FollowUpMethod,
		CreatedAt:          r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          r.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if r.ResolvedAt != nil {
		resp.ResolvedAt = r.ResolvedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func (h *RequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.CreateRequestInput{
		CallerID:         req.CallerID,
		CallerPhone:      req.CallerPhone,
		Question:         req.Question,
		EscalationReason: req.EscalationReason,
		CallTranscript:   req.CallTranscript,
		Priority:         domain.RequestPriority(req.Priority),
	}

	request, err := h.svc.CreateRequest(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, requestToResponse(request))
}

func (h *RequestHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := requestID(w, r)
	if !ok {
		return
	}

	request, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, requestToResponse(request))
}

type RequestListResponse struct {
	Items   []*RequestResponse `json:"items"`
	Cursor  string             `json:"cursor,omitempty"`
	HasMore bool               `json:"has_more"`
}

func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 20
	if limitStr := q.Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	input := service.ListRequestsInput{
		Status:   domain.RequestStatus(q.Get("status")),
		CallerID: q.Get("caller_id"),
		Priority: domain.RequestPriority(q.Get("priority")),
		Cursor:   q.Get("cursor"),
		Limit:    limit,
	}

	output, err := h.svc.List(r.Context(), input)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*RequestResponse, len(output.Items))
	for i, req := range output.Items {
		responses[i] = requestToResponse(req)
	}

	api.Success(w, http.StatusOK, RequestListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *RequestHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.svc.ListPending(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*RequestResponse, len(pending))
	for i, req := range pending {
		responses[i] = requestToResponse(req)
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *RequestHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := requestID(w, r)
	if !ok {
		return
	}

	var req ResolveRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	request, err := h.svc.Resolve(r.Context(), id, req.SupervisorID, req.Answer)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, requestToResponse(request))
}

func (h *RequestHandler) MarkUnresolved(w http.ResponseWriter, r *http.Request) {
	id, ok := requestID(w, r)
	if !ok {
		return
	}

	var req UnresolvedRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	request, err := h.svc.MarkUnresolved(r.Context(), id, req.SupervisorID, req.Reason)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, requestToResponse(request))
}

func (h *RequestHandler) FollowUp(w http.ResponseWriter, r *http.Request) {
	id, ok := requestID(w, r)
	if !ok {
		return
	}

	var req FollowUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	request, err := h.svc.RecordFollowUpAttempt(r.Context(), id, req.Method, req.Succeeded)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, requestToResponse(request))
}

type TranscriptResponse struct {
	URL string `json:"url"`
}

func (h *RequestHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		api.Error(w, http.StatusNotImplemented, "transcript archive is not configured")
		return
	}

	id, ok := requestID(w, r)
	if !ok {
		return
	}

	request, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if request.TranscriptKey == "" {
		api.Error(w, http.StatusNotFound, "no transcript archived for this request")
		return
	}

	url, err := h.archive.PresignDownload(r.Context(), request.TranscriptKey)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, TranscriptResponse{URL: url})
}

type LinkResponse struct {
	RequestID int64  `json:"request_id"`
	KBID      int64  `json:"kb_id"`
	CreatedAt string `json:"created_at"`
}

func (h *RequestHandler) Links(w http.ResponseWriter, r *http.Request) {
	id, ok := requestID(w, r)
	if !ok {
		return
	}

	links, err := h.svc.Links(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*LinkResponse, len(links))
	for i, link := range links {
		responses[i] = &LinkResponse{
			RequestID: link.RequestID,
			KBID:      link.KBID,
			CreatedAt: link.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	api.Success(w, http.StatusOK, responses)
}

type StatsResponse struct {
	Pending            int64   `json:"pending"`
	Resolved           int64   `json:"resolved"`
	Unresolved         int64   `json:"unresolved"`
	Escalated          int64   `json:"escalated"`
	UrgentPending      int64   `json:"urgent_pending"`
	Total              int64   `json:"total"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
}

func (h *RequestHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, StatsResponse{
		Pending:            stats.Pending,
		Resolved:           stats.Resolved,
		Unresolved:         stats.Unresolved,
		Escalated:          stats.Escalated,
		UrgentPending:      stats.UrgentPending,
		Total:              stats.Total,
		AvgResolutionHours: stats.AvgResolutionHours,
	})
}

type SweepResponse struct {
	Swept int64 `json:"swept"`
}

func (h *RequestHandler) CheckTimeouts(w http.ResponseWriter, r *http.Request) {
	cutoff := time.Now().UTC().Add(-h.requestTimeout)

	swept, err := h.svc.SweepTimeouts(r.Context(), cutoff)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SweepResponse{Swept: swept})
}

func requestID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		api.Error(w, http.StatusBadRequest, "invalid request id")
		return 0, false
	}
	return id, true
}
