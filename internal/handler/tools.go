// Metered tool endpoints: regulation Q&A, the fee and cost calculators,
// and the transmittal letter drafter. Each successful invocation consumes
// one monthly use; an exhausted quota surfaces as 402.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/adeia-app/adeia/internal/auth"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/service"
	"github.com/google/uuid"
)

// ToolsHandler handles the stateless tool HTTP requests.
//
// Routes handled:
//   - POST /api/tools/ask
//   - GET  /api/tools/ask/history
//   - POST /api/tools/fees
//   - POST /api/tools/cost
//   - POST /api/tools/letter
type ToolsHandler struct {
	questions   service.QuestionService
	calculators service.CalculatorService
	letters     service.LetterService
	logger      *slog.Logger
}

// NewToolsHandler creates a new ToolsHandler.
func NewToolsHandler(
	questions service.QuestionService,
	calculators service.CalculatorService,
	letters service.LetterService,
	logger *slog.Logger,
) *ToolsHandler {
	return &ToolsHandler{
		questions:   questions,
		calculators: calculators,
		letters:     letters,
		logger:      logger,
	}
}

// RegisterRoutes registers tool routes behind the given auth middleware.
func (h *ToolsHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/tools/ask", requireUser(http.HandlerFunc(h.Ask)))
	mux.Handle("GET /api/tools/ask/history", requireUser(http.HandlerFunc(h.AskHistory)))
	mux.Handle("POST /api/tools/fees", requireUser(http.HandlerFunc(h.CalculateFees)))
	mux.Handle("POST /api/tools/cost", requireUser(http.HandlerFunc(h.EstimateCost)))
	mux.Handle("POST /api/tools/letter", requireUser(http.HandlerFunc(h.DraftLetter)))
}

// =============================================================================
// POST /api/tools/ask
// =============================================================================

type askRequest struct {
	Question  string     `json:"question"`
	ProjectID *uuid.UUID `json:"project_id,omitempty"`
}

// QuestionResponse is the JSON representation of an answered question.
type QuestionResponse struct {
	ID        uuid.UUID         `json:"id"`
	Question  string            `json:"question"`
	Answer    string            `json:"answer"`
	Citations []domain.Citation `json:"citations,omitempty"`
	ProjectID *uuid.UUID        `json:"project_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func toQuestionResponse(q *domain.Question) QuestionResponse {
	return QuestionResponse{
		ID:        q.ID,
		Question:  q.Question,
		Answer:    q.Answer,
		Citations: q.Citations,
		ProjectID: q.ProjectID,
		CreatedAt: q.CreatedAt,
	}
}

// Ask answers a building-regulation question.
// Input validation happens before the quota gate, so a malformed question
// never costs a use.
func (h *ToolsHandler) Ask(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req askRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	question, err := h.questions.Ask(r.Context(), domain.AskParams{
		UserID:    user.ID,
		ProjectID: req.ProjectID,
		Question:  strings.TrimSpace(req.Question),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"question": toQuestionResponse(question)})
}

// =============================================================================
// GET /api/tools/ask/history
// =============================================================================

// AskHistory returns the user's past questions, newest first.
// Reading history never consumes quota.
func (h *ToolsHandler) AskHistory(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	limit, offset := paginationParams(r, 20, 100)
	questions, err := h.questions.History(r.Context(), user.ID, limit, offset)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]QuestionResponse, 0, len(questions))
	for i := range questions {
		out = append(out, toQuestionResponse(&questions[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"questions": out})
}

// =============================================================================
// POST /api/tools/fees
// =============================================================================

type feeRequest struct {
	PermitType  string `json:"permit_type"`
	BudgetCents int64  `json:"budget_cents"`
}

// CalculateFees computes the permit fee breakdown.
func (h *ToolsHandler) CalculateFees(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req feeRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	breakdown, err := h.calculators.CalculateFees(r.Context(), user.ID, domain.FeeParams{
		PermitType:  domain.PermitType(req.PermitType),
		BudgetCents: req.BudgetCents,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"fees": breakdown})
}

// =============================================================================
// POST /api/tools/cost
// =============================================================================

type costRequest struct {
	Zone     string                `json:"zone"`
	Surfaces []domain.SurfaceEntry `json:"surfaces"`
}

// EstimateCost computes a construction cost estimate.
func (h *ToolsHandler) EstimateCost(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req costRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	estimate, err := h.calculators.EstimateCost(r.Context(), user.ID, domain.CostParams{
		Zone:     domain.CostZone(req.Zone),
		Surfaces: req.Surfaces,
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"estimate": estimate})
}

// =============================================================================
// POST /api/tools/letter
// =============================================================================

type letterRequest struct {
	ProjectID uuid.UUID `json:"project_id"`
	Purpose   string    `json:"purpose"`
}

// LetterResponse is the JSON representation of a drafted letter.
type LetterResponse struct {
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	DraftedAt time.Time `json:"drafted_at"`
}

// DraftLetter drafts a transmittal letter to the competent authority.
// Drafts are returned to the caller and never persisted.
func (h *ToolsHandler) DraftLetter(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req letterRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	if req.ProjectID == uuid.Nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("tools.letter", "project_id is required"))
		return
	}

	draft, err := h.letters.Draft(r.Context(), domain.DraftLetterParams{
		UserID:    user.ID,
		ProjectID: req.ProjectID,
		Purpose:   strings.TrimSpace(req.Purpose),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"letter": LetterResponse{
		Recipient: draft.Recipient,
		Subject:   draft.Subject,
		Body:      draft.Body,
		DraftedAt: draft.DraftedAt,
	}})
}

// paginationParams reads limit and offset query parameters with bounds.
// Malformed values fall back to the defaults.
func paginationParams(r *http.Request, defaultLimit, maxLimit int) (limit, offset int) {
	limit = defaultLimit
	if n, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && n > 0 {
		limit = n
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && n > 0 {
		offset = n
	}
	return limit, offset
}
