// Checklist endpoints. Generating a checklist consumes one monthly use;
// reading it and toggling items are free.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/adeia-app/adeia/internal/auth"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/service"
	"github.com/google/uuid"
)

// ChecklistHandler handles permit checklist HTTP requests.
//
// Routes handled:
//   - POST /api/projects/{id}/checklist
//   - GET  /api/projects/{id}/checklist
//   - PUT  /api/projects/{id}/checklist/items/{index}
type ChecklistHandler struct {
	checklists service.ChecklistService
	logger     *slog.Logger
}

// NewChecklistHandler creates a new ChecklistHandler.
func NewChecklistHandler(checklists service.ChecklistService, logger *slog.Logger) *ChecklistHandler {
	return &ChecklistHandler{
		checklists: checklists,
		logger:     logger,
	}
}

// RegisterRoutes registers checklist routes behind the given auth middleware.
func (h *ChecklistHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/projects/{id}/checklist", requireUser(http.HandlerFunc(h.Generate)))
	mux.Handle("GET /api/projects/{id}/checklist", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("PUT /api/projects/{id}/checklist/items/{index}", requireUser(http.HandlerFunc(h.ToggleItem)))
}

// ChecklistResponse is the JSON representation of a checklist.
type ChecklistResponse struct {
	ID          uuid.UUID              `json:"id"`
	ProjectID   uuid.UUID              `json:"project_id"`
	PermitType  string                 `json:"permit_type"`
	Items       []domain.ChecklistItem `json:"items"`
	DoneCount   int                    `json:"done_count"`
	TotalCount  int                    `json:"total_count"`
	GeneratedAt time.Time              `json:"generated_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

func toChecklistResponse(c *domain.Checklist) ChecklistResponse {
	done, total := c.Progress()
	return ChecklistResponse{
		ID:          c.ID,
		ProjectID:   c.ProjectID,
		PermitType:  string(c.PermitType),
		Items:       c.Items,
		DoneCount:   done,
		TotalCount:  total,
		GeneratedAt: c.GeneratedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// Generate creates a fresh checklist for the project, replacing any
// existing one. Item done-states do not survive regeneration.
func (h *ChecklistHandler) Generate(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	projectID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	checklist, err := h.checklists.Generate(r.Context(), projectID, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("checklist generated", "project_id", projectID, "user_id", user.ID, "items", len(checklist.Items))
	writeJSON(w, http.StatusCreated, map[string]interface{}{"checklist": toChecklistResponse(checklist)})
}

// Get returns the project's current checklist.
func (h *ChecklistHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	projectID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	checklist, err := h.checklists.Get(r.Context(), projectID, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"checklist": toChecklistResponse(checklist)})
}

// ToggleItem flips the done state of one checklist item by index.
func (h *ChecklistHandler) ToggleItem(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	projectID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		ErrorResponse(w, r, h.logger, domain.Invalid("checklist.toggle", "Invalid item index"))
		return
	}

	checklist, err := h.checklists.ToggleItem(r.Context(), projectID, user.ID, index)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"checklist": toChecklistResponse(checklist)})
}
