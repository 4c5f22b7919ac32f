// Project CRUD endpoints.
package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/adeia-app/adeia/internal/auth"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/service"
	"github.com/google/uuid"
)

// ProjectHandler handles permit project HTTP requests.
//
// Routes handled:
//   - POST   /api/projects
//   - GET    /api/projects
//   - GET    /api/projects/{id}
//   - PUT    /api/projects/{id}
//   - DELETE /api/projects/{id}
type ProjectHandler struct {
	projectService service.ProjectService
	logger         *slog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService service.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		logger:         logger,
	}
}

// RegisterRoutes registers project routes behind the given auth middleware.
func (h *ProjectHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/projects", requireUser(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/projects", requireUser(http.HandlerFunc(h.List)))
	mux.Handle("GET /api/projects/{id}", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("PUT /api/projects/{id}", requireUser(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/projects/{id}", requireUser(http.HandlerFunc(h.Delete)))
}

// =============================================================================
// Response Shapes
// =============================================================================

// ProjectResponse is the JSON representation of a project.
type ProjectResponse struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	PermitType     string    `json:"permit_type"`
	PermitLabel    string    `json:"permit_label"`
	Status         string    `json:"status"`
	Address        string    `json:"address,omitempty"`
	City           string    `json:"city,omitempty"`
	PostalCode     string    `json:"postal_code,omitempty"`
	Authority      string    `json:"authority,omitempty"`
	Description    string    `json:"description,omitempty"`
	BlueprintCount int       `json:"blueprint_count"`
	ReportCount    int       `json:"report_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toProjectResponse(p *domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:             p.ID,
		Title:          p.Title,
		PermitType:     string(p.PermitType),
		PermitLabel:    p.PermitType.GreekLabel(),
		Status:         string(p.Status),
		Address:        p.Address,
		City:           p.City,
		PostalCode:     p.PostalCode,
		Authority:      p.Authority,
		Description:    p.Description,
		BlueprintCount: p.BlueprintCount,
		ReportCount:    p.ReportCount,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

// =============================================================================
// POST /api/projects
// =============================================================================

type projectRequest struct {
	Title       string `json:"title"`
	PermitType  string `json:"permit_type"`
	Status      string `json:"status,omitempty"`
	Address     string `json:"address"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	Authority   string `json:"authority"`
	Description string `json:"description"`
}

// Create creates a new permit project for the authenticated user.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	permitType := domain.PermitType(req.PermitType)

	verr := &domain.ValidationError{Op: "project.create", Fields: map[string]string{}}
	if req.Title == "" {
		verr.Fields["title"] = "Title is required"
	}
	if !permitType.IsValid() {
		verr.Fields["permit_type"] = "Unknown permit type"
	}
	if len(verr.Fields) > 0 {
		ValidationErrorResponse(w, r, h.logger, verr)
		return
	}

	project, err := h.projectService.Create(r.Context(), domain.CreateProjectParams{
		UserID:      user.ID,
		Title:       req.Title,
		PermitType:  permitType,
		Address:     strings.TrimSpace(req.Address),
		City:        strings.TrimSpace(req.City),
		PostalCode:  strings.TrimSpace(req.PostalCode),
		Authority:   strings.TrimSpace(req.Authority),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("project created", "project_id", project.ID, "user_id", user.ID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"project": toProjectResponse(project)})
}

// =============================================================================
// GET /api/projects
// =============================================================================

// List returns the user's projects, newest first.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	projects, err := h.projectService.List(r.Context(), user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]ProjectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, toProjectResponse(&projects[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"projects": out})
}

// =============================================================================
// GET /api/projects/{id}
// =============================================================================

// Get returns one project, verifying ownership.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	projectID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	project, err := h.projectService.GetByID(r.Context(), projectID, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"project": toProjectResponse(project)})
}

// =============================================================================
// PUT /api/projects/{id}
// =============================================================================

// Update replaces a project's editable fields.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	projectID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	var req projectRequest
	if err := decodeJSON(r, &req); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	permitType := domain.PermitType(req.PermitType)
	status := domain.ProjectStatus(req.Status)
	if req.Status == "" {
		status = domain.ProjectStatusPreparing
	}

	verr := &domain.ValidationError{Op: "project.update", Fields: map[string]string{}}
	if req.Title == "" {
		verr.Fields["title"] = "Title is required"
	}
	if !permitType.IsValid() {
		verr.Fields["permit_type"] = "Unknown permit type"
	}
	if !status.IsValid() {
		verr.Fields["status"] = "Unknown project status"
	}
	if len(verr.Fields) > 0 {
		ValidationErrorResponse(w, r, h.logger, verr)
		return
	}

	err = h.projectService.Update(r.Context(), domain.UpdateProjectParams{
		ID:          projectID,
		UserID:      user.ID,
		Title:       req.Title,
		PermitType:  permitType,
		Status:      status,
		Address:     strings.TrimSpace(req.Address),
		City:        strings.TrimSpace(req.City),
		PostalCode:  strings.TrimSpace(req.PostalCode),
		Authority:   strings.TrimSpace(req.Authority),
		Description: strings.TrimSpace(req.Description),
	})
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	project, err := h.projectService.GetByID(r.Context(), projectID, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"project": toProjectResponse(project)})
}

// =============================================================================
// DELETE /api/projects/{id}
// =============================================================================

// Delete removes a project and everything attached to it.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	projectID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.projectService.Delete(r.Context(), projectID, user.ID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("project deleted", "project_id", projectID, "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// parseUUIDPath extracts and parses a UUID path parameter.
func parseUUIDPath(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, domain.Invalid("handler.parse_path", "Invalid identifier in URL")
	}
	return id, nil
}
