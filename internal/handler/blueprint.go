// Blueprint upload and retrieval endpoints. Uploading consumes one
// monthly use and enqueues AI analysis; everything else is a free read.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/adeia-app/adeia/internal/auth"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/service"
	"github.com/google/uuid"
)

// BlueprintHandler handles blueprint HTTP requests.
//
// Routes handled:
//   - POST   /api/projects/{id}/blueprints
//   - GET    /api/projects/{id}/blueprints
//   - GET    /api/blueprints/{id}
//   - DELETE /api/blueprints/{id}
//   - GET    /api/blueprints/{id}/file
//   - GET    /api/blueprints/{id}/thumbnail
type BlueprintHandler struct {
	blueprints service.BlueprintService
	logger     *slog.Logger
}

// NewBlueprintHandler creates a new BlueprintHandler.
func NewBlueprintHandler(blueprints service.BlueprintService, logger *slog.Logger) *BlueprintHandler {
	return &BlueprintHandler{
		blueprints: blueprints,
		logger:     logger,
	}
}

// RegisterRoutes registers blueprint routes behind the given auth middleware.
func (h *BlueprintHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/projects/{id}/blueprints", requireUser(http.HandlerFunc(h.Upload)))
	mux.Handle("GET /api/projects/{id}/blueprints", requireUser(http.HandlerFunc(h.ListByProject)))
	mux.Handle("GET /api/blueprints/{id}", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("DELETE /api/blueprints/{id}", requireUser(http.HandlerFunc(h.Delete)))
	mux.Handle("GET /api/blueprints/{id}/file", requireUser(http.HandlerFunc(h.OriginalURL)))
	mux.Handle("GET /api/blueprints/{id}/thumbnail", requireUser(http.HandlerFunc(h.ThumbnailURL)))
}

// =============================================================================
// Response Shapes
// =============================================================================

// BlueprintResponse is the JSON representation of a blueprint.
type BlueprintResponse struct {
	ID               uuid.UUID                 `json:"id"`
	ProjectID        uuid.UUID                 `json:"project_id"`
	OriginalFilename string                    `json:"original_filename"`
	ContentType      string                    `json:"content_type"`
	SizeBytes        int64                     `json:"size_bytes"`
	Width            int32                     `json:"width"`
	Height           int32                     `json:"height"`
	AnalysisStatus   string                    `json:"analysis_status"`
	Analysis         *domain.BlueprintAnalysis `json:"analysis,omitempty"`
	ThumbnailURL     string                    `json:"thumbnail_url,omitempty"`
	CreatedAt        time.Time                 `json:"created_at"`
}

func toBlueprintResponse(b *domain.Blueprint) BlueprintResponse {
	return BlueprintResponse{
		ID:               b.ID,
		ProjectID:        b.ProjectID,
		OriginalFilename: b.OriginalFilename,
		ContentType:      b.ContentType,
		SizeBytes:        b.SizeBytes,
		Width:            b.Width,
		Height:           b.Height,
		AnalysisStatus:   string(b.AnalysisStatus),
		Analysis:         b.Analysis,
		ThumbnailURL:     b.ThumbnailURL,
		CreatedAt:        b.CreatedAt,
	}
}

// =============================================================================
// POST /api/projects/{id}/blueprints
// =============================================================================

// Upload accepts a multipart form with a "file" field holding the drawing.
// Validation failures (bad type, oversize, missing project) respond before
// the quota gate, so they never cost a use.
func (h *BlueprintHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	projectID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	// Leave headroom over the file limit for the multipart framing.
	r.Body = http.MaxBytesReader(w, r.Body, domain.MaxBlueprintSize+1<<20)
	if err := r.ParseMultipartForm(domain.MaxBlueprintSize); err != nil {
		ErrorResponse(w, r, h.logger, domain.Errorf(domain.ETOOLARGE, "blueprint.upload", "Upload exceeds the size limit"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.Invalid("blueprint.upload", "A file field named 'file' is required"))
		return
	}
	defer file.Close()

	blueprint, err := h.blueprints.Upload(r.Context(), file, header, projectID, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("blueprint uploaded",
		"blueprint_id", blueprint.ID,
		"project_id", projectID,
		"user_id", user.ID,
		"size_bytes", blueprint.SizeBytes,
	)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"blueprint": toBlueprintResponse(blueprint)})
}

// =============================================================================
// GET /api/projects/{id}/blueprints
// =============================================================================

// ListByProject returns the project's blueprints, oldest first.
func (h *BlueprintHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	projectID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	blueprints, err := h.blueprints.ListByProject(r.Context(), projectID, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]BlueprintResponse, 0, len(blueprints))
	for i := range blueprints {
		out = append(out, toBlueprintResponse(&blueprints[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"blueprints": out})
}

// =============================================================================
// GET /api/blueprints/{id}
// =============================================================================

// Get returns one blueprint including any stored analysis.
func (h *BlueprintHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	blueprintID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	blueprint, err := h.blueprints.GetByID(r.Context(), blueprintID, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"blueprint": toBlueprintResponse(blueprint)})
}

// =============================================================================
// DELETE /api/blueprints/{id}
// =============================================================================

// Delete removes a blueprint and its stored files.
func (h *BlueprintHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	blueprintID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.blueprints.Delete(r.Context(), blueprintID, user.ID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("blueprint deleted", "blueprint_id", blueprintID, "user_id", user.ID)
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// File URL Endpoints
// =============================================================================

// OriginalURL redirects to a presigned URL for the original drawing.
func (h *BlueprintHandler) OriginalURL(w http.ResponseWriter, r *http.Request) {
	h.redirectToFile(w, r, h.blueprints.GetOriginalURL)
}

// ThumbnailURL redirects to a presigned URL for the thumbnail.
func (h *BlueprintHandler) ThumbnailURL(w http.ResponseWriter, r *http.Request) {
	h.redirectToFile(w, r, h.blueprints.GetThumbnailURL)
}

func (h *BlueprintHandler) redirectToFile(
	w http.ResponseWriter,
	r *http.Request,
	urlFn func(ctx context.Context, blueprintID, userID uuid.UUID) (string, error),
) {
	user := auth.GetUser(r.Context())

	blueprintID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	url, err := urlFn(r.Context(), blueprintID, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}
