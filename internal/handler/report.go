// Technical report endpoints. Requesting a report consumes one monthly
// use and enqueues background generation of both the PDF and DOCX
// renditions; listing and downloading are free reads.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/adeia-app/adeia/internal/auth"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/service"
	"github.com/google/uuid"
)

// ReportHandler handles technical report HTTP requests.
//
// Routes handled:
//   - POST /api/projects/{id}/report
//   - GET  /api/projects/{id}/reports
//   - GET  /api/reports/{id}
//   - GET  /api/reports/{id}/download
type ReportHandler struct {
	reports service.ReportService
	logger  *slog.Logger
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(reports service.ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{
		reports: reports,
		logger:  logger,
	}
}

// RegisterRoutes registers report routes behind the given auth middleware.
func (h *ReportHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /api/projects/{id}/report", requireUser(http.HandlerFunc(h.Request)))
	mux.Handle("GET /api/projects/{id}/reports", requireUser(http.HandlerFunc(h.ListByProject)))
	mux.Handle("GET /api/reports/{id}", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("GET /api/reports/{id}/download", requireUser(http.HandlerFunc(h.Download)))
}

// ReportResponse is the JSON representation of a generated report.
type ReportResponse struct {
	ID           uuid.UUID `json:"id"`
	ProjectID    uuid.UUID `json:"project_id"`
	FindingCount int       `json:"finding_count"`
	HasPDF       bool      `json:"has_pdf"`
	HasDOCX      bool      `json:"has_docx"`
	GeneratedAt  time.Time `json:"generated_at"`
}

func toReportResponse(rep *domain.Report) ReportResponse {
	return ReportResponse{
		ID:           rep.ID,
		ProjectID:    rep.ProjectID,
		FindingCount: rep.FindingCount,
		HasPDF:       rep.HasPDF(),
		HasDOCX:      rep.HasDOCX(),
		GeneratedAt:  rep.GeneratedAt,
	}
}

// Request consumes one use and enqueues report generation. The report
// appears in the project's report list once the job completes; the 202
// tells the client to poll.
func (h *ReportHandler) Request(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	projectID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.reports.Request(r.Context(), projectID, user.ID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	h.logger.Info("report requested", "project_id", projectID, "user_id", user.ID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// ListByProject returns the project's reports, newest first.
func (h *ReportHandler) ListByProject(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	projectID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	reports, err := h.reports.ListByProject(r.Context(), projectID, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]ReportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, toReportResponse(&reports[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reports": out})
}

// Get returns one report's metadata.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	reportID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	report, err := h.reports.GetByID(r.Context(), reportID, user.ID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"report": toReportResponse(report)})
}

// Download redirects to a presigned URL for one rendition. The format
// query parameter selects "pdf" (default) or "docx".
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUser(r.Context())

	reportID, err := parseUUIDPath(r, "id")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	format := domain.ReportFormat(r.URL.Query().Get("format"))
	if format == "" {
		format = domain.ReportFormatPDF
	}
	if !format.IsValid() {
		ErrorResponse(w, r, h.logger, domain.Invalid("report.download", "Unknown report format"))
		return
	}

	url, err := h.reports.GetDownloadURL(r.Context(), reportID, user.ID, format)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	http.Redirect(w, r, url, http.StatusFound)
}
