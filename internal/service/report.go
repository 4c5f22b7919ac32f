// Package service contains the business logic layer.
//
// This file implements the report service: requesting technical report
// generation and aggregating the data the generators render.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/repository"
	"github.com/adeia-app/adeia/internal/storage"
	"github.com/adeia-app/adeia/internal/worker"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ReportService defines operations for technical reports.
type ReportService interface {
	// Request consumes one quota use and enqueues report generation for
	// the project. The report appears in List once the job completes.
	// Returns domain.EPAYMENT if the monthly quota is exhausted.
	Request(ctx context.Context, projectID, userID uuid.UUID) error

	// GetByID retrieves a report by ID with authorization check.
	GetByID(ctx context.Context, reportID, userID uuid.UUID) (*domain.Report, error)

	// ListByProject retrieves the project's reports, newest first.
	ListByProject(ctx context.Context, projectID, userID uuid.UUID) ([]domain.Report, error)

	// GetDownloadURL returns a presigned/public URL for one rendition.
	GetDownloadURL(ctx context.Context, reportID, userID uuid.UUID, format domain.ReportFormat) (string, error)

	// PrepareReportData aggregates all data needed for report generation.
	// Called by the report generation job, not by handlers.
	PrepareReportData(ctx context.Context, projectID, userID uuid.UUID) (*domain.ReportData, error)
}

// =============================================================================
// Implementation
// =============================================================================

type reportService struct {
	queries *repository.Queries
	storage storage.Storage
	quota   QuotaService
	logger  *slog.Logger
}

// NewReportService creates a new ReportService.
func NewReportService(
	queries *repository.Queries,
	storage storage.Storage,
	quota QuotaService,
	logger *slog.Logger,
) ReportService {
	return &reportService{
		queries: queries,
		storage: storage,
		quota:   quota,
		logger:  logger,
	}
}

// =============================================================================
// Request
// =============================================================================

// Request consumes one quota use and enqueues report generation.
func (s *reportService) Request(ctx context.Context, projectID, userID uuid.UUID) error {
	const op = "ReportService.Request"

	if _, err := s.ownedProject(ctx, op, projectID, userID); err != nil {
		return err
	}

	decision, err := s.quota.CheckAndConsume(ctx, userID, domain.ToolReport)
	if err != nil {
		return err
	}
	if !decision.Allowed {
		return domain.QuotaExhausted(op)
	}

	// Report generation is user-facing work; jump the queue ahead of
	// background analysis.
	_, err = worker.EnqueueGenerateReport(ctx, s.queries, projectID, userID,
		worker.WithPriority(worker.PriorityHigh))
	if err != nil {
		// The use is already consumed. Surface the failure so the user
		// knows no report is coming.
		s.logger.Error("failed to enqueue report generation", "error", err, "project_id", projectID)
		return domain.Internal(err, op, "Failed to queue report generation")
	}

	s.logger.Info("report generation queued",
		"project_id", projectID,
		"user_id", userID,
		"uses_this_month", decision.NewCount,
	)
	return nil
}

// =============================================================================
// GetByID / ListByProject / GetDownloadURL
// =============================================================================

// GetByID retrieves a report by ID with authorization check.
func (s *reportService) GetByID(ctx context.Context, reportID, userID uuid.UUID) (*domain.Report, error) {
	const op = "ReportService.GetByID"

	repoReport, err := s.queries.GetReport(ctx, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "report", reportID.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve report")
	}
	if repoReport.UserID != userID {
		return nil, domain.NotFound(op, "report", reportID.String())
	}

	report := repoReportToDomain(repoReport)
	return &report, nil
}

// ListByProject retrieves the project's reports, newest first.
func (s *reportService) ListByProject(ctx context.Context, projectID, userID uuid.UUID) ([]domain.Report, error) {
	const op = "ReportService.ListByProject"

	if _, err := s.ownedProject(ctx, op, projectID, userID); err != nil {
		return nil, err
	}

	repoReports, err := s.queries.ListReportsByProject(ctx, projectID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list reports")
	}

	reports := make([]domain.Report, len(repoReports))
	for i, rr := range repoReports {
		reports[i] = repoReportToDomain(rr)
	}
	return reports, nil
}

// GetDownloadURL returns a presigned/public URL for one rendition.
func (s *reportService) GetDownloadURL(ctx context.Context, reportID, userID uuid.UUID, format domain.ReportFormat) (string, error) {
	const op = "ReportService.GetDownloadURL"

	if !format.IsValid() {
		return "", domain.Invalid(op, "Unknown report format")
	}

	report, err := s.GetByID(ctx, reportID, userID)
	if err != nil {
		return "", err
	}

	var key string
	switch format {
	case domain.ReportFormatPDF:
		key = report.PDFStorageKey
	case domain.ReportFormatDOCX:
		key = report.DOCXStorageKey
	}
	if key == "" {
		return "", domain.NotFound(op, "report file", string(format))
	}

	url, err := s.storage.URL(ctx, key, time.Hour)
	if err != nil {
		return "", domain.Internal(err, op, "Failed to generate download URL")
	}
	return url, nil
}

// =============================================================================
// PrepareReportData
// =============================================================================

// PrepareReportData aggregates all data needed for report generation.
// The Narrative field is left empty; the job fills it with the AI text
// before rendering.
func (s *reportService) PrepareReportData(ctx context.Context, projectID, userID uuid.UUID) (*domain.ReportData, error) {
	// Fetch user
	user, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}

	// Fetch project with ownership check
	project, err := s.queries.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch project: %w", err)
	}
	if project.UserID != userID {
		return nil, fmt.Errorf("project %s does not belong to user %s", projectID, userID)
	}

	// Collect findings from analyzed blueprints
	blueprints, err := s.queries.ListBlueprintsByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetch blueprints: %w", err)
	}

	findings := make([]domain.ReportFinding, 0)
	for _, bp := range blueprints {
		if bp.AnalysisStatus != string(domain.BlueprintAnalysisCompleted) || !bp.Analysis.Valid {
			continue
		}

		var analysis domain.BlueprintAnalysis
		if err := json.Unmarshal(bp.Analysis.RawMessage, &analysis); err != nil {
			s.logger.Warn("skipping blueprint with malformed analysis",
				"blueprint_id", bp.ID,
				"error", err,
			)
			continue
		}

		// Thumbnail URLs are embedded so the rendered document can show
		// the drawing each finding came from.
		thumbnailURL := ""
		if bp.ThumbnailKey != "" {
			url, err := s.storage.URL(ctx, bp.ThumbnailKey, time.Hour)
			if err == nil {
				thumbnailURL = url
			} else {
				s.logger.Warn("failed to generate thumbnail URL",
					"blueprint_id", bp.ID,
					"error", err,
				)
			}
		}

		for _, f := range analysis.Findings {
			findings = append(findings, domain.ReportFinding{
				Number:            len(findings) + 1,
				BlueprintFilename: bp.OriginalFilename,
				Title:             f.Title,
				Description:       f.Description,
				Severity:          f.Severity,
				Reference:         f.Reference,
				ThumbnailURL:      thumbnailURL,
			})
		}
	}

	// Checklist progress, if one exists
	var checklistDone, checklistTotal int
	repoChecklist, err := s.queries.GetChecklistByProject(ctx, projectID)
	if err == nil {
		if checklist, cerr := repoChecklistToDomain(repoChecklist); cerr == nil {
			checklistDone, checklistTotal = checklist.Progress()
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		s.logger.Warn("failed to fetch checklist for report", "project_id", projectID, "error", err)
	}

	return &domain.ReportData{
		EngineerName:     user.Name,
		EngineerCompany:  domain.NullStringValue(user.CompanyName),
		EngineerRegistry: domain.NullStringValue(user.RegistryNumber),
		EngineerEmail:    user.Email,
		EngineerPhone:    domain.NullStringValue(user.Phone),

		ProjectID:    project.ID,
		ProjectTitle: project.Title,
		PermitType:   domain.PermitType(project.PermitType),
		Address:      project.Address,
		City:         project.City,
		PostalCode:   project.PostalCode,
		Authority:    project.Authority,
		Description:  project.Description,

		Findings:       findings,
		ChecklistDone:  checklistDone,
		ChecklistTotal: checklistTotal,

		GeneratedAt: time.Now(),
	}, nil
}

// ownedProject loads a project row and verifies ownership.
func (s *reportService) ownedProject(ctx context.Context, op string, projectID, userID uuid.UUID) (repository.Project, error) {
	project, err := s.queries.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.Project{}, domain.NotFound(op, "project", projectID.String())
		}
		return repository.Project{}, domain.Internal(err, op, "Failed to retrieve project")
	}
	if project.UserID != userID {
		return repository.Project{}, domain.NotFound(op, "project", projectID.String())
	}
	return project, nil
}

// repoReportToDomain converts a repository Report to a domain Report.
func repoReportToDomain(rr repository.Report) domain.Report {
	return domain.Report{
		ID:             rr.ID,
		ProjectID:      rr.ProjectID,
		UserID:         rr.UserID,
		PDFStorageKey:  rr.PDFStorageKey,
		DOCXStorageKey: rr.DOCXStorageKey,
		FindingCount:   int(rr.FindingCount),
		GeneratedAt:    rr.GeneratedAt,
	}
}
