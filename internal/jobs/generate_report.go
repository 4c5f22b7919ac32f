package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adeia-app/adeia/internal/ai"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/email"
	"github.com/adeia-app/adeia/internal/metrics"
	"github.com/adeia-app/adeia/internal/report"
	"github.com/adeia-app/adeia/internal/repository"
	"github.com/adeia-app/adeia/internal/service"
	"github.com/adeia-app/adeia/internal/storage"
	"github.com/adeia-app/adeia/internal/worker"
)

// GenerateReportHandler processes jobs that generate permit technical
// reports. One job produces both the PDF and DOCX rendition of the same
// report and records a single report row pointing at both files.
type GenerateReportHandler struct {
	queries       *repository.Queries
	reportService service.ReportService
	aiProvider    ai.AIProvider
	storage       storage.Storage
	emailService  email.EmailService
	pdfGen        report.Generator
	docxGen       report.Generator
	logger        *slog.Logger
	baseURL       string
}

// NewGenerateReportHandler creates a new handler for report generation jobs.
func NewGenerateReportHandler(
	queries *repository.Queries,
	reportService service.ReportService,
	aiProvider ai.AIProvider,
	storage storage.Storage,
	emailService email.EmailService,
	logger *slog.Logger,
	baseURL string,
) *GenerateReportHandler {
	return &GenerateReportHandler{
		queries:       queries,
		reportService: reportService,
		aiProvider:    aiProvider,
		storage:       storage,
		emailService:  emailService,
		pdfGen:        report.NewPDFGenerator(),
		docxGen:       report.NewDOCXGenerator(),
		logger:        logger,
		baseURL:       baseURL,
	}
}

// Type returns the job type identifier.
func (h *GenerateReportHandler) Type() string {
	return worker.JobTypeGenerateReport
}

// Handle executes the report generation job.
func (h *GenerateReportHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.GenerateReportPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	h.logger.Info("Generating report",
		"project_id", p.ProjectID,
		"user_id", p.UserID,
	)

	// 1. Aggregate all report data. A missing or foreign project cannot
	// be fixed by retrying.
	data, err := h.reportService.PrepareReportData(ctx, p.ProjectID, p.UserID)
	if err != nil {
		var derr *domain.Error
		if errors.As(err, &derr) && derr.Code == domain.ENOTFOUND {
			return worker.NewPermanentError(fmt.Errorf("prepare report data: %w", err))
		}
		return fmt.Errorf("prepare report data: %w", err)
	}

	// 2. Write the technical narrative. The use was already consumed when
	// the report was requested, so a narrative failure degrades to a
	// report without that section instead of failing the whole job.
	data.Narrative = h.writeNarrative(ctx, p, data)

	// 3. Render both formats
	pdfKey, err := h.renderAndUpload(ctx, h.pdfGen, data, p)
	if err != nil {
		return err
	}
	docxKey, err := h.renderAndUpload(ctx, h.docxGen, data, p)
	if err != nil {
		return err
	}

	// 4. Create report record in database
	dbReport, err := h.queries.CreateReport(ctx, repository.CreateReportParams{
		ProjectID:      p.ProjectID,
		UserID:         p.UserID,
		PDFStorageKey:  pdfKey,
		DOCXStorageKey: docxKey,
		FindingCount:   int32(len(data.Findings)),
	})
	if err != nil {
		return fmt.Errorf("create report record: %w", err)
	}

	// 5. Send email notification (optional - don't fail job if email fails)
	if h.emailService != nil && data.EngineerEmail != "" {
		reportURL := fmt.Sprintf("%s/projects/%s/reports/%s", h.baseURL, p.ProjectID, dbReport.ID)
		if err := h.emailService.SendReportReadyEmail(ctx, data.EngineerEmail, data.EngineerName, reportURL); err != nil {
			h.logger.Error("Failed to send report ready email",
				"error", err,
				"user_id", p.UserID,
				"report_id", dbReport.ID,
			)
		}
	}

	h.logger.Info("Report generation completed",
		"report_id", dbReport.ID,
		"project_id", p.ProjectID,
		"finding_count", len(data.Findings),
	)

	return nil
}

// writeNarrative asks the AI provider for the technical narrative section.
// Any failure is logged and produces an empty narrative.
func (h *GenerateReportHandler) writeNarrative(
	ctx context.Context,
	p worker.GenerateReportPayload,
	data *domain.ReportData,
) string {
	findingsJSON, err := json.Marshal(data.Findings)
	if err != nil {
		h.logger.Error("Failed to marshal findings for narrative", "error", err)
		findingsJSON = []byte("[]")
	}

	checklistJSON := []byte("null")
	if data.HasChecklist() {
		checklistJSON, _ = json.Marshal(map[string]int{
			"done":  data.ChecklistDone,
			"total": data.ChecklistTotal,
		})
	}

	result, err := h.aiProvider.WriteNarrative(ctx, ai.NarrativeParams{
		ProjectTitle:   data.ProjectTitle,
		ProjectAddress: data.PropertyAddress(),
		PermitType:     string(data.PermitType),
		FindingsJSON:   string(findingsJSON),
		ChecklistJSON:  string(checklistJSON),
		ProjectID:      p.ProjectID,
		UserID:         p.UserID,
	})
	if err != nil {
		h.logger.Warn("Narrative generation failed, continuing without it",
			"project_id", p.ProjectID,
			"error", err,
		)
		return ""
	}
	return result.Narrative
}

// renderAndUpload generates one rendition and uploads it to storage,
// returning the storage key.
func (h *GenerateReportHandler) renderAndUpload(
	ctx context.Context,
	gen report.Generator,
	data *domain.ReportData,
	p worker.GenerateReportPayload,
) (string, error) {
	format := gen.Format()

	var buf bytes.Buffer
	bytesWritten, err := gen.Generate(ctx, data, &buf)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", format, err)
	}

	h.logger.Info("Report rendition generated",
		"project_id", p.ProjectID,
		"format", format,
		"size_bytes", bytesWritten,
		"finding_count", len(data.Findings),
	)

	key := storage.ReportKey(p.ProjectID, format.String())
	err = h.storage.Put(ctx, key, &buf, storage.PutOptions{
		ContentType: format.ContentType(),
		Overwrite:   true,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s report to storage: %w", format, err)
	}

	metrics.ReportsGenerated.WithLabelValues(format.String()).Inc()
	return key, nil
}
