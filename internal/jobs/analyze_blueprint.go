package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/adeia-app/adeia/internal/ai"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/metrics"
	"github.com/adeia-app/adeia/internal/repository"
	"github.com/adeia-app/adeia/internal/storage"
	"github.com/adeia-app/adeia/internal/worker"
	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// AnalyzeBlueprintHandler processes jobs that analyze uploaded permit
// drawings. It downloads the drawing from storage, sends it to the AI
// provider, and stores the resulting findings on the blueprint row.
type AnalyzeBlueprintHandler struct {
	queries    *repository.Queries
	aiProvider ai.AIProvider
	storage    storage.Storage
	logger     *slog.Logger
}

// NewAnalyzeBlueprintHandler creates a new handler for blueprint analysis jobs.
func NewAnalyzeBlueprintHandler(
	queries *repository.Queries,
	aiProvider ai.AIProvider,
	storage storage.Storage,
	logger *slog.Logger,
) *AnalyzeBlueprintHandler {
	return &AnalyzeBlueprintHandler{
		queries:    queries,
		aiProvider: aiProvider,
		storage:    storage,
		logger:     logger,
	}
}

// Type returns the job type identifier.
func (h *AnalyzeBlueprintHandler) Type() string {
	return worker.JobTypeAnalyzeBlueprint
}

// Handle executes the blueprint analysis job.
func (h *AnalyzeBlueprintHandler) Handle(ctx context.Context, payload []byte) error {
	// Unmarshal the payload
	var p worker.AnalyzeBlueprintPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	h.logger.Info("Analyzing blueprint",
		"blueprint_id", p.BlueprintID,
		"user_id", p.UserID,
	)

	// 1. Fetch and validate blueprint
	blueprint, err := h.queries.GetBlueprint(ctx, p.BlueprintID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("blueprint not found: %w", err))
		}
		// Database error - retryable
		return fmt.Errorf("fetch blueprint: %w", err)
	}

	// Verify ownership through the parent project
	project, err := h.queries.GetProject(ctx, blueprint.ProjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return worker.NewPermanentError(fmt.Errorf("project not found: %w", err))
		}
		return fmt.Errorf("fetch project: %w", err)
	}
	if project.UserID != p.UserID {
		return worker.NewPermanentError(fmt.Errorf("blueprint does not belong to user"))
	}

	// Completed blueprints are not re-analyzed; a duplicate job is a no-op
	if blueprint.AnalysisStatus == string(domain.BlueprintAnalysisCompleted) {
		h.logger.Info("Blueprint already analyzed, skipping", "blueprint_id", p.BlueprintID)
		return nil
	}

	// 2. Mark as running
	err = h.queries.UpdateBlueprintAnalysisStatus(ctx, repository.UpdateBlueprintAnalysisStatusParams{
		ID:             p.BlueprintID,
		AnalysisStatus: string(domain.BlueprintAnalysisRunning),
	})
	if err != nil {
		return fmt.Errorf("update analysis status to running: %w", err)
	}

	// 3. Analyze
	if err := h.analyzeBlueprint(ctx, blueprint, project, p.UserID); err != nil {
		if worker.IsPermanent(err) {
			h.markFailed(ctx, p.BlueprintID)
			metrics.BlueprintsAnalyzed.WithLabelValues("failed").Inc()
		}
		return err
	}

	metrics.BlueprintsAnalyzed.WithLabelValues("completed").Inc()
	h.logger.Info("Blueprint analysis completed", "blueprint_id", p.BlueprintID)
	return nil
}

// analyzeBlueprint downloads the drawing, runs the AI analysis, and stores
// the result.
func (h *AnalyzeBlueprintHandler) analyzeBlueprint(
	ctx context.Context,
	blueprint repository.Blueprint,
	project repository.Project,
	userID uuid.UUID,
) error {
	// Download drawing from storage
	reader, objInfo, err := h.storage.Get(ctx, blueprint.StorageKey)
	if err != nil {
		return fmt.Errorf("download blueprint from storage: %w", err)
	}
	defer reader.Close()

	imageData, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read blueprint data: %w", err)
	}

	h.logger.Info("Downloaded blueprint from storage",
		"blueprint_id", blueprint.ID,
		"size_bytes", len(imageData),
		"content_type", objInfo.ContentType,
	)

	// Call AI provider
	result, err := h.aiProvider.AnalyzeBlueprint(ctx, ai.AnalyzeBlueprintParams{
		ImageData:   imageData,
		ContentType: objInfo.ContentType,
		PermitType:  project.PermitType,
		Notes:       project.Description,
		BlueprintID: blueprint.ID,
		UserID:      userID,
	})
	if err != nil {
		// Retryable errors like rate limits should propagate up
		if ai.IsRetryable(err) {
			return fmt.Errorf("ai analysis (retryable): %w", err)
		}
		// Invalid image or content policy violations are permanent
		if errors.Is(err, ai.EAIInvalidImage) || errors.Is(err, ai.EAIContentPolicy) {
			return worker.NewPermanentError(fmt.Errorf("ai analysis (permanent): %w", err))
		}
		return fmt.Errorf("ai analysis: %w", err)
	}

	h.logger.Info("AI analysis completed",
		"blueprint_id", blueprint.ID,
		"findings", len(result.Findings),
		"input_tokens", result.Usage.InputTokens,
		"output_tokens", result.Usage.OutputTokens,
		"cost_cents", result.Usage.CostCents,
	)

	// Convert to the stored analysis shape
	analysis := domain.BlueprintAnalysis{
		Summary:     result.Summary,
		DrawingType: result.DrawingType,
		Findings:    make([]domain.BlueprintFinding, 0, len(result.Findings)),
		AnalyzedAt:  time.Now().UTC(),
	}
	for _, f := range result.Findings {
		analysis.Findings = append(analysis.Findings, domain.BlueprintFinding{
			Title:       f.Title,
			Description: f.Description,
			Severity:    domain.FindingSeverity(f.Severity),
			Reference:   f.Reference,
		})
	}

	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return worker.NewPermanentError(fmt.Errorf("marshal analysis: %w", err))
	}

	err = h.queries.UpdateBlueprintAnalysis(ctx, repository.UpdateBlueprintAnalysisParams{
		ID:             blueprint.ID,
		AnalysisStatus: string(domain.BlueprintAnalysisCompleted),
		Analysis:       pqtype.NullRawMessage{RawMessage: analysisJSON, Valid: true},
	})
	if err != nil {
		return fmt.Errorf("store analysis: %w", err)
	}

	return nil
}

// markFailed updates the blueprint's analysis status to failed.
func (h *AnalyzeBlueprintHandler) markFailed(ctx context.Context, blueprintID uuid.UUID) {
	err := h.queries.UpdateBlueprintAnalysisStatus(ctx, repository.UpdateBlueprintAnalysisStatusParams{
		ID:             blueprintID,
		AnalysisStatus: string(domain.BlueprintAnalysisFailed),
	})
	if err != nil {
		h.logger.Error("Failed to mark blueprint analysis as failed",
			"blueprint_id", blueprintID,
			"error", err,
		)
	}
}
