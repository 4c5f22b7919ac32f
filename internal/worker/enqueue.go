package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adeia-app/adeia/internal/repository"
	"github.com/google/uuid"
)

// Job type constants - these must match the JobHandler.Type() values
const (
	JobTypeAnalyzeBlueprint = "analyze_blueprint"
	JobTypeGenerateReport   = "generate_report"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// AnalyzeBlueprintPayload is the payload for blueprint analysis jobs.
type AnalyzeBlueprintPayload struct {
	BlueprintID uuid.UUID `json:"blueprint_id"`
	UserID      uuid.UUID `json:"user_id"`
}

// GenerateReportPayload is the payload for report generation jobs.
// One job produces both the PDF and DOCX renditions of the report.
type GenerateReportPayload struct {
	ProjectID uuid.UUID `json:"project_id"`
	UserID    uuid.UUID `json:"user_id"`
}

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of retry attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = time.Now().Add(delay)
	}
}

// EnqueueJob is a generic helper for enqueuing jobs with custom options.
func EnqueueJob(
	ctx context.Context,
	queries *repository.Queries,
	jobType string,
	payload interface{},
	opts ...EnqueueOption,
) (repository.Job, error) {
	// Marshal the payload to JSON
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	// Default parameters
	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}

	// Apply options
	for _, opt := range opts {
		opt(&params)
	}

	// Enqueue the job
	job, err := queries.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}

	return job, nil
}

// EnqueueAnalyzeBlueprint enqueues a job to analyze an uploaded blueprint.
// This is typically called right after the upload is stored.
func EnqueueAnalyzeBlueprint(
	ctx context.Context,
	queries *repository.Queries,
	blueprintID uuid.UUID,
	userID uuid.UUID,
	opts ...EnqueueOption,
) (repository.Job, error) {
	payload := AnalyzeBlueprintPayload{
		BlueprintID: blueprintID,
		UserID:      userID,
	}

	return EnqueueJob(ctx, queries, JobTypeAnalyzeBlueprint, payload, opts...)
}

// EnqueueGenerateReport enqueues a job to generate a technical report for a
// project.
func EnqueueGenerateReport(
	ctx context.Context,
	queries *repository.Queries,
	projectID uuid.UUID,
	userID uuid.UUID,
	opts ...EnqueueOption,
) (repository.Job, error) {
	payload := GenerateReportPayload{
		ProjectID: projectID,
		UserID:    userID,
	}

	return EnqueueJob(ctx, queries, JobTypeGenerateReport, payload, opts...)
}
