package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/adeia-app/adeia/internal/ai"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/repository"
)

// LetterService defines the interface for the authority letter tool.
type LetterService interface {
	// Draft consumes one quota use and drafts a transmittal letter for the
	// project. Drafts are returned to the caller, not persisted.
	// Returns domain.EPAYMENT if the monthly quota is exhausted.
	Draft(ctx context.Context, params domain.DraftLetterParams) (*domain.LetterDraft, error)
}

// letterService implements LetterService.
type letterService struct {
	queries  *repository.Queries
	quota    QuotaService
	provider ai.AIProvider
	logger   *slog.Logger
}

// NewLetterService creates a new LetterService.
func NewLetterService(queries *repository.Queries, quota QuotaService, provider ai.AIProvider, logger *slog.Logger) LetterService {
	return &letterService{
		queries:  queries,
		quota:    quota,
		provider: provider,
		logger:   logger,
	}
}

// Draft drafts a transmittal letter to the competent building authority.
func (s *letterService) Draft(ctx context.Context, params domain.DraftLetterParams) (*domain.LetterDraft, error) {
	const op = "LetterService.Draft"

	purpose := strings.TrimSpace(params.Purpose)
	if purpose == "" {
		return nil, domain.Invalid(op, "Letter purpose is required")
	}

	project, err := s.queries.GetProject(ctx, params.ProjectID)
	if err != nil {
		return nil, domain.NotFound(op, "project", params.ProjectID.String())
	}
	if project.UserID != params.UserID {
		return nil, domain.NotFound(op, "project", params.ProjectID.String())
	}

	user, err := s.queries.GetUserByID(ctx, params.UserID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to retrieve user")
	}

	decision, err := s.quota.CheckAndConsume(ctx, params.UserID, domain.ToolLetterDraft)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, domain.QuotaExhausted(op)
	}

	authority := project.Authority
	if authority == "" {
		authority = "Υ.ΔΟΜ. " + project.City
	}

	result, err := s.provider.DraftLetter(ctx, ai.LetterParams{
		Purpose:        purpose,
		Authority:      authority,
		ProjectTitle:   project.Title,
		ProjectAddress: project.Address + ", " + project.City,
		PermitType:     project.PermitType,
		EngineerName:   user.Name,
		RegistryNumber: domain.NullStringValue(user.RegistryNumber),
		ProjectID:      params.ProjectID,
		UserID:         params.UserID,
	})
	if err != nil {
		s.logger.Error("letter provider call failed", "error", err, "user_id", params.UserID)
		return nil, domain.Internal(err, op, "Failed to draft letter")
	}

	s.logger.Info("letter drafted",
		"project_id", params.ProjectID,
		"user_id", params.UserID,
		"uses_this_month", decision.NewCount,
	)

	return &domain.LetterDraft{
		Recipient: authority,
		Subject:   result.Subject,
		Body:      result.Body,
		DraftedAt: time.Now(),
	}, nil
}
