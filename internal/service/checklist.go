package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/adeia-app/adeia/internal/ai"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/repository"
	"github.com/google/uuid"
)

// ChecklistService defines the interface for the filing checklist tool.
type ChecklistService interface {
	// Generate consumes one quota use and generates a fresh checklist for
	// the project, replacing any existing one.
	// Returns domain.EPAYMENT if the monthly quota is exhausted.
	Generate(ctx context.Context, projectID, userID uuid.UUID) (*domain.Checklist, error)

	// Get returns the project's current checklist without consuming quota.
	// Returns domain.ENOTFOUND if no checklist has been generated yet.
	Get(ctx context.Context, projectID, userID uuid.UUID) (*domain.Checklist, error)

	// ToggleItem flips the done state of one checklist item by index.
	// Toggling never consumes quota.
	ToggleItem(ctx context.Context, projectID, userID uuid.UUID, itemIndex int) (*domain.Checklist, error)
}

// checklistService implements ChecklistService.
type checklistService struct {
	queries  *repository.Queries
	quota    QuotaService
	provider ai.AIProvider
	logger   *slog.Logger
}

// NewChecklistService creates a new ChecklistService.
func NewChecklistService(queries *repository.Queries, quota QuotaService, provider ai.AIProvider, logger *slog.Logger) ChecklistService {
	return &checklistService{
		queries:  queries,
		quota:    quota,
		provider: provider,
		logger:   logger,
	}
}

// Generate generates a fresh checklist for the project.
//
// Regeneration replaces the stored checklist, including completion marks.
// The handler warns the user before calling this on a project that already
// has one.
func (s *checklistService) Generate(ctx context.Context, projectID, userID uuid.UUID) (*domain.Checklist, error) {
	const op = "ChecklistService.Generate"

	project, err := s.getOwnedProjectRow(ctx, op, projectID, userID)
	if err != nil {
		return nil, err
	}

	decision, err := s.quota.CheckAndConsume(ctx, userID, domain.ToolChecklist)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, domain.QuotaExhausted(op)
	}

	result, err := s.provider.GenerateChecklist(ctx, ai.ChecklistParams{
		PermitType:         project.PermitType,
		ProjectDescription: project.Description,
		ProjectID:          projectID,
		UserID:             userID,
	})
	if err != nil {
		s.logger.Error("checklist provider call failed", "error", err, "user_id", userID)
		return nil, domain.Internal(err, op, "Failed to generate checklist")
	}

	items := make([]domain.ChecklistItem, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, domain.ChecklistItem{
			Title:       item.Title,
			Description: item.Description,
			Required:    item.Required,
			Reference:   item.Reference,
		})
	}

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to encode checklist items")
	}

	repoChecklist, err := s.queries.UpsertChecklist(ctx, repository.UpsertChecklistParams{
		ProjectID:  projectID,
		PermitType: project.PermitType,
		Items:      itemsJSON,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to store checklist")
	}

	s.logger.Info("checklist generated",
		"project_id", projectID,
		"user_id", userID,
		"items", len(items),
		"uses_this_month", decision.NewCount,
	)

	return repoChecklistToDomain(repoChecklist)
}

// Get returns the project's current checklist.
func (s *checklistService) Get(ctx context.Context, projectID, userID uuid.UUID) (*domain.Checklist, error) {
	const op = "ChecklistService.Get"

	if _, err := s.getOwnedProjectRow(ctx, op, projectID, userID); err != nil {
		return nil, err
	}

	repoChecklist, err := s.queries.GetChecklistByProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "checklist", projectID.String())
		}
		return nil, domain.Internal(err, op, "Failed to retrieve checklist")
	}

	return repoChecklistToDomain(repoChecklist)
}

// ToggleItem flips the done state of one checklist item.
func (s *checklistService) ToggleItem(ctx context.Context, projectID, userID uuid.UUID, itemIndex int) (*domain.Checklist, error) {
	const op = "ChecklistService.ToggleItem"

	checklist, err := s.Get(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}

	if itemIndex < 0 || itemIndex >= len(checklist.Items) {
		return nil, domain.Invalid(op, "Checklist item index out of range")
	}
	checklist.Items[itemIndex].Done = !checklist.Items[itemIndex].Done

	itemsJSON, err := json.Marshal(checklist.Items)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to encode checklist items")
	}

	err = s.queries.UpdateChecklistItems(ctx, repository.UpdateChecklistItemsParams{
		ProjectID: projectID,
		Items:     itemsJSON,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to update checklist")
	}

	return checklist, nil
}

// getOwnedProjectRow loads a project row and verifies ownership.
func (s *checklistService) getOwnedProjectRow(ctx context.Context, op string, projectID, userID uuid.UUID) (repository.Project, error) {
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

// repoChecklistToDomain converts a repository Checklist to a domain Checklist.
func repoChecklistToDomain(rc repository.Checklist) (*domain.Checklist, error) {
	var items []domain.ChecklistItem
	if err := json.Unmarshal(rc.Items, &items); err != nil {
		return nil, domain.Internal(err, "ChecklistService.decode", "Stored checklist is malformed")
	}
	return &domain.Checklist{
		ID:          rc.ID,
		ProjectID:   rc.ProjectID,
		PermitType:  domain.PermitType(rc.PermitType),
		Items:       items,
		GeneratedAt: rc.GeneratedAt,
		UpdatedAt:   rc.UpdatedAt,
	}, nil
}
