package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/metrics"
	"github.com/adeia-app/adeia/internal/repository"
	"github.com/google/uuid"
)

// ProjectService defines the interface for permit project operations.
type ProjectService interface {
	// Create creates a new permit project for the user.
	Create(ctx context.Context, params domain.CreateProjectParams) (*domain.Project, error)

	// GetByID retrieves a project by ID, verifying user ownership.
	GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Project, error)

	// List retrieves all projects for a user, newest first.
	List(ctx context.Context, userID uuid.UUID) ([]domain.Project, error)

	// Update updates an existing project.
	Update(ctx context.Context, params domain.UpdateProjectParams) error

	// Delete deletes a project and its attached blueprints, checklists and reports.
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// projectService implements ProjectService.
type projectService struct {
	queries *repository.Queries
	logger  *slog.Logger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(queries *repository.Queries, logger *slog.Logger) ProjectService {
	return &projectService{
		queries: queries,
		logger:  logger,
	}
}

// Create creates a new permit project for the user.
func (s *projectService) Create(ctx context.Context, params domain.CreateProjectParams) (*domain.Project, error) {
	const op = "ProjectService.Create"

	if err := validateProjectParams(params.Title, params.PermitType, params.Address, params.City); err != nil {
		return nil, err
	}

	repoProject, err := s.queries.CreateProject(ctx, repository.CreateProjectParams{
		UserID:      params.UserID,
		Title:       strings.TrimSpace(params.Title),
		PermitType:  string(params.PermitType),
		Address:     strings.TrimSpace(params.Address),
		City:        strings.TrimSpace(params.City),
		PostalCode:  strings.TrimSpace(params.PostalCode),
		Authority:   strings.TrimSpace(params.Authority),
		Description: strings.TrimSpace(params.Description),
	})
	if err != nil {
		s.logger.Error("failed to create project", "error", err, "op", op)
		return nil, domain.Internal(err, op, "Failed to create project")
	}

	metrics.ProjectsCreated.Inc()

	project := repoProjectToDomain(repoProject)
	s.logger.Info("project created",
		"project_id", project.ID,
		"user_id", project.UserID,
		"permit_type", project.PermitType,
	)

	return &project, nil
}

// GetByID retrieves a project by ID, verifying user ownership.
func (s *projectService) GetByID(ctx context.Context, id, userID uuid.UUID) (*domain.Project, error) {
	const op = "ProjectService.GetByID"

	repoProject, err := s.getOwnedProject(ctx, op, id, userID)
	if err != nil {
		return nil, err
	}

	project := repoProjectToDomain(repoProject)

	counts, err := s.queries.GetProjectCounts(ctx, id)
	if err != nil {
		// Counts are decoration; the project itself loaded fine.
		s.logger.Warn("failed to load project counts", "error", err, "project_id", id)
	} else {
		project.BlueprintCount = int(counts.BlueprintCount)
		project.ReportCount = int(counts.ReportCount)
	}

	return &project, nil
}

// List retrieves all projects for a user, newest first.
func (s *projectService) List(ctx context.Context, userID uuid.UUID) ([]domain.Project, error) {
	const op = "ProjectService.List"

	repoProjects, err := s.queries.ListProjectsByUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list projects", "error", err, "op", op, "user_id", userID)
		return nil, domain.Internal(err, op, "Failed to list projects")
	}

	projects := make([]domain.Project, len(repoProjects))
	for i, rp := range repoProjects {
		projects[i] = repoProjectToDomain(rp)
	}

	return projects, nil
}

// Update updates an existing project.
func (s *projectService) Update(ctx context.Context, params domain.UpdateProjectParams) error {
	const op = "ProjectService.Update"

	if _, err := s.getOwnedProject(ctx, op, params.ID, params.UserID); err != nil {
		return err
	}

	if err := validateProjectParams(params.Title, params.PermitType, params.Address, params.City); err != nil {
		return err
	}
	if !params.Status.IsValid() {
		return domain.Invalid(op, "Invalid project status")
	}

	_, err := s.queries.UpdateProject(ctx, repository.UpdateProjectParams{
		ID:          params.ID,
		Title:       strings.TrimSpace(params.Title),
		PermitType:  string(params.PermitType),
		Status:      string(params.Status),
		Address:     strings.TrimSpace(params.Address),
		City:        strings.TrimSpace(params.City),
		PostalCode:  strings.TrimSpace(params.PostalCode),
		Authority:   strings.TrimSpace(params.Authority),
		Description: strings.TrimSpace(params.Description),
	})
	if err != nil {
		s.logger.Error("failed to update project", "error", err, "op", op, "project_id", params.ID)
		return domain.Internal(err, op, "Failed to update project")
	}

	s.logger.Info("project updated", "project_id", params.ID)
	return nil
}

// Delete deletes a project. Attached blueprints, checklists, questions and
// reports cascade at the database level; stored files are cleaned up by the
// blueprint service before the handler calls Delete.
func (s *projectService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	const op = "ProjectService.Delete"

	if _, err := s.getOwnedProject(ctx, op, id, userID); err != nil {
		return err
	}

	if err := s.queries.DeleteProject(ctx, id); err != nil {
		s.logger.Error("failed to delete project", "error", err, "op", op, "project_id", id)
		return domain.Internal(err, op, "Failed to delete project")
	}

	s.logger.Info("project deleted", "project_id", id)
	return nil
}

// getOwnedProject loads a project and verifies it belongs to userID.
// A project owned by someone else reports NotFound, not Forbidden, so the
// API does not leak which IDs exist.
func (s *projectService) getOwnedProject(ctx context.Context, op string, id, userID uuid.UUID) (repository.Project, error) {
	repoProject, err := s.queries.GetProject(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.Project{}, domain.NotFound(op, "project", id.String())
		}
		s.logger.Error("failed to get project", "error", err, "op", op, "project_id", id)
		return repository.Project{}, domain.Internal(err, op, "Failed to retrieve project")
	}
	if repoProject.UserID != userID {
		return repository.Project{}, domain.NotFound(op, "project", id.String())
	}
	return repoProject, nil
}

// validateProjectParams validates required project fields.
func validateProjectParams(title string, permitType domain.PermitType, address, city string) error {
	const op = "ProjectService.validateProjectParams"

	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Invalid(op, "Project title is required")
	}
	if len(title) > 200 {
		return domain.Invalid(op, "Project title must be 200 characters or less")
	}

	if !permitType.IsValid() {
		return domain.Invalid(op, "Invalid permit type")
	}
	if strings.TrimSpace(address) == "" {
		return domain.Invalid(op, "Property address is required")
	}
	if strings.TrimSpace(city) == "" {
		return domain.Invalid(op, "Municipality is required")
	}

	return nil
}

// repoProjectToDomain converts a repository Project to a domain Project.
func repoProjectToDomain(rp repository.Project) domain.Project {
	return domain.Project{
		ID:          rp.ID,
		UserID:      rp.UserID,
		Title:       rp.Title,
		PermitType:  domain.PermitType(rp.PermitType),
		Status:      domain.ProjectStatus(rp.Status),
		Address:     rp.Address,
		City:        rp.City,
		PostalCode:  rp.PostalCode,
		Authority:   rp.Authority,
		Description: rp.Description,
		CreatedAt:   rp.CreatedAt,
		UpdatedAt:   rp.UpdatedAt,
	}
}
