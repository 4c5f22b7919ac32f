// Package service contains business logic for the Adeia application.
//
// This file implements the blueprint service for managing uploaded permit
// drawings and their AI analysis lifecycle.
package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
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

// BlueprintService defines the interface for blueprint-related operations.
type BlueprintService interface {
	// Upload stores a drawing, creates its database record, consumes one
	// quota use, and enqueues AI analysis.
	// Returns domain.EINVALID for validation errors.
	// Returns domain.ENOTFOUND if project doesn't exist or isn't the user's.
	// Returns domain.EPAYMENT if the monthly quota is exhausted.
	Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader, projectID, userID uuid.UUID) (*domain.Blueprint, error)

	// GetByID retrieves a blueprint by ID with authorization check.
	GetByID(ctx context.Context, blueprintID, userID uuid.UUID) (*domain.Blueprint, error)

	// ListByProject retrieves all blueprints for a project, oldest first.
	ListByProject(ctx context.Context, projectID, userID uuid.UUID) ([]domain.Blueprint, error)

	// Delete removes a blueprint from storage and database.
	Delete(ctx context.Context, blueprintID, userID uuid.UUID) error

	// GetThumbnailURL returns a presigned/public URL for the thumbnail.
	GetThumbnailURL(ctx context.Context, blueprintID, userID uuid.UUID) (string, error)

	// GetOriginalURL returns a presigned/public URL for the original drawing.
	GetOriginalURL(ctx context.Context, blueprintID, userID uuid.UUID) (string, error)
}

// =============================================================================
// Implementation
// =============================================================================

// blueprintService implements the BlueprintService interface.
type blueprintService struct {
	queries            *repository.Queries
	storage            storage.Storage
	thumbnailProcessor ThumbnailProcessor
	quota              QuotaService
	logger             *slog.Logger
}

// NewBlueprintService creates a new BlueprintService.
func NewBlueprintService(
	queries *repository.Queries,
	storage storage.Storage,
	thumbnailProcessor ThumbnailProcessor,
	quota QuotaService,
	logger *slog.Logger,
) BlueprintService {
	return &blueprintService{
		queries:            queries,
		storage:            storage,
		thumbnailProcessor: thumbnailProcessor,
		quota:              quota,
		logger:             logger,
	}
}

// =============================================================================
// Upload
// =============================================================================

// Upload stores a drawing and queues its analysis.
//
// The quota use is consumed after validation but before storage writes, so
// a rejected file never costs a use and a consumed use always corresponds
// to an accepted drawing entering the analysis pipeline.
func (s *blueprintService) Upload(ctx context.Context, file multipart.File, header *multipart.FileHeader, projectID, userID uuid.UUID) (*domain.Blueprint, error) {
	const op = "blueprint.upload"

	// Verify project exists and user owns it
	project, err := s.queries.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "project", projectID.String())
		}
		return nil, domain.Internal(err, op, "failed to fetch project")
	}
	if project.UserID != userID {
		return nil, domain.NotFound(op, "project", projectID.String())
	}

	// Validate file size
	if header.Size > domain.MaxBlueprintSize {
		return nil, domain.Invalid(op, fmt.Sprintf("File exceeds the %d MB limit", domain.MaxBlueprintSize/(1024*1024)))
	}

	// Detect content type from file header (read first 512 bytes)
	headerBytes := make([]byte, 512)
	n, err := file.Read(headerBytes)
	if err != nil && err != io.EOF {
		return nil, domain.Internal(err, op, "failed to read file header")
	}
	contentType := http.DetectContentType(headerBytes[:n])

	if _, ok := domain.SupportedBlueprintTypes[contentType]; !ok {
		return nil, domain.Invalid(op, fmt.Sprintf("Unsupported file type: %s. Only JPEG, PNG and WebP scans are supported.", contentType))
	}

	// Reset file pointer to beginning after reading header
	if seeker, ok := file.(io.Seeker); ok {
		if _, err := seeker.Seek(0, 0); err != nil {
			return nil, domain.Internal(err, op, "failed to reset file pointer")
		}
	}

	// Read entire file into memory for processing
	fileData, err := io.ReadAll(file)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to read file data")
	}

	// Generate thumbnail; this also validates the file decodes as an image
	thumbnailBytes, width, height, err := s.thumbnailProcessor.GenerateThumbnail(
		bytes.NewReader(fileData),
		domain.ThumbnailMaxWidth,
		domain.ThumbnailMaxHeight,
	)
	if err != nil {
		return nil, domain.Invalid(op, "File could not be decoded as an image")
	}

	// Input is valid; meter the use
	decision, err := s.quota.CheckAndConsume(ctx, userID, domain.ToolBlueprint)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, domain.QuotaExhausted(op)
	}

	// Generate storage keys
	blueprintID := uuid.New()
	storageKey := storage.BlueprintKey(projectID, blueprintID, header.Filename)
	thumbnailKey := storage.ThumbnailKey(projectID, blueprintID)

	// Upload original to storage
	if err := s.storage.Put(ctx, storageKey, bytes.NewReader(fileData), storage.PutOptions{
		ContentType: contentType,
		MaxSize:     domain.MaxBlueprintSize,
		Overwrite:   false,
		Public:      false,
	}); err != nil {
		return nil, domain.Internal(err, op, "failed to upload drawing")
	}

	// Upload thumbnail to storage
	if err := s.storage.Put(ctx, thumbnailKey, bytes.NewReader(thumbnailBytes), storage.PutOptions{
		ContentType: "image/jpeg",
		MaxSize:     0, // No limit for thumbnails
		Overwrite:   false,
		Public:      false,
	}); err != nil {
		// Clean up original on thumbnail upload failure
		_ = s.storage.Delete(ctx, storageKey)
		return nil, domain.Internal(err, op, "failed to upload thumbnail")
	}

	// Create database record
	dbBlueprint, err := s.queries.CreateBlueprint(ctx, repository.CreateBlueprintParams{
		ProjectID:        projectID,
		StorageKey:       storageKey,
		ThumbnailKey:     thumbnailKey,
		OriginalFilename: header.Filename,
		ContentType:      contentType,
		SizeBytes:        header.Size,
		Width:            int32(width),
		Height:           int32(height),
	})
	if err != nil {
		// Clean up storage on database error
		_ = s.storage.Delete(ctx, storageKey)
		_ = s.storage.Delete(ctx, thumbnailKey)
		return nil, domain.Internal(err, op, "failed to create blueprint record")
	}

	// Queue analysis. A failed enqueue leaves the blueprint pending; the
	// user can retry analysis without paying another use.
	if _, err := worker.EnqueueAnalyzeBlueprint(ctx, s.queries, dbBlueprint.ID, userID); err != nil {
		s.logger.Error("failed to enqueue blueprint analysis", "error", err, "blueprint_id", dbBlueprint.ID)
	}

	s.logger.Info("blueprint uploaded",
		"blueprint_id", dbBlueprint.ID,
		"project_id", projectID,
		"user_id", userID,
		"size_bytes", header.Size,
		"uses_this_month", decision.NewCount,
	)

	return s.toDomain(dbBlueprint), nil
}

// =============================================================================
// GetByID
// =============================================================================

// GetByID retrieves a blueprint by ID with authorization check.
func (s *blueprintService) GetByID(ctx context.Context, blueprintID, userID uuid.UUID) (*domain.Blueprint, error) {
	const op = "blueprint.get"

	dbBlueprint, err := s.queries.GetBlueprint(ctx, blueprintID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "blueprint", blueprintID.String())
		}
		return nil, domain.Internal(err, op, "failed to fetch blueprint")
	}

	// Authorization runs through the parent project
	project, err := s.queries.GetProject(ctx, dbBlueprint.ProjectID)
	if err != nil || project.UserID != userID {
		return nil, domain.NotFound(op, "blueprint", blueprintID.String())
	}

	return s.toDomain(dbBlueprint), nil
}

// =============================================================================
// ListByProject
// =============================================================================

// ListByProject retrieves all blueprints for a project.
func (s *blueprintService) ListByProject(ctx context.Context, projectID, userID uuid.UUID) ([]domain.Blueprint, error) {
	const op = "blueprint.list"

	project, err := s.queries.GetProject(ctx, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "project", projectID.String())
		}
		return nil, domain.Internal(err, op, "failed to fetch project")
	}
	if project.UserID != userID {
		return nil, domain.NotFound(op, "project", projectID.String())
	}

	dbBlueprints, err := s.queries.ListBlueprintsByProject(ctx, projectID)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to fetch blueprints")
	}

	blueprints := make([]domain.Blueprint, len(dbBlueprints))
	for i, db := range dbBlueprints {
		blueprints[i] = *s.toDomain(db)
	}
	return blueprints, nil
}

// =============================================================================
// Delete
// =============================================================================

// Delete removes a blueprint from storage and database.
func (s *blueprintService) Delete(ctx context.Context, blueprintID, userID uuid.UUID) error {
	const op = "blueprint.delete"

	blueprint, err := s.GetByID(ctx, blueprintID, userID)
	if err != nil {
		return err
	}

	// Delete from storage (both original and thumbnail)
	// Continue even if storage deletion fails - we still want to remove DB record
	if err := s.storage.Delete(ctx, blueprint.StorageKey); err != nil {
		s.logger.Error("failed to delete drawing from storage", "error", err, "key", blueprint.StorageKey)
	}
	if err := s.storage.Delete(ctx, blueprint.ThumbnailKey); err != nil {
		s.logger.Error("failed to delete thumbnail from storage", "error", err, "key", blueprint.ThumbnailKey)
	}

	if err := s.queries.DeleteBlueprint(ctx, blueprintID); err != nil {
		return domain.Internal(err, op, "failed to delete blueprint record")
	}

	return nil
}

// =============================================================================
// URL Helpers
// =============================================================================

// GetThumbnailURL returns a presigned/public URL for the thumbnail.
func (s *blueprintService) GetThumbnailURL(ctx context.Context, blueprintID, userID uuid.UUID) (string, error) {
	const op = "blueprint.thumbnail_url"

	blueprint, err := s.GetByID(ctx, blueprintID, userID)
	if err != nil {
		return "", err
	}

	url, err := s.storage.URL(ctx, blueprint.ThumbnailKey, 1*time.Hour)
	if err != nil {
		return "", domain.Internal(err, op, "failed to generate thumbnail URL")
	}
	return url, nil
}

// GetOriginalURL returns a presigned/public URL for the original drawing.
func (s *blueprintService) GetOriginalURL(ctx context.Context, blueprintID, userID uuid.UUID) (string, error) {
	const op = "blueprint.original_url"

	blueprint, err := s.GetByID(ctx, blueprintID, userID)
	if err != nil {
		return "", err
	}

	url, err := s.storage.URL(ctx, blueprint.StorageKey, 1*time.Hour)
	if err != nil {
		return "", domain.Internal(err, op, "failed to generate drawing URL")
	}
	return url, nil
}

// =============================================================================
// Helper Functions
// =============================================================================

// toDomain converts a repository Blueprint to a domain Blueprint.
func (s *blueprintService) toDomain(db repository.Blueprint) *domain.Blueprint {
	blueprint := &domain.Blueprint{
		ID:               db.ID,
		ProjectID:        db.ProjectID,
		StorageKey:       db.StorageKey,
		ThumbnailKey:     db.ThumbnailKey,
		OriginalFilename: db.OriginalFilename,
		ContentType:      db.ContentType,
		SizeBytes:        db.SizeBytes,
		Width:            db.Width,
		Height:           db.Height,
		AnalysisStatus:   domain.BlueprintAnalysisStatus(db.AnalysisStatus),
		CreatedAt:        db.CreatedAt,
		UpdatedAt:        db.UpdatedAt,
		// ThumbnailURL and OriginalURL are populated on demand by the handler
	}

	if db.Analysis.Valid {
		var analysis domain.BlueprintAnalysis
		if err := json.Unmarshal(db.Analysis.RawMessage, &analysis); err != nil {
			s.logger.Warn("stored blueprint analysis is malformed", "blueprint_id", db.ID, "error", err)
		} else {
			blueprint.Analysis = &analysis
		}
	}

	return blueprint
}
