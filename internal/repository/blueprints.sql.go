package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const blueprintColumns = `id, project_id, storage_key, thumbnail_key, original_filename,
	content_type, size_bytes, width, height, analysis_status, analysis, created_at, updated_at`

func scanBlueprint(row *sql.Row) (Blueprint, error) {
	var b Blueprint
	err := row.Scan(
		&b.ID, &b.ProjectID, &b.StorageKey, &b.ThumbnailKey, &b.OriginalFilename,
		&b.ContentType, &b.SizeBytes, &b.Width, &b.Height, &b.AnalysisStatus, &b.Analysis,
		&b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

type CreateBlueprintParams struct {
	ProjectID        uuid.UUID
	StorageKey       string
	ThumbnailKey     string
	OriginalFilename string
	ContentType      string
	SizeBytes        int64
	Width            int32
	Height           int32
}

const createBlueprint = `-- name: CreateBlueprint :one
INSERT INTO blueprints (project_id, storage_key, thumbnail_key, original_filename,
	content_type, size_bytes, width, height)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + blueprintColumns

func (q *Queries) CreateBlueprint(ctx context.Context, arg CreateBlueprintParams) (Blueprint, error) {
	row := q.db.QueryRowContext(ctx, createBlueprint,
		arg.ProjectID, arg.StorageKey, arg.ThumbnailKey, arg.OriginalFilename,
		arg.ContentType, arg.SizeBytes, arg.Width, arg.Height)
	return scanBlueprint(row)
}

const getBlueprint = `-- name: GetBlueprint :one
SELECT ` + blueprintColumns + ` FROM blueprints WHERE id = $1`

func (q *Queries) GetBlueprint(ctx context.Context, id uuid.UUID) (Blueprint, error) {
	return scanBlueprint(q.db.QueryRowContext(ctx, getBlueprint, id))
}

const listBlueprintsByProject = `-- name: ListBlueprintsByProject :many
SELECT ` + blueprintColumns + ` FROM blueprints WHERE project_id = $1 ORDER BY created_at`

func (q *Queries) ListBlueprintsByProject(ctx context.Context, projectID uuid.UUID) ([]Blueprint, error) {
	rows, err := q.db.QueryContext(ctx, listBlueprintsByProject, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var blueprints []Blueprint
	for rows.Next() {
		var b Blueprint
		if err := rows.Scan(
			&b.ID, &b.ProjectID, &b.StorageKey, &b.ThumbnailKey, &b.OriginalFilename,
			&b.ContentType, &b.SizeBytes, &b.Width, &b.Height, &b.AnalysisStatus, &b.Analysis,
			&b.CreatedAt, &b.UpdatedAt,
		); err != nil {
			return nil, err
		}
		blueprints = append(blueprints, b)
	}
	return blueprints, rows.Err()
}

type UpdateBlueprintAnalysisStatusParams struct {
	ID             uuid.UUID
	AnalysisStatus string
}

const updateBlueprintAnalysisStatus = `-- name: UpdateBlueprintAnalysisStatus :exec
UPDATE blueprints SET analysis_status = $2, updated_at = now() WHERE id = $1`

func (q *Queries) UpdateBlueprintAnalysisStatus(ctx context.Context, arg UpdateBlueprintAnalysisStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateBlueprintAnalysisStatus, arg.ID, arg.AnalysisStatus)
	return err
}

type UpdateBlueprintAnalysisParams struct {
	ID             uuid.UUID
	AnalysisStatus string
	Analysis       pqtype.NullRawMessage
}

const updateBlueprintAnalysis = `-- name: UpdateBlueprintAnalysis :exec
UPDATE blueprints SET analysis_status = $2, analysis = $3, updated_at = now() WHERE id = $1`

func (q *Queries) UpdateBlueprintAnalysis(ctx context.Context, arg UpdateBlueprintAnalysisParams) error {
	_, err := q.db.ExecContext(ctx, updateBlueprintAnalysis, arg.ID, arg.AnalysisStatus, arg.Analysis)
	return err
}

type UpdateBlueprintThumbnailParams struct {
	ID           uuid.UUID
	ThumbnailKey string
	Width        int32
	Height       int32
}

const updateBlueprintThumbnail = `-- name: UpdateBlueprintThumbnail :exec
UPDATE blueprints SET thumbnail_key = $2, width = $3, height = $4, updated_at = now() WHERE id = $1`

func (q *Queries) UpdateBlueprintThumbnail(ctx context.Context, arg UpdateBlueprintThumbnailParams) error {
	_, err := q.db.ExecContext(ctx, updateBlueprintThumbnail, arg.ID, arg.ThumbnailKey, arg.Width, arg.Height)
	return err
}

const deleteBlueprint = `-- name: DeleteBlueprint :exec
DELETE FROM blueprints WHERE id = $1`

func (q *Queries) DeleteBlueprint(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteBlueprint, id)
	return err
}
