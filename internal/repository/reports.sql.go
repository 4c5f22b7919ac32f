package repository

import (
	"context"

	"github.com/google/uuid"
)

type CreateReportParams struct {
	ProjectID      uuid.UUID
	UserID         uuid.UUID
	PDFStorageKey  string
	DOCXStorageKey string
	FindingCount   int32
}

const createReport = `-- name: CreateReport :one
INSERT INTO reports (project_id, user_id, pdf_storage_key, docx_storage_key, finding_count)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, project_id, user_id, pdf_storage_key, docx_storage_key, finding_count, generated_at`

func (q *Queries) CreateReport(ctx context.Context, arg CreateReportParams) (Report, error) {
	var r Report
	err := q.db.QueryRowContext(ctx, createReport,
		arg.ProjectID, arg.UserID, arg.PDFStorageKey, arg.DOCXStorageKey, arg.FindingCount).
		Scan(&r.ID, &r.ProjectID, &r.UserID, &r.PDFStorageKey, &r.DOCXStorageKey, &r.FindingCount, &r.GeneratedAt)
	return r, err
}

const getReport = `-- name: GetReport :one
SELECT id, project_id, user_id, pdf_storage_key, docx_storage_key, finding_count, generated_at
FROM reports WHERE id = $1`

func (q *Queries) GetReport(ctx context.Context, id uuid.UUID) (Report, error) {
	var r Report
	err := q.db.QueryRowContext(ctx, getReport, id).
		Scan(&r.ID, &r.ProjectID, &r.UserID, &r.PDFStorageKey, &r.DOCXStorageKey, &r.FindingCount, &r.GeneratedAt)
	return r, err
}

const listReportsByProject = `-- name: ListReportsByProject :many
SELECT id, project_id, user_id, pdf_storage_key, docx_storage_key, finding_count, generated_at
FROM reports WHERE project_id = $1 ORDER BY generated_at DESC`

func (q *Queries) ListReportsByProject(ctx context.Context, projectID uuid.UUID) ([]Report, error) {
	rows, err := q.db.QueryContext(ctx, listReportsByProject, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var r Report
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.UserID, &r.PDFStorageKey, &r.DOCXStorageKey,
			&r.FindingCount, &r.GeneratedAt); err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}
