package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const projectColumns = `id, user_id, title, permit_type, status, address, city, postal_code,
	authority, description, created_at, updated_at`

func scanProject(row *sql.Row) (Project, error) {
	var p Project
	err := row.Scan(
		&p.ID, &p.UserID, &p.Title, &p.PermitType, &p.Status, &p.Address, &p.City, &p.PostalCode,
		&p.Authority, &p.Description, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

type CreateProjectParams struct {
	UserID      uuid.UUID
	Title       string
	PermitType  string
	Address     string
	City        string
	PostalCode  string
	Authority   string
	Description string
}

const createProject = `-- name: CreateProject :one
INSERT INTO projects (user_id, title, permit_type, address, city, postal_code, authority, description)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + projectColumns

func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) (Project, error) {
	row := q.db.QueryRowContext(ctx, createProject,
		arg.UserID, arg.Title, arg.PermitType, arg.Address, arg.City, arg.PostalCode,
		arg.Authority, arg.Description)
	return scanProject(row)
}

const getProject = `-- name: GetProject :one
SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

func (q *Queries) GetProject(ctx context.Context, id uuid.UUID) (Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, getProject, id))
}

const listProjectsByUser = `-- name: ListProjectsByUser :many
SELECT ` + projectColumns + ` FROM projects WHERE user_id = $1 ORDER BY created_at DESC`

func (q *Queries) ListProjectsByUser(ctx context.Context, userID uuid.UUID) ([]Project, error) {
	rows, err := q.db.QueryContext(ctx, listProjectsByUser, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Title, &p.PermitType, &p.Status, &p.Address, &p.City, &p.PostalCode,
			&p.Authority, &p.Description, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

type UpdateProjectParams struct {
	ID          uuid.UUID
	Title       string
	PermitType  string
	Status      string
	Address     string
	City        string
	PostalCode  string
	Authority   string
	Description string
}

const updateProject = `-- name: UpdateProject :one
UPDATE projects
SET title = $2, permit_type = $3, status = $4, address = $5, city = $6, postal_code = $7,
    authority = $8, description = $9, updated_at = now()
WHERE id = $1
RETURNING ` + projectColumns

func (q *Queries) UpdateProject(ctx context.Context, arg UpdateProjectParams) (Project, error) {
	row := q.db.QueryRowContext(ctx, updateProject,
		arg.ID, arg.Title, arg.PermitType, arg.Status, arg.Address, arg.City, arg.PostalCode,
		arg.Authority, arg.Description)
	return scanProject(row)
}

const deleteProject = `-- name: DeleteProject :exec
DELETE FROM projects WHERE id = $1`

func (q *Queries) DeleteProject(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, deleteProject, id)
	return err
}

type GetProjectCountsRow struct {
	BlueprintCount int64
	ReportCount    int64
}

const getProjectCounts = `-- name: GetProjectCounts :one
SELECT
    (SELECT count(*) FROM blueprints WHERE project_id = $1) AS blueprint_count,
    (SELECT count(*) FROM reports WHERE project_id = $1) AS report_count`

func (q *Queries) GetProjectCounts(ctx context.Context, projectID uuid.UUID) (GetProjectCountsRow, error) {
	var r GetProjectCountsRow
	err := q.db.QueryRowContext(ctx, getProjectCounts, projectID).Scan(&r.BlueprintCount, &r.ReportCount)
	return r, err
}
