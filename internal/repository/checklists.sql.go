package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
)

type UpsertChecklistParams struct {
	ProjectID  uuid.UUID
	PermitType string
	Items      json.RawMessage
}

// UpsertChecklist replaces the project's checklist. Regenerating a
// checklist discards the old one, including completion marks.
const upsertChecklist = `-- name: UpsertChecklist :one
INSERT INTO checklists (project_id, permit_type, items)
VALUES ($1, $2, $3)
ON CONFLICT (project_id) DO UPDATE
SET permit_type = EXCLUDED.permit_type,
    items = EXCLUDED.items,
    generated_at = now(),
    updated_at = now()
RETURNING id, project_id, permit_type, items, generated_at, updated_at`

func (q *Queries) UpsertChecklist(ctx context.Context, arg UpsertChecklistParams) (Checklist, error) {
	var c Checklist
	err := q.db.QueryRowContext(ctx, upsertChecklist, arg.ProjectID, arg.PermitType, arg.Items).
		Scan(&c.ID, &c.ProjectID, &c.PermitType, &c.Items, &c.GeneratedAt, &c.UpdatedAt)
	return c, err
}

const getChecklistByProject = `-- name: GetChecklistByProject :one
SELECT id, project_id, permit_type, items, generated_at, updated_at
FROM checklists WHERE project_id = $1`

func (q *Queries) GetChecklistByProject(ctx context.Context, projectID uuid.UUID) (Checklist, error) {
	var c Checklist
	err := q.db.QueryRowContext(ctx, getChecklistByProject, projectID).
		Scan(&c.ID, &c.ProjectID, &c.PermitType, &c.Items, &c.GeneratedAt, &c.UpdatedAt)
	return c, err
}

type UpdateChecklistItemsParams struct {
	ProjectID uuid.UUID
	Items     json.RawMessage
}

const updateChecklistItems = `-- name: UpdateChecklistItems :exec
UPDATE checklists SET items = $2, updated_at = now() WHERE project_id = $1`

func (q *Queries) UpdateChecklistItems(ctx context.Context, arg UpdateChecklistItemsParams) error {
	_, err := q.db.ExecContext(ctx, updateChecklistItems, arg.ProjectID, arg.Items)
	return err
}
