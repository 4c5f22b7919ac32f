package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AIUsage mirrors the ai_usage table.
type AIUsage struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	SubjectID    uuid.NullUUID
	Model        string
	InputTokens  int32
	OutputTokens int32
	CostCents    int32
	RequestType  string
	CreatedAt    time.Time
}

type CreateAIUsageParams struct {
	UserID       uuid.UUID
	SubjectID    uuid.NullUUID
	Model        string
	InputTokens  int32
	OutputTokens int32
	CostCents    int32
	RequestType  string
}

const createAIUsage = `-- name: CreateAIUsage :one
INSERT INTO ai_usage (user_id, subject_id, model, input_tokens, output_tokens, cost_cents, request_type)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING id, user_id, subject_id, model, input_tokens, output_tokens, cost_cents, request_type, created_at`

func (q *Queries) CreateAIUsage(ctx context.Context, arg CreateAIUsageParams) (AIUsage, error) {
	var u AIUsage
	err := q.db.QueryRowContext(ctx, createAIUsage,
		arg.UserID, arg.SubjectID, arg.Model, arg.InputTokens, arg.OutputTokens,
		arg.CostCents, arg.RequestType,
	).Scan(
		&u.ID, &u.UserID, &u.SubjectID, &u.Model, &u.InputTokens, &u.OutputTokens,
		&u.CostCents, &u.RequestType, &u.CreatedAt,
	)
	return u, err
}

type GetAIUsageTotalsRow struct {
	RequestCount int64
	InputTokens  int64
	OutputTokens int64
	CostCents    int64
}

const getAIUsageTotals = `-- name: GetAIUsageTotals :one
SELECT count(*) AS request_count,
       coalesce(sum(input_tokens), 0) AS input_tokens,
       coalesce(sum(output_tokens), 0) AS output_tokens,
       coalesce(sum(cost_cents), 0) AS cost_cents
FROM ai_usage
WHERE user_id = $1 AND created_at >= $2`

func (q *Queries) GetAIUsageTotals(ctx context.Context, userID uuid.UUID, since time.Time) (GetAIUsageTotalsRow, error) {
	var r GetAIUsageTotalsRow
	err := q.db.QueryRowContext(ctx, getAIUsageTotals, userID, since).Scan(
		&r.RequestCount, &r.InputTokens, &r.OutputTokens, &r.CostCents,
	)
	return r, err
}
