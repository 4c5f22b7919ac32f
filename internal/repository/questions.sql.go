package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

type CreateQuestionParams struct {
	UserID    uuid.UUID
	ProjectID uuid.NullUUID
	Question  string
	Answer    string
	Citations pqtype.NullRawMessage
}

const createQuestion = `-- name: CreateQuestion :one
INSERT INTO questions (user_id, project_id, question, answer, citations)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, user_id, project_id, question, answer, citations, created_at`

func (q *Queries) CreateQuestion(ctx context.Context, arg CreateQuestionParams) (Question, error) {
	var qa Question
	err := q.db.QueryRowContext(ctx, createQuestion,
		arg.UserID, arg.ProjectID, arg.Question, arg.Answer, arg.Citations).
		Scan(&qa.ID, &qa.UserID, &qa.ProjectID, &qa.Question, &qa.Answer, &qa.Citations, &qa.CreatedAt)
	return qa, err
}

type ListQuestionsByUserParams struct {
	UserID uuid.UUID
	Limit  int32
	Offset int32
}

const listQuestionsByUser = `-- name: ListQuestionsByUser :many
SELECT id, user_id, project_id, question, answer, citations, created_at
FROM questions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListQuestionsByUser(ctx context.Context, arg ListQuestionsByUserParams) ([]Question, error) {
	rows, err := q.db.QueryContext(ctx, listQuestionsByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []Question
	for rows.Next() {
		var qa Question
		if err := rows.Scan(&qa.ID, &qa.UserID, &qa.ProjectID, &qa.Question, &qa.Answer,
			&qa.Citations, &qa.CreatedAt); err != nil {
			return nil, err
		}
		questions = append(questions, qa)
	}
	return questions, rows.Err()
}
