package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/adeia-app/adeia/internal/ai"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/repository"
	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// QuestionService defines the interface for the regulation Q&A tool.
type QuestionService interface {
	// Ask consumes one quota use, answers the question, and stores the
	// exchange in the user's history.
	// Returns domain.EPAYMENT if the monthly quota is exhausted.
	Ask(ctx context.Context, params domain.AskParams) (*domain.Question, error)

	// History returns the user's past questions, newest first.
	// Reading history never consumes quota.
	History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Question, error)
}

// questionService implements QuestionService.
type questionService struct {
	queries  *repository.Queries
	quota    QuotaService
	provider ai.AIProvider
	logger   *slog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(queries *repository.Queries, quota QuotaService, provider ai.AIProvider, logger *slog.Logger) QuestionService {
	return &questionService{
		queries:  queries,
		quota:    quota,
		provider: provider,
		logger:   logger,
	}
}

// Ask answers a regulation question.
//
// The quota use is consumed before the AI call: a failed provider call
// after consumption is not refunded, matching how the other tools meter.
func (s *questionService) Ask(ctx context.Context, params domain.AskParams) (*domain.Question, error) {
	const op = "QuestionService.Ask"

	question := strings.TrimSpace(params.Question)
	if question == "" {
		return nil, domain.Invalid(op, "Question is required")
	}
	if len(question) > domain.MaxQuestionLength {
		return nil, domain.Invalid(op, "Question is too long")
	}

	// Optional project context
	var permitType, projectContext string
	if params.ProjectID != nil {
		project, err := s.queries.GetProject(ctx, *params.ProjectID)
		if err == nil && project.UserID == params.UserID {
			permitType = project.PermitType
			projectContext = project.Title + ", " + project.Address + ", " + project.City
		}
	}

	decision, err := s.quota.CheckAndConsume(ctx, params.UserID, domain.ToolAsk)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, domain.QuotaExhausted(op)
	}

	questionID := uuid.New()
	result, err := s.provider.Ask(ctx, ai.AskParams{
		Question:       question,
		PermitType:     permitType,
		ProjectContext: projectContext,
		QuestionID:     questionID,
		UserID:         params.UserID,
	})
	if err != nil {
		s.logger.Error("ask provider call failed", "error", err, "user_id", params.UserID)
		return nil, domain.Internal(err, op, "Failed to answer question")
	}

	citations := make([]domain.Citation, 0, len(result.Citations))
	for _, c := range result.Citations {
		citations = append(citations, domain.Citation{
			Reference: c.Reference,
			Excerpt:   c.Excerpt,
		})
	}

	citationsJSON, err := json.Marshal(citations)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to encode citations")
	}

	repoQuestion, err := s.queries.CreateQuestion(ctx, repository.CreateQuestionParams{
		UserID:    params.UserID,
		ProjectID: domain.ToNullUUID(params.ProjectID),
		Question:  question,
		Answer:    result.Answer,
		Citations: pqtype.NullRawMessage{RawMessage: citationsJSON, Valid: true},
	})
	if err != nil {
		// The answer was produced and the use consumed; losing history is
		// bad but not worth failing the request over.
		s.logger.Error("failed to store question", "error", err, "user_id", params.UserID)
		return &domain.Question{
			ID:        questionID,
			UserID:    params.UserID,
			ProjectID: params.ProjectID,
			Question:  question,
			Answer:    result.Answer,
			Citations: citations,
		}, nil
	}

	s.logger.Info("question answered",
		"question_id", repoQuestion.ID,
		"user_id", params.UserID,
		"uses_this_month", decision.NewCount,
	)

	q := repoQuestionToDomain(repoQuestion)
	return &q, nil
}

// History returns the user's past questions, newest first.
func (s *questionService) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Question, error) {
	const op = "QuestionService.History"

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	repoQuestions, err := s.queries.ListQuestionsByUser(ctx, repository.ListQuestionsByUserParams{
		UserID: userID,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list questions")
	}

	questions := make([]domain.Question, len(repoQuestions))
	for i, rq := range repoQuestions {
		questions[i] = repoQuestionToDomain(rq)
	}
	return questions, nil
}

// repoQuestionToDomain converts a repository Question to a domain Question.
func repoQuestionToDomain(rq repository.Question) domain.Question {
	q := domain.Question{
		ID:        rq.ID,
		UserID:    rq.UserID,
		Question:  rq.Question,
		Answer:    rq.Answer,
		CreatedAt: rq.CreatedAt,
	}
	if rq.ProjectID.Valid {
		id := rq.ProjectID.UUID
		q.ProjectID = &id
	}
	if rq.Citations.Valid {
		// Malformed stored citations degrade to none rather than failing
		// the whole history read.
		_ = json.Unmarshal(rq.Citations.RawMessage, &q.Citations)
	}
	return q
}
