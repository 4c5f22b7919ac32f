package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/adeia-app/adeia/internal/ai/mock"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQuota is a canned QuotaService for gate-ordering tests.
type fakeQuota struct {
	decision domain.Decision
	err      error
	calls    int
	lastTool domain.ToolKind
}

func (q *fakeQuota) CheckAndConsume(_ context.Context, _ uuid.UUID, tool domain.ToolKind) (domain.Decision, error) {
	q.calls++
	q.lastTool = tool
	return q.decision, q.err
}

func (q *fakeQuota) GetUsage(context.Context, uuid.UUID) (*domain.UsageSummary, error) {
	return nil, errors.New("not implemented")
}

func (q *fakeQuota) SetPlan(context.Context, uuid.UUID, domain.PlanTier) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func newQuestionTest(t *testing.T, quota *fakeQuota) (QuestionService, sqlmock.Sqlmock, *mock.Provider) {
	t.Helper()
	db, dbmock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	provider := mock.New(slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc := NewQuestionService(repository.New(db), quota, provider,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, dbmock, provider
}

func questionRows(id, userID uuid.UUID, question, answer string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "project_id", "question", "answer", "citations", "created_at"}).
		AddRow(id, userID, nil, question, answer, nil, time.Now())
}

func TestAsk_EmptyQuestion_ConsumesNoQuota(t *testing.T) {
	quota := &fakeQuota{decision: domain.Decision{Allowed: true}}
	svc, _, provider := newQuestionTest(t, quota)

	_, err := svc.Ask(context.Background(), domain.AskParams{
		UserID:   uuid.New(),
		Question: "   ",
	})
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	// Validation runs before the gate.
	assert.Equal(t, 0, quota.calls)
	assert.Equal(t, 0, provider.AskCalls)
}

func TestAsk_QuotaExhausted_ReturnsPaymentError(t *testing.T) {
	quota := &fakeQuota{decision: domain.Decision{Reason: domain.DeniedQuotaExhausted}}
	svc, _, provider := newQuestionTest(t, quota)

	_, err := svc.Ask(context.Background(), domain.AskParams{
		UserID:   uuid.New(),
		Question: "Χρειάζομαι άδεια για εσωτερική διαρρύθμιση;",
	})
	require.Error(t, err)
	assert.Equal(t, domain.EPAYMENT, domain.ErrorCode(err))
	assert.Equal(t, 1, quota.calls)
	assert.Equal(t, domain.ToolAsk, quota.lastTool)
	// Denied requests never reach the provider.
	assert.Equal(t, 0, provider.AskCalls)
}

func TestAsk_Success_StoresExchange(t *testing.T) {
	quota := &fakeQuota{decision: domain.Decision{Allowed: true, NewCount: 3}}
	svc, dbmock, provider := newQuestionTest(t, quota)
	userID := uuid.New()

	dbmock.ExpectQuery("INSERT INTO questions").
		WillReturnRows(questionRows(uuid.New(), userID,
			"Χρειάζομαι άδεια για εσωτερική διαρρύθμιση;", "canned answer"))

	q, err := svc.Ask(context.Background(), domain.AskParams{
		UserID:   userID,
		Question: "Χρειάζομαι άδεια για εσωτερική διαρρύθμιση;",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.AskCalls)
	assert.Equal(t, userID, q.UserID)
	assert.NotEmpty(t, q.Answer)
	assert.NoError(t, dbmock.ExpectationsWereMet())
}

func TestAsk_StoreFailureStillReturnsAnswer(t *testing.T) {
	quota := &fakeQuota{decision: domain.Decision{Allowed: true, NewCount: 4}}
	svc, dbmock, _ := newQuestionTest(t, quota)
	userID := uuid.New()

	dbmock.ExpectQuery("INSERT INTO questions").
		WillReturnError(errors.New("connection reset"))

	q, err := svc.Ask(context.Background(), domain.AskParams{
		UserID:   userID,
		Question: "Τι ισχύει για αλλαγή χρήσης καταστήματος;",
	})
	// The use is already consumed and the answer produced; losing history
	// does not fail the request.
	require.NoError(t, err)
	assert.NotEmpty(t, q.Answer)
}

func TestAsk_ProviderFailure_IsInternalError(t *testing.T) {
	quota := &fakeQuota{decision: domain.Decision{Allowed: true}}
	svc, _, provider := newQuestionTest(t, quota)
	provider.AskError = errors.New("upstream timeout")

	_, err := svc.Ask(context.Background(), domain.AskParams{
		UserID:   uuid.New(),
		Question: "Ποιο είναι το μέγιστο ύψος κτιρίου εντός σχεδίου;",
	})
	require.Error(t, err)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
}

func TestHistory_NeverConsumesQuota(t *testing.T) {
	quota := &fakeQuota{decision: domain.Decision{Allowed: true}}
	svc, dbmock, _ := newQuestionTest(t, quota)
	userID := uuid.New()

	dbmock.ExpectQuery("SELECT id, user_id, project_id, question, answer, citations, created_at").
		WithArgs(userID, int32(20), int32(0)).
		WillReturnRows(questionRows(uuid.New(), userID, "q", "a"))

	questions, err := svc.History(context.Background(), userID, 0, -5)
	require.NoError(t, err)
	assert.Len(t, questions, 1)
	assert.Equal(t, 0, quota.calls)
}
