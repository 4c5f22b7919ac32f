package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingNotifier captures threshold notifications for assertions.
type recordingNotifier struct {
	calls []recordedNotification
	err   error
}

type recordedNotification struct {
	threshold domain.UsageThreshold
	count     int
	quota     int
}

func (n *recordingNotifier) NotifyUsageThreshold(_ context.Context, _ *domain.User, threshold domain.UsageThreshold, count, quota int) error {
	n.calls = append(n.calls, recordedNotification{threshold: threshold, count: count, quota: quota})
	return n.err
}

func newQuotaTest(t *testing.T) (*quotaService, sqlmock.Sqlmock, *recordingNotifier) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	notifier := &recordingNotifier{}
	svc := &quotaService{
		queries:  repository.New(db),
		notifier: notifier,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	return svc, mock, notifier
}

func expectUsage(mock sqlmock.Sqlmock, id uuid.UUID, plan string, uses int32, lastReset time.Time) {
	mock.ExpectQuery("SELECT plan, uses_this_month, last_reset_at FROM users").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"plan", "uses_this_month", "last_reset_at"}).
			AddRow(plan, uses, lastReset))
}

func expectConsume(mock sqlmock.Sqlmock, id uuid.UUID, quota int32, newCount int32, lastReset time.Time) {
	mock.ExpectQuery("UPDATE users SET").
		WithArgs(id, quota).
		WillReturnRows(sqlmock.NewRows([]string{"uses_this_month", "last_reset_at"}).
			AddRow(newCount, lastReset))
}

func expectUserByID(mock sqlmock.Sqlmock, id uuid.UUID, plan string, uses int32, lastReset time.Time) {
	cols := []string{
		"id", "email", "password_hash", "name", "company_name", "phone", "registry_number",
		"stripe_customer_id", "subscription_status", "subscription_id",
		"plan", "uses_this_month", "last_reset_at",
		"email_verified", "email_verified_at", "is_admin", "created_at", "updated_at",
	}
	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			id, "eleni@example.gr", "hash", "Ελένη Παπαδοπούλου", nil, nil, nil,
			nil, "active", nil,
			plan, uses, lastReset,
			true, now, false, now, now,
		))
}

func TestCheckAndConsume_AllowedIncrementsByOne(t *testing.T) {
	svc, mock, _ := newQuotaTest(t)
	userID := uuid.New()
	now := time.Now().UTC()

	expectUsage(mock, userID, "free", 4, now)
	expectConsume(mock, userID, 10, 5, now)

	decision, err := svc.CheckAndConsume(context.Background(), userID, domain.ToolAsk)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 5, decision.NewCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAndConsume_DeniedAtQuotaDoesNotMutate(t *testing.T) {
	svc, mock, notifier := newQuotaTest(t)
	userID := uuid.New()
	now := time.Now().UTC()

	expectUsage(mock, userID, "free", 10, now)
	mock.ExpectQuery("UPDATE users SET").
		WithArgs(userID, int32(10)).
		WillReturnError(sql.ErrNoRows)
	// Disambiguation read: the user exists, so this is a quota denial.
	expectUsage(mock, userID, "free", 10, now)

	decision, err := svc.CheckAndConsume(context.Background(), userID, domain.ToolChecklist)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.DeniedQuotaExhausted, decision.Reason)
	assert.Empty(t, notifier.calls)
	// No further statements were issued for the denial.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAndConsume_UnknownUser(t *testing.T) {
	svc, mock, _ := newQuotaTest(t)
	userID := uuid.New()

	mock.ExpectQuery("SELECT plan, uses_this_month, last_reset_at FROM users").
		WithArgs(userID).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.CheckAndConsume(context.Background(), userID, domain.ToolAsk)
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestCheckAndConsume_UserDeletedBetweenReadAndConsume(t *testing.T) {
	svc, mock, _ := newQuotaTest(t)
	userID := uuid.New()
	now := time.Now().UTC()

	expectUsage(mock, userID, "starter", 3, now)
	mock.ExpectQuery("UPDATE users SET").
		WithArgs(userID, int32(50)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT plan, uses_this_month, last_reset_at FROM users").
		WithArgs(userID).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.CheckAndConsume(context.Background(), userID, domain.ToolReport)
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestCheckAndConsume_UnlimitedStillCounts(t *testing.T) {
	svc, mock, notifier := newQuotaTest(t)
	userID := uuid.New()
	now := time.Now().UTC()

	expectUsage(mock, userID, "unlimited", 122, now)
	expectConsume(mock, userID, -1, 123, now)

	decision, err := svc.CheckAndConsume(context.Background(), userID, domain.ToolBlueprint)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 123, decision.NewCount)
	// Unlimited plans never emit threshold notifications.
	assert.Empty(t, notifier.calls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckAndConsume_WarningThresholdFiresOnce(t *testing.T) {
	svc, mock, notifier := newQuotaTest(t)
	userID := uuid.New()
	now := time.Now().UTC()

	// free plan: quota 10, warning at floor(10*0.8) = 8.
	expectUsage(mock, userID, "free", 7, now)
	expectConsume(mock, userID, 10, 8, now)
	expectUserByID(mock, userID, "free", 8, now)

	decision, err := svc.CheckAndConsume(context.Background(), userID, domain.ToolAsk)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, domain.UsageThresholdWarning, notifier.calls[0].threshold)
	assert.Equal(t, 8, notifier.calls[0].count)
	assert.Equal(t, 10, notifier.calls[0].quota)
}

func TestCheckAndConsume_FullThresholdOnLastUse(t *testing.T) {
	svc, mock, notifier := newQuotaTest(t)
	userID := uuid.New()
	now := time.Now().UTC()

	expectUsage(mock, userID, "free", 9, now)
	expectConsume(mock, userID, 10, 10, now)
	expectUserByID(mock, userID, "free", 10, now)

	decision, err := svc.CheckAndConsume(context.Background(), userID, domain.ToolLetterDraft)
	require.NoError(t, err)
	// The tenth use is still allowed; only the eleventh is denied.
	assert.True(t, decision.Allowed)
	assert.Equal(t, 10, decision.NewCount)

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, domain.UsageThresholdFull, notifier.calls[0].threshold)
}

func TestCheckAndConsume_NotifierFailureDoesNotAffectDecision(t *testing.T) {
	svc, mock, notifier := newQuotaTest(t)
	notifier.err = context.DeadlineExceeded
	userID := uuid.New()
	now := time.Now().UTC()

	expectUsage(mock, userID, "free", 7, now)
	expectConsume(mock, userID, 10, 8, now)
	expectUserByID(mock, userID, "free", 8, now)

	decision, err := svc.CheckAndConsume(context.Background(), userID, domain.ToolAsk)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCheckAndConsume_RolloverStartsAtOne(t *testing.T) {
	svc, mock, _ := newQuotaTest(t)
	userID := uuid.New()
	now := time.Now().UTC()
	lastMonth := now.AddDate(0, -1, 0)

	// Counter anchored in the previous month; the conditional UPDATE rolls
	// it over and the new count comes back as 1.
	expectUsage(mock, userID, "free", 10, lastMonth)
	expectConsume(mock, userID, 10, 1, now)

	decision, err := svc.CheckAndConsume(context.Background(), userID, domain.ToolFeeCalculator)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, 1, decision.NewCount)
}

func TestCheckAndConsume_DowngradeIsNotRetroactive(t *testing.T) {
	svc, mock, _ := newQuotaTest(t)
	userID := uuid.New()
	now := time.Now().UTC()

	// 40 uses accumulated on professional, then downgraded to free. The
	// count carries over, so the gate denies against the new quota of 10.
	expectUsage(mock, userID, "free", 40, now)
	mock.ExpectQuery("UPDATE users SET").
		WithArgs(userID, int32(10)).
		WillReturnError(sql.ErrNoRows)
	expectUsage(mock, userID, "free", 40, now)

	decision, err := svc.CheckAndConsume(context.Background(), userID, domain.ToolCostEstimator)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, domain.DeniedQuotaExhausted, decision.Reason)
}

func TestGetUsage_CurrentPeriod(t *testing.T) {
	svc, mock, _ := newQuotaTest(t)
	userID := uuid.New()
	now := time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	expectUsage(mock, userID, "starter", 12, now.AddDate(0, 0, -10))

	summary, err := svc.GetUsage(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanTierStarter, summary.Plan)
	assert.Equal(t, 12, summary.UsedThisMonth)
	assert.Equal(t, 50, summary.MonthlyQuota)
	assert.False(t, summary.Unlimited)
	assert.Equal(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC), summary.PeriodStart)
	assert.Equal(t, time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), summary.ResetsAt)
	// A read issues exactly one SELECT and persists nothing.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUsage_StaleCounterReadsZero(t *testing.T) {
	svc, mock, _ := newQuotaTest(t)
	userID := uuid.New()
	now := time.Date(2026, time.August, 2, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	expectUsage(mock, userID, "free", 10, time.Date(2026, time.July, 20, 0, 0, 0, 0, time.UTC))

	summary, err := svc.GetUsage(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.UsedThisMonth)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUsage_UnknownUser(t *testing.T) {
	svc, mock, _ := newQuotaTest(t)
	userID := uuid.New()

	mock.ExpectQuery("SELECT plan, uses_this_month, last_reset_at FROM users").
		WithArgs(userID).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.GetUsage(context.Background(), userID)
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestSetPlan_InvalidTier(t *testing.T) {
	svc, mock, _ := newQuotaTest(t)

	_, err := svc.SetPlan(context.Background(), uuid.New(), domain.PlanTier("platinum"))
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
	// Validation failures never reach the database.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPlan_PreservesCounterAndAnchor(t *testing.T) {
	svc, mock, _ := newQuotaTest(t)
	userID := uuid.New()
	lastReset := time.Date(2026, time.August, 3, 0, 0, 0, 0, time.UTC)

	cols := []string{
		"id", "email", "password_hash", "name", "company_name", "phone", "registry_number",
		"stripe_customer_id", "subscription_status", "subscription_id",
		"plan", "uses_this_month", "last_reset_at",
		"email_verified", "email_verified_at", "is_admin", "created_at", "updated_at",
	}
	now := time.Now()
	mock.ExpectQuery("UPDATE users SET plan").
		WithArgs(userID, "professional").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			userID, "eleni@example.gr", "hash", "Ελένη Παπαδοπούλου", nil, nil, nil,
			nil, "active", nil,
			"professional", int32(42), lastReset,
			true, now, false, now, now,
		))

	user, err := svc.SetPlan(context.Background(), userID, domain.PlanTierProfessional)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanTierProfessional, user.Plan)
	// The counter and period anchor carry over unchanged.
	assert.Equal(t, 42, user.UsesThisMonth)
	assert.Equal(t, lastReset, user.LastResetAt)
}
