// Package service contains the business logic layer.
//
// This file implements the usage meter and entitlement gate: the monthly
// tool-use counter with calendar-month rollover, the quota check performed
// before every tool invocation, the 80%/100% threshold notifications, and
// plan transitions. The counter lives in a single users row column and is
// only ever advanced by one atomic conditional UPDATE, so concurrent
// invocations for the same account cannot lose updates or sneak past the
// quota.
package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/metrics"
	"github.com/adeia-app/adeia/internal/repository"
	"github.com/google/uuid"
)

// =============================================================================
// Interface Definition
// =============================================================================

// QuotaService is the entitlement gate in front of every quota-consuming
// tool, plus the usage view and plan transitions.
type QuotaService interface {
	// CheckAndConsume decides whether the user may run one more tool
	// invocation and, if so, consumes one use. Denial is returned as a
	// Decision, not an error; the error return carries only lookup and
	// infrastructure failures.
	CheckAndConsume(ctx context.Context, userID uuid.UUID, tool domain.ToolKind) (domain.Decision, error)

	// GetUsage returns the current-period usage view for display. Pure
	// read: a stale counter reads as zero and nothing is persisted.
	GetUsage(ctx context.Context, userID uuid.UUID) (*domain.UsageSummary, error)

	// SetPlan applies a plan transition. The usage counter and period
	// anchor are never touched, so upgrade/downgrade cycling cannot buy
	// extra quota.
	SetPlan(ctx context.Context, userID uuid.UUID, tier domain.PlanTier) (*domain.User, error)
}

// ThresholdNotifier delivers usage threshold notifications. Delivery
// failures are logged and swallowed; they never affect a gate decision.
type ThresholdNotifier interface {
	NotifyUsageThreshold(ctx context.Context, user *domain.User, threshold domain.UsageThreshold, count, quota int) error
}

// =============================================================================
// Implementation
// =============================================================================

type quotaService struct {
	queries  *repository.Queries
	notifier ThresholdNotifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewQuotaService creates a new QuotaService. notifier may be nil, in
// which case threshold crossings are only logged.
func NewQuotaService(queries *repository.Queries, notifier ThresholdNotifier, logger *slog.Logger) QuotaService {
	return &quotaService{
		queries:  queries,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// CheckAndConsume runs the full gate sequence: resolve the plan quota,
// attempt the atomic consume, and emit any threshold notifications the
// increment crossed.
func (s *quotaService) CheckAndConsume(ctx context.Context, userID uuid.UUID, tool domain.ToolKind) (domain.Decision, error) {
	const op = "quota.check_and_consume"

	usage, err := s.queries.GetUserUsage(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Decision{}, domain.NotFound(op, "user", userID.String())
		}
		return domain.Decision{}, domain.Internal(err, op, "failed to load usage state")
	}

	quota, known := domain.QuotaForPlan(domain.PlanTier(usage.Plan))
	if !known {
		// A plan string this registry does not know is a data fault.
		// Fail safe: zero quota, deny.
		s.logger.Warn("Unknown plan tier, denying",
			"user_id", userID,
			"plan", usage.Plan,
		)
	}

	if quota.Unlimited {
		// Unlimited plans still count usage for admin visibility, with
		// the quota bound disabled.
		row, err := s.queries.ConsumeUse(ctx, repository.ConsumeUseParams{ID: userID, Quota: -1})
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.Decision{}, domain.NotFound(op, "user", userID.String())
			}
			return domain.Decision{}, domain.Internal(err, op, "failed to record usage")
		}
		metrics.QuotaChecksTotal.WithLabelValues(string(tool), "allowed").Inc()
		return domain.Decision{Allowed: true, NewCount: int(row.UsesThisMonth)}, nil
	}

	if quota.MonthlyUses <= 0 {
		metrics.QuotaChecksTotal.WithLabelValues(string(tool), "denied").Inc()
		return domain.Decision{Reason: domain.DeniedQuotaExhausted}, nil
	}

	row, err := s.queries.ConsumeUse(ctx, repository.ConsumeUseParams{
		ID:    userID,
		Quota: int32(quota.MonthlyUses),
	})
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return domain.Decision{}, domain.Internal(err, op, "failed to record usage")
		}
		// No row updated: the user is gone, or the effective count has
		// reached the quota. A follow-up read tells them apart. The
		// denied path never mutates the counter.
		if _, lookupErr := s.queries.GetUserUsage(ctx, userID); lookupErr != nil {
			if errors.Is(lookupErr, sql.ErrNoRows) {
				return domain.Decision{}, domain.NotFound(op, "user", userID.String())
			}
			return domain.Decision{}, domain.Internal(lookupErr, op, "failed to load usage state")
		}

		s.logger.Info("Tool invocation denied, quota exhausted",
			"user_id", userID,
			"tool", tool,
			"plan", usage.Plan,
			"quota", quota.MonthlyUses,
		)
		metrics.QuotaChecksTotal.WithLabelValues(string(tool), "denied").Inc()
		return domain.Decision{Reason: domain.DeniedQuotaExhausted}, nil
	}

	newCount := int(row.UsesThisMonth)
	s.emitThresholds(ctx, userID, newCount-1, newCount, quota.MonthlyUses)

	metrics.QuotaChecksTotal.WithLabelValues(string(tool), "allowed").Inc()
	return domain.Decision{Allowed: true, NewCount: newCount}, nil
}

// emitThresholds sends notifications for every threshold the increment
// from prev to newCount crossed. The half-open crossing check fires each
// threshold once per period: the warning on the increment reaching
// floor(quota*0.8), the full notice on the increment reaching the quota
// itself. Delivery problems are logged, never propagated.
func (s *quotaService) emitThresholds(ctx context.Context, userID uuid.UUID, prev, newCount, quota int) {
	crossed := domain.ThresholdsCrossed(prev, newCount, quota)
	if len(crossed) == 0 {
		return
	}

	user, err := s.queries.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load user for threshold notification",
			"user_id", userID,
			"error", err,
		)
		return
	}
	domainUser := repoUserToDomain(user)

	for _, threshold := range crossed {
		metrics.QuotaThresholdNotifications.WithLabelValues(string(threshold)).Inc()
		s.logger.Info("Usage threshold crossed",
			"user_id", userID,
			"threshold", threshold,
			"count", newCount,
			"quota", quota,
		)
		if s.notifier == nil {
			continue
		}
		if err := s.notifier.NotifyUsageThreshold(ctx, domainUser, threshold, newCount, quota); err != nil {
			s.logger.Error("Failed to deliver threshold notification",
				"user_id", userID,
				"threshold", threshold,
				"error", err,
			)
		}
	}
}

// GetUsage returns the display view of the current period.
func (s *quotaService) GetUsage(ctx context.Context, userID uuid.UUID) (*domain.UsageSummary, error) {
	const op = "quota.get_usage"

	usage, err := s.queries.GetUserUsage(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "failed to load usage state")
	}

	now := s.now()
	quota, known := domain.QuotaForPlan(domain.PlanTier(usage.Plan))
	if !known {
		s.logger.Warn("Unknown plan tier in usage view",
			"user_id", userID,
			"plan", usage.Plan,
		)
	}

	used := int(usage.UsesThisMonth)
	if domain.UsageIsStale(usage.LastResetAt, now) {
		used = 0
	}

	start, end := domain.PeriodBounds(now)
	return &domain.UsageSummary{
		Plan:          domain.PlanTier(usage.Plan),
		UsedThisMonth: used,
		MonthlyQuota:  quota.MonthlyUses,
		Unlimited:     quota.Unlimited,
		PeriodStart:   start,
		ResetsAt:      end,
	}, nil
}

// SetPlan applies a plan transition from the billing webhook or an admin
// override.
func (s *quotaService) SetPlan(ctx context.Context, userID uuid.UUID, tier domain.PlanTier) (*domain.User, error) {
	const op = "quota.set_plan"

	if !domain.ValidPlanTier(string(tier)) {
		return nil, domain.Invalid(op, "unknown plan tier: "+string(tier))
	}

	user, err := s.queries.UpdateUserPlan(ctx, repository.UpdateUserPlanParams{
		ID:   userID,
		Plan: string(tier),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "user", userID.String())
		}
		return nil, domain.Internal(err, op, "failed to update plan")
	}

	metrics.PlanChangesTotal.WithLabelValues(string(tier)).Inc()
	s.logger.Info("Plan changed",
		"user_id", userID,
		"plan", tier,
		"uses_this_month", user.UsesThisMonth,
	)
	return repoUserToDomain(user), nil
}
