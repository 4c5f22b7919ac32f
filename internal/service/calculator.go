package service

import (
	"context"
	"log/slog"

	"github.com/adeia-app/adeia/internal/domain"
	"github.com/google/uuid"
)

// CalculatorService defines the interface for the fee and cost calculators.
//
// Both calculators are deterministic domain computations, but they are
// still metered tools: each successful calculation consumes one quota use.
// Invalid input is rejected before the gate so a typo does not cost a use.
type CalculatorService interface {
	// CalculateFees computes the permit fee breakdown.
	// Returns domain.EPAYMENT if the monthly quota is exhausted.
	CalculateFees(ctx context.Context, userID uuid.UUID, params domain.FeeParams) (*domain.FeeBreakdown, error)

	// EstimateCost computes a construction cost estimate.
	// Returns domain.EPAYMENT if the monthly quota is exhausted.
	EstimateCost(ctx context.Context, userID uuid.UUID, params domain.CostParams) (*domain.CostEstimate, error)
}

// calculatorService implements CalculatorService.
type calculatorService struct {
	quota  QuotaService
	logger *slog.Logger
}

// NewCalculatorService creates a new CalculatorService.
func NewCalculatorService(quota QuotaService, logger *slog.Logger) CalculatorService {
	return &calculatorService{
		quota:  quota,
		logger: logger,
	}
}

// CalculateFees computes the permit fee breakdown.
func (s *calculatorService) CalculateFees(ctx context.Context, userID uuid.UUID, params domain.FeeParams) (*domain.FeeBreakdown, error) {
	const op = "CalculatorService.CalculateFees"

	// Validate before consuming: run the calculation against the inputs
	// first, then gate. The computation is pure and cheap.
	breakdown, err := domain.CalculateFees(params)
	if err != nil {
		return nil, err
	}

	decision, err := s.quota.CheckAndConsume(ctx, userID, domain.ToolFeeCalculator)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, domain.QuotaExhausted(op)
	}

	s.logger.Info("fees calculated",
		"user_id", userID,
		"permit_type", params.PermitType,
		"total_cents", breakdown.TotalCents,
		"uses_this_month", decision.NewCount,
	)
	return breakdown, nil
}

// EstimateCost computes a construction cost estimate.
func (s *calculatorService) EstimateCost(ctx context.Context, userID uuid.UUID, params domain.CostParams) (*domain.CostEstimate, error) {
	const op = "CalculatorService.EstimateCost"

	estimate, err := domain.EstimateCost(params)
	if err != nil {
		return nil, err
	}

	decision, err := s.quota.CheckAndConsume(ctx, userID, domain.ToolCostEstimator)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, domain.QuotaExhausted(op)
	}

	s.logger.Info("cost estimated",
		"user_id", userID,
		"zone", params.Zone,
		"total_cents", estimate.TotalCents,
		"uses_this_month", decision.NewCount,
	)
	return estimate, nil
}
