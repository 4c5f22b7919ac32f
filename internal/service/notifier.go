package service

import (
	"context"

	"github.com/adeia-app/adeia/internal/domain"
	"github.com/adeia-app/adeia/internal/email"
)

// emailThresholdNotifier delivers quota threshold notifications over email.
type emailThresholdNotifier struct {
	email email.EmailService
}

// NewEmailThresholdNotifier creates a ThresholdNotifier that sends the
// 80% and 100% usage emails.
func NewEmailThresholdNotifier(emailService email.EmailService) ThresholdNotifier {
	return &emailThresholdNotifier{email: emailService}
}

func (n *emailThresholdNotifier) NotifyUsageThreshold(ctx context.Context, user *domain.User, threshold domain.UsageThreshold, count, quota int) error {
	exhausted := threshold == domain.UsageThresholdFull
	return n.email.SendUsageThresholdEmail(ctx, user.Email, user.Name, count, quota, exhausted)
}

var _ ThresholdNotifier = (*emailThresholdNotifier)(nil)
