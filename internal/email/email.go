// Package email provides email sending functionality for the Adeia application.
//
// This package defines an EmailService interface with implementations for:
// - SMTP (for development with Mailhog and production with services like Postmark SMTP)
// - Future: Postmark API implementation for advanced features
package email

import (
	"context"
)

// =============================================================================
// Interface Definition
// =============================================================================

// EmailService defines the interface for sending transactional emails.
//
// Implementations:
// - SMTPEmailService: Uses SMTP protocol (Mailhog for dev, Postmark SMTP for prod)
// - Future: PostmarkAPIService for API-based sending with delivery tracking
//
// All methods are context-aware for timeout and cancellation support.
type EmailService interface {
	// SendVerificationEmail sends an email verification link to a new user.
	// Parameters:
	// - to: Recipient email address
	// - name: Recipient's name for personalization
	// - token: Raw verification token to include in the link
	SendVerificationEmail(ctx context.Context, to, name, token string) error

	// SendPasswordResetEmail sends a password reset link to a user.
	// Parameters:
	// - to: Recipient email address
	// - name: Recipient's name for personalization
	// - token: Raw reset token to include in the link
	SendPasswordResetEmail(ctx context.Context, to, name, token string) error

	// SendReportReadyEmail notifies a user that their technical report is ready.
	// Parameters:
	// - to: Recipient email address
	// - name: Recipient's name for personalization
	// - reportURL: URL where the report can be downloaded
	SendReportReadyEmail(ctx context.Context, to, name, reportURL string) error

	// SendUsageThresholdEmail notifies a user that their monthly quota has
	// reached a threshold (80% or 100%).
	// Parameters:
	// - to: Recipient email address
	// - name: Recipient's name for personalization
	// - used: Uses consumed this month
	// - quota: Monthly quota for the user's plan
	// - exhausted: True for the 100% threshold, false for 80%
	SendUsageThresholdEmail(ctx context.Context, to, name string, used, quota int, exhausted bool) error
}

// =============================================================================
// Email Data Types
// =============================================================================

// Email represents a single email message.
type Email struct {
	To       string // Recipient email address
	Subject  string // Email subject line
	HTMLBody string // HTML content of the email
	TextBody string // Plain text fallback content
}

// =============================================================================
// Configuration Types
// =============================================================================

// SMTPConfig holds SMTP server configuration.
type SMTPConfig struct {
	Host     string // SMTP server hostname (e.g., "localhost" for Mailhog)
	Port     int    // SMTP server port (e.g., 1025 for Mailhog)
	Username string // SMTP authentication username (empty for Mailhog)
	Password string // SMTP authentication password (empty for Mailhog)
	From     string // Default sender email address
	FromName string // Default sender display name
}

// =============================================================================
// Common Constants
// =============================================================================

const (
	// DefaultFromEmail is the default sender email for transactional emails.
	DefaultFromEmail = "noreply@adeia.app"

	// DefaultFromName is the default sender display name.
	DefaultFromName = "Adeia"
)
