package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// =============================================================================
// SMTP Email Service Implementation
// =============================================================================

// SMTPEmailService sends emails via SMTP.
//
// This implementation works with:
// - Mailhog (development): No authentication required
// - Postmark SMTP (production): Uses username/password authentication
// - Any standard SMTP server
//
// Email templates are embedded in the binary and rendered with Go's
// html/template package.
type SMTPEmailService struct {
	config    SMTPConfig
	baseURL   string
	templates *template.Template
	logger    *slog.Logger
}

// NewSMTPEmailService creates a new SMTP-based email service.
//
// Parameters:
// - config: SMTP server configuration
// - baseURL: Application base URL for constructing links (e.g., "http://localhost:8080")
// - logger: Structured logger for error reporting
func NewSMTPEmailService(
	config SMTPConfig,
	baseURL string,
	logger *slog.Logger,
) (*SMTPEmailService, error) {
	// Set defaults
	if config.From == "" {
		config.From = DefaultFromEmail
	}
	if config.FromName == "" {
		config.FromName = DefaultFromName
	}

	templates, err := template.New("email").Funcs(emailTemplateFuncs()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	return &SMTPEmailService{
		config:    config,
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		templates: templates,
		logger:    logger,
	}, nil
}

// =============================================================================
// EmailService Interface Implementation
// =============================================================================

// SendVerificationEmail sends an email verification link to a new user.
func (s *SMTPEmailService) SendVerificationEmail(ctx context.Context, to, name, token string) error {
	verifyURL := fmt.Sprintf("%s/verify-email?token=%s", s.baseURL, token)

	data := map[string]interface{}{
		"Name":      name,
		"VerifyURL": verifyURL,
		"Year":      time.Now().Year(),
	}

	htmlBody, err := s.renderTemplate("verification.html", data)
	if err != nil {
		return fmt.Errorf("failed to render verification email template: %w", err)
	}

	textBody := fmt.Sprintf(`Γεια σας %s,

Καλώς ήρθατε στο Adeia! Επιβεβαιώστε τη διεύθυνση email σας πατώντας στον παρακάτω σύνδεσμο:

%s

Ο σύνδεσμος ισχύει για 24 ώρες.

Αν δεν δημιουργήσατε εσείς λογαριασμό στο Adeia, αγνοήστε αυτό το μήνυμα.

Η ομάδα του Adeia
`, name, verifyURL)

	email := Email{
		To:       to,
		Subject:  "Επιβεβαίωση λογαριασμού Adeia",
		HTMLBody: htmlBody,
		TextBody: textBody,
	}

	return s.send(ctx, email)
}

// SendPasswordResetEmail sends a password reset link to a user.
func (s *SMTPEmailService) SendPasswordResetEmail(ctx context.Context, to, name, token string) error {
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.baseURL, token)

	data := map[string]interface{}{
		"Name":     name,
		"ResetURL": resetURL,
		"Year":     time.Now().Year(),
	}

	htmlBody, err := s.renderTemplate("password_reset.html", data)
	if err != nil {
		return fmt.Errorf("failed to render password reset email template: %w", err)
	}

	textBody := fmt.Sprintf(`Γεια σας %s,

Λάβαμε αίτημα επαναφοράς του κωδικού σας. Επιλέξτε νέο κωδικό πατώντας στον παρακάτω σύνδεσμο:

%s

Ο σύνδεσμος ισχύει για 1 ώρα.

Αν δεν ζητήσατε εσείς επαναφορά κωδικού, αγνοήστε αυτό το μήνυμα. Ο κωδικός σας δεν θα αλλάξει.

Η ομάδα του Adeia
`, name, resetURL)

	email := Email{
		To:       to,
		Subject:  "Επαναφορά κωδικού Adeia",
		HTMLBody: htmlBody,
		TextBody: textBody,
	}

	return s.send(ctx, email)
}

// SendReportReadyEmail notifies a user that their technical report is ready.
func (s *SMTPEmailService) SendReportReadyEmail(ctx context.Context, to, name, reportURL string) error {
	data := map[string]interface{}{
		"Name":      name,
		"ReportURL": reportURL,
		"Year":      time.Now().Year(),
	}

	htmlBody, err := s.renderTemplate("report_ready.html", data)
	if err != nil {
		return fmt.Errorf("failed to render report ready email template: %w", err)
	}

	textBody := fmt.Sprintf(`Γεια σας %s,

Η τεχνική σας έκθεση είναι έτοιμη. Μπορείτε να την κατεβάσετε εδώ:

%s

Η ομάδα του Adeia
`, name, reportURL)

	email := Email{
		To:       to,
		Subject:  "Η τεχνική σας έκθεση είναι έτοιμη",
		HTMLBody: htmlBody,
		TextBody: textBody,
	}

	return s.send(ctx, email)
}

// SendUsageThresholdEmail notifies a user about a monthly quota threshold.
func (s *SMTPEmailService) SendUsageThresholdEmail(ctx context.Context, to, name string, used, quota int, exhausted bool) error {
	billingURL := s.baseURL + "/billing"

	data := map[string]interface{}{
		"Name":       name,
		"Used":       used,
		"Quota":      quota,
		"Exhausted":  exhausted,
		"BillingURL": billingURL,
		"Year":       time.Now().Year(),
	}

	htmlBody, err := s.renderTemplate("usage_threshold.html", data)
	if err != nil {
		return fmt.Errorf("failed to render usage threshold email template: %w", err)
	}

	var subject, textBody string
	if exhausted {
		subject = "Εξαντλήσατε τις μηνιαίες χρήσεις σας"
		textBody = fmt.Sprintf(`Γεια σας %s,

Χρησιμοποιήσατε και τις %d από τις %d μηνιαίες χρήσεις του πακέτου σας.

Ο μετρητής μηδενίζεται στην αρχή του επόμενου ημερολογιακού μήνα. Αν χρειάζεστε περισσότερες χρήσεις άμεσα, μπορείτε να αναβαθμίσετε το πακέτο σας:

%s

Η ομάδα του Adeia
`, name, used, quota, billingURL)
	} else {
		subject = "Πλησιάζετε το όριο μηνιαίων χρήσεων"
		textBody = fmt.Sprintf(`Γεια σας %s,

Έχετε χρησιμοποιήσει %d από τις %d μηνιαίες χρήσεις του πακέτου σας.

Ο μετρητής μηδενίζεται στην αρχή του επόμενου ημερολογιακού μήνα. Αν χρειάζεστε μεγαλύτερο όριο, δείτε τα διαθέσιμα πακέτα:

%s

Η ομάδα του Adeia
`, name, used, quota, billingURL)
	}

	email := Email{
		To:       to,
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	}

	return s.send(ctx, email)
}

// =============================================================================
// Internal Methods
// =============================================================================

// send sends an email via SMTP.
func (s *SMTPEmailService) send(ctx context.Context, email Email) error {
	// Build the email message
	msg := s.buildMessage(email)

	// Create SMTP address
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	// Create auth if credentials are provided (not needed for Mailhog)
	var auth smtp.Auth
	if s.config.Username != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	// Send the email
	err := smtp.SendMail(addr, auth, s.config.From, []string{email.To}, msg)
	if err != nil {
		s.logger.Error("failed to send email",
			"to", email.To,
			"subject", email.Subject,
			"error", err,
		)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		"to", email.To,
		"subject", email.Subject,
	)

	return nil
}

// buildMessage constructs the raw email message with headers.
func (s *SMTPEmailService) buildMessage(email Email) []byte {
	var buf bytes.Buffer

	// From header with display name
	fromHeader := fmt.Sprintf("%s <%s>", s.config.FromName, s.config.From)

	// Write headers
	buf.WriteString(fmt.Sprintf("From: %s\r\n", fromHeader))
	buf.WriteString(fmt.Sprintf("To: %s\r\n", email.To))
	buf.WriteString(fmt.Sprintf("Subject: %s\r\n", email.Subject))
	buf.WriteString("MIME-Version: 1.0\r\n")

	// Create multipart message for HTML + text
	boundary := "===============ADEIA_BOUNDARY==============="
	buf.WriteString(fmt.Sprintf("Content-Type: multipart/alternative; boundary=\"%s\"\r\n", boundary))
	buf.WriteString("\r\n")

	// Plain text part
	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.TextBody)
	buf.WriteString("\r\n")

	// HTML part
	buf.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	buf.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(email.HTMLBody)
	buf.WriteString("\r\n")

	// End boundary
	buf.WriteString(fmt.Sprintf("--%s--\r\n", boundary))

	return buf.Bytes()
}

// renderTemplate renders an email template with the given data.
func (s *SMTPEmailService) renderTemplate(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// =============================================================================
// Template Functions
// =============================================================================

// emailTemplateFuncs returns template functions available in email templates.
func emailTemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"safeHTML": func(s string) template.HTML {
			return template.HTML(s)
		},
		"currentYear": func() int {
			return time.Now().Year()
		},
	}
}

// =============================================================================
// Compile-time interface check
// =============================================================================

var _ EmailService = (*SMTPEmailService)(nil)
