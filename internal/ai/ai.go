package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AIProvider defines the interface for AI-assisted permit tooling
type AIProvider interface {
	// Ask answers a freeform question about Greek building regulations
	Ask(ctx context.Context, params AskParams) (*AskResult, error)

	// AnalyzeBlueprint reviews a scanned permit drawing for issues
	AnalyzeBlueprint(ctx context.Context, params AnalyzeBlueprintParams) (*BlueprintResult, error)

	// GenerateChecklist produces a filing checklist for a permit type
	GenerateChecklist(ctx context.Context, params ChecklistParams) (*ChecklistResult, error)

	// DraftLetter drafts a transmittal letter to the building authority
	DraftLetter(ctx context.Context, params LetterParams) (*LetterResult, error)

	// WriteNarrative writes the narrative section of a technical report
	WriteNarrative(ctx context.Context, params NarrativeParams) (*NarrativeResult, error)
}

// AskParams contains parameters for a regulation question
type AskParams struct {
	Question       string    // The user's question
	PermitType     string    // Optional permit type context
	ProjectContext string    // Optional project description for context
	QuestionID     uuid.UUID // Question ID for tracking
	UserID         uuid.UUID // User ID for usage tracking
}

// AskResult contains the answer to a regulation question
type AskResult struct {
	Answer    string     // The generated answer
	Citations []Citation // Regulation references backing the answer
	Usage     UsageInfo  // Token usage and cost information
}

// Citation points at the regulation text an answer relies on
type Citation struct {
	Reference string // e.g. "ΝΟΚ (Ν. 4067/2012) άρθρο 19"
	Excerpt   string // Short quoted passage, optional
}

// AnalyzeBlueprintParams contains parameters for blueprint analysis
type AnalyzeBlueprintParams struct {
	ImageData   []byte    // Raw image bytes
	ContentType string    // MIME type (e.g., "image/jpeg")
	PermitType  string    // Permit procedure the drawing supports
	Notes       string    // Optional context provided by the engineer
	BlueprintID uuid.UUID // Blueprint ID for tracking
	UserID      uuid.UUID // User ID for usage tracking
}

// BlueprintResult contains the complete analysis of a permit drawing
type BlueprintResult struct {
	Summary     string    // Overall assessment of the drawing
	DrawingType string    // e.g. "κάτοψη", "τομή", "διάγραμμα κάλυψης"
	Findings    []Finding // Identified issues and observations
	Usage       UsageInfo // Token usage and cost information
}

// Finding represents a single issue extracted from a drawing
type Finding struct {
	Title       string   // Short name for the issue
	Description string   // What the issue is and why it matters
	Severity    Severity // How serious the issue is for the filing
	Reference   string   // Legal basis, e.g. "ΝΟΚ άρθρο 11"
}

// ChecklistParams contains parameters for checklist generation
type ChecklistParams struct {
	PermitType         string    // Permit procedure to generate for
	ProjectDescription string    // Optional description to tailor conditional items
	ProjectID          uuid.UUID // Project ID for tracking
	UserID             uuid.UUID // User ID for usage tracking
}

// ChecklistResult contains a generated filing checklist
type ChecklistResult struct {
	Items []ChecklistItem // Ordered filing requirements
	Usage UsageInfo       // Token usage and cost information
}

// ChecklistItem is one required document or step in a permit filing
type ChecklistItem struct {
	Title       string // e.g. "Τοπογραφικό διάγραμμα"
	Description string // What the item is and who signs it
	Required    bool   // False for conditionally-needed items
	Reference   string // Legal basis, e.g. "Ν. 4495/2017 άρθρο 40"
}

// LetterParams contains parameters for drafting an authority letter
type LetterParams struct {
	Purpose        string    // What the letter should accomplish
	Authority      string    // Competent building authority (ΥΔΟΜ)
	ProjectTitle   string    // Project working title
	ProjectAddress string    // Property address
	PermitType     string    // Permit procedure
	EngineerName   string    // Signing engineer
	RegistryNumber string    // TEE registry number, optional
	ProjectID      uuid.UUID // Project ID for tracking
	UserID         uuid.UUID // User ID for usage tracking
}

// LetterResult contains a drafted transmittal letter
type LetterResult struct {
	Subject string    // Letter subject line
	Body    string    // Full letter body, ready to edit
	Usage   UsageInfo // Token usage and cost information
}

// NarrativeParams contains parameters for a report narrative
type NarrativeParams struct {
	ProjectTitle   string    // Project working title
	ProjectAddress string    // Property address
	PermitType     string    // Permit procedure
	FindingsJSON   string    // Blueprint findings serialized as JSON
	ChecklistJSON  string    // Checklist state serialized as JSON
	ProjectID      uuid.UUID // Project ID for tracking
	UserID         uuid.UUID // User ID for usage tracking
}

// NarrativeResult contains a generated report narrative
type NarrativeResult struct {
	Narrative string    // Technical report narrative text
	Usage     UsageInfo // Token usage and cost information
}

// UsageInfo tracks API usage for billing and monitoring
type UsageInfo struct {
	Model        string        // AI model used
	InputTokens  int           // Tokens in the request
	OutputTokens int           // Tokens in the response
	CostCents    int           // Estimated cost in cents
	Duration     time.Duration // Request duration
}

// Severity levels for blueprint findings (matches domain.FindingSeverity)
type Severity string

const (
	SeverityInfo     Severity = "info"     // Observation, no action needed
	SeverityWarning  Severity = "warning"  // Should be fixed before filing
	SeverityBlocking Severity = "blocking" // Filing will be rejected without a fix
)

// Valid checks if the severity level is valid
func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityBlocking:
		return true
	default:
		return false
	}
}

// ProviderConfig contains common configuration for AI providers
type ProviderConfig struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// Error codes for AI provider operations
var (
	// EAIRateLimit indicates the API rate limit has been exceeded
	EAIRateLimit = errors.New("ai provider rate limit exceeded")

	// EAIInvalidImage indicates the image format or content is invalid
	EAIInvalidImage = errors.New("invalid image format or content")

	// EAIInvalidInput indicates the text input is missing or malformed
	EAIInvalidInput = errors.New("invalid input for ai request")

	// EAIContentPolicy indicates the input violates content policy
	EAIContentPolicy = errors.New("input violates content policy")

	// EAITimeout indicates the request timed out
	EAITimeout = errors.New("ai request timed out")

	// EAIUnavailable indicates the AI service is temporarily unavailable
	EAIUnavailable = errors.New("ai service temporarily unavailable")

	// EAIUnauthorized indicates invalid API credentials
	EAIUnauthorized = errors.New("ai provider authentication failed")
)

// IsRetryable returns true if the error is a transient error that can be retried
func IsRetryable(err error) bool {
	return errors.Is(err, EAIRateLimit) ||
		errors.Is(err, EAITimeout) ||
		errors.Is(err, EAIUnavailable)
}

// WrapError wraps an error with context about the AI operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}
