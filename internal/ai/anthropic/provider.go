package anthropic

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/adeia-app/adeia/internal/ai"
	"github.com/adeia-app/adeia/internal/metrics"
	"github.com/adeia-app/adeia/internal/repository"
	"github.com/google/uuid"
)

const (
	// APIBaseURL is the base URL for the Anthropic API
	APIBaseURL = "https://api.anthropic.com/v1/messages"

	// APIVersion is the Anthropic API version
	APIVersion = "2023-06-01"

	// DefaultModel is the default Claude model to use
	DefaultModel = "claude-3-5-sonnet-20241022"

	// MaxImageSize is the maximum image size in bytes (20MB)
	MaxImageSize = 20 * 1024 * 1024

	// Pricing in cents per 1M tokens for claude-3-5-sonnet
	PricingInputCents  = 300  // $3 per 1M input tokens
	PricingOutputCents = 1500 // $15 per 1M output tokens
)

// Config contains configuration for the Anthropic provider
type Config struct {
	APIKey         string
	Model          string
	ProviderConfig ai.ProviderConfig
}

// Provider implements the AIProvider interface using Anthropic's Claude API
type Provider struct {
	config  Config
	client  *http.Client
	queries *repository.Queries
	logger  *slog.Logger
}

// New creates a new Anthropic AI provider
func New(config Config, queries *repository.Queries, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	// Set defaults
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.ProviderConfig.MaxRetries == 0 {
		config.ProviderConfig.MaxRetries = 3
	}
	if config.ProviderConfig.RetryBaseDelay == 0 {
		config.ProviderConfig.RetryBaseDelay = 1 * time.Second
	}
	if config.ProviderConfig.RequestTimeout == 0 {
		config.ProviderConfig.RequestTimeout = 60 * time.Second
	}

	return &Provider{
		config: config,
		client: &http.Client{
			Timeout: config.ProviderConfig.RequestTimeout,
		},
		queries: queries,
		logger:  logger,
	}, nil
}

// Ask answers a freeform question about Greek building regulations
func (p *Provider) Ask(ctx context.Context, params ai.AskParams) (*ai.AskResult, error) {
	if strings.TrimSpace(params.Question) == "" {
		return nil, ai.WrapError("ask", ai.EAIInvalidInput)
	}

	prompt := buildAskPrompt(params.Question, params.PermitType, params.ProjectContext)

	resp, usage, err := p.complete(ctx, textContents(prompt))
	if err != nil {
		return nil, ai.WrapError("ask", err)
	}

	var output askOutput
	if err := decodeOutput(resp, &output); err != nil {
		return nil, ai.WrapError("parse answer", err)
	}

	result := &ai.AskResult{
		Answer:    output.Answer,
		Citations: make([]ai.Citation, 0, len(output.Citations)),
		Usage:     usage,
	}
	for _, c := range output.Citations {
		result.Citations = append(result.Citations, ai.Citation{
			Reference: c.Reference,
			Excerpt:   c.Excerpt,
		})
	}

	p.trackUsage(ctx, params.UserID, params.QuestionID, usage, "ask")
	return result, nil
}

// AnalyzeBlueprint reviews a scanned permit drawing for issues
func (p *Provider) AnalyzeBlueprint(ctx context.Context, params ai.AnalyzeBlueprintParams) (*ai.BlueprintResult, error) {
	if err := validateImageParams(params); err != nil {
		return nil, ai.WrapError("analyze blueprint", err)
	}

	contents := []apiContent{
		{
			Type: "image",
			Source: &apiImageSource{
				Type:      "base64",
				MediaType: params.ContentType,
				Data:      base64.StdEncoding.EncodeToString(params.ImageData),
			},
		},
		{
			Type: "text",
			Text: buildBlueprintPrompt(params.PermitType, params.Notes),
		},
	}

	resp, usage, err := p.complete(ctx, contents)
	if err != nil {
		return nil, ai.WrapError("analyze blueprint", err)
	}

	var output blueprintOutput
	if err := decodeOutput(resp, &output); err != nil {
		return nil, ai.WrapError("parse analysis", err)
	}

	result := &ai.BlueprintResult{
		Summary:     output.Summary,
		DrawingType: output.DrawingType,
		Findings:    make([]ai.Finding, 0, len(output.Findings)),
		Usage:       usage,
	}
	for _, f := range output.Findings {
		finding := ai.Finding{
			Title:       f.Title,
			Description: f.Description,
			Severity:    ai.Severity(f.Severity),
			Reference:   f.Reference,
		}
		if !finding.Severity.Valid() {
			finding.Severity = ai.SeverityWarning
		}
		result.Findings = append(result.Findings, finding)
	}

	p.trackUsage(ctx, params.UserID, params.BlueprintID, usage, "analyze_blueprint")
	return result, nil
}

// GenerateChecklist produces a filing checklist for a permit type
func (p *Provider) GenerateChecklist(ctx context.Context, params ai.ChecklistParams) (*ai.ChecklistResult, error) {
	if params.PermitType == "" {
		return nil, ai.WrapError("generate checklist", ai.EAIInvalidInput)
	}

	prompt := buildChecklistPrompt(params.PermitType, params.ProjectDescription)

	resp, usage, err := p.complete(ctx, textContents(prompt))
	if err != nil {
		return nil, ai.WrapError("generate checklist", err)
	}

	var output checklistOutput
	if err := decodeOutput(resp, &output); err != nil {
		return nil, ai.WrapError("parse checklist", err)
	}
	if len(output.Items) == 0 {
		return nil, ai.WrapError("parse checklist", fmt.Errorf("empty checklist"))
	}

	result := &ai.ChecklistResult{
		Items: make([]ai.ChecklistItem, 0, len(output.Items)),
		Usage: usage,
	}
	for _, item := range output.Items {
		result.Items = append(result.Items, ai.ChecklistItem{
			Title:       item.Title,
			Description: item.Description,
			Required:    item.Required,
			Reference:   item.Reference,
		})
	}

	p.trackUsage(ctx, params.UserID, params.ProjectID, usage, "generate_checklist")
	return result, nil
}

// DraftLetter drafts a transmittal letter to the building authority
func (p *Provider) DraftLetter(ctx context.Context, params ai.LetterParams) (*ai.LetterResult, error) {
	if strings.TrimSpace(params.Purpose) == "" {
		return nil, ai.WrapError("draft letter", ai.EAIInvalidInput)
	}

	prompt := buildLetterPrompt(letterPromptParams{
		Purpose:        params.Purpose,
		Authority:      params.Authority,
		ProjectTitle:   params.ProjectTitle,
		ProjectAddress: params.ProjectAddress,
		PermitType:     params.PermitType,
		EngineerName:   params.EngineerName,
		RegistryNumber: params.RegistryNumber,
	})

	resp, usage, err := p.complete(ctx, textContents(prompt))
	if err != nil {
		return nil, ai.WrapError("draft letter", err)
	}

	var output letterOutput
	if err := decodeOutput(resp, &output); err != nil {
		return nil, ai.WrapError("parse letter", err)
	}

	p.trackUsage(ctx, params.UserID, params.ProjectID, usage, "draft_letter")
	return &ai.LetterResult{
		Subject: output.Subject,
		Body:    output.Body,
		Usage:   usage,
	}, nil
}

// WriteNarrative writes the narrative section of a technical report
func (p *Provider) WriteNarrative(ctx context.Context, params ai.NarrativeParams) (*ai.NarrativeResult, error) {
	prompt := buildNarrativePrompt(
		params.ProjectTitle, params.ProjectAddress, params.PermitType,
		params.FindingsJSON, params.ChecklistJSON,
	)

	resp, usage, err := p.complete(ctx, textContents(prompt))
	if err != nil {
		return nil, ai.WrapError("write narrative", err)
	}

	var output narrativeOutput
	if err := decodeOutput(resp, &output); err != nil {
		return nil, ai.WrapError("parse narrative", err)
	}

	p.trackUsage(ctx, params.UserID, params.ProjectID, usage, "write_narrative")
	return &ai.NarrativeResult{
		Narrative: output.Narrative,
		Usage:     usage,
	}, nil
}

// complete sends one message to the API and returns the parsed response
// along with usage accounting.
func (p *Provider) complete(ctx context.Context, contents []apiContent) (*apiResponse, ai.UsageInfo, error) {
	startTime := time.Now()

	reqBody := apiRequest{
		Model:     p.config.Model,
		MaxTokens: 4096,
		Messages: []apiMessage{
			{Role: "user", Content: contents},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, ai.UsageInfo{}, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := p.executeWithRetry(ctx, bodyBytes)
	if err != nil {
		metrics.AIAPICalls.WithLabelValues("error").Inc()
		return nil, ai.UsageInfo{}, err
	}
	metrics.AIAPICalls.WithLabelValues("ok").Inc()

	usage := ai.UsageInfo{
		Model:        p.config.Model,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
		CostCents:    p.calculateCost(resp.Usage.InputTokens, resp.Usage.OutputTokens),
		Duration:     time.Since(startTime),
	}
	return resp, usage, nil
}

// validateImageParams validates the blueprint analysis parameters
func validateImageParams(params ai.AnalyzeBlueprintParams) error {
	if len(params.ImageData) == 0 {
		return ai.EAIInvalidImage
	}
	if len(params.ImageData) > MaxImageSize {
		return fmt.Errorf("%w: image size %d exceeds maximum %d", ai.EAIInvalidImage, len(params.ImageData), MaxImageSize)
	}
	if params.ContentType == "" {
		return fmt.Errorf("%w: content type is required", ai.EAIInvalidImage)
	}
	validTypes := map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/webp": true,
	}
	if !validTypes[params.ContentType] {
		return fmt.Errorf("%w: unsupported content type %s", ai.EAIInvalidImage, params.ContentType)
	}
	return nil
}

// textContents builds a single-block text message body
func textContents(prompt string) []apiContent {
	return []apiContent{{Type: "text", Text: prompt}}
}

// executeWithRetry executes a request with exponential backoff retry.
// A fresh http.Request is built per attempt so the body can be re-read.
func (p *Provider) executeWithRetry(ctx context.Context, bodyBytes []byte) (*apiResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= p.config.ProviderConfig.MaxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, "POST", APIBaseURL, bytes.NewReader(bodyBytes))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", p.config.APIKey)
		req.Header.Set("anthropic-version", APIVersion)

		resp, err := p.executeRequest(req)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		// Only retry on retryable errors
		if !ai.IsRetryable(err) {
			return nil, err
		}

		// Don't retry if we've exhausted attempts
		if attempt >= p.config.ProviderConfig.MaxRetries {
			break
		}

		// Exponential backoff: base * 2^(attempt-1)
		delay := p.config.ProviderConfig.RetryBaseDelay * time.Duration(1<<(attempt-1))
		p.logger.Info("Retrying AI request", "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
			// Continue to next attempt
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, lastErr
}

// executeRequest executes a single HTTP request
func (p *Provider) executeRequest(req *http.Request) (*apiResponse, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		// Network errors are typically retryable
		return nil, ai.EAIUnavailable
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, p.mapHTTPError(resp.StatusCode, bodyBytes)
	}

	var apiResp apiResponse
	if err := json.Unmarshal(bodyBytes, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &apiResp, nil
}

// mapHTTPError maps HTTP status codes to domain errors
func (p *Provider) mapHTTPError(statusCode int, body []byte) error {
	var errResp apiErrorResponse
	_ = json.Unmarshal(body, &errResp)

	switch statusCode {
	case http.StatusUnauthorized:
		return ai.EAIUnauthorized
	case http.StatusTooManyRequests:
		return ai.EAIRateLimit
	case http.StatusRequestTimeout:
		return ai.EAITimeout
	case http.StatusBadRequest:
		if errResp.Error.Type == "invalid_request_error" {
			return ai.EAIInvalidInput
		}
		return fmt.Errorf("bad request: %s", errResp.Error.Message)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return ai.EAIUnavailable
	default:
		return fmt.Errorf("API error (status %d): %s", statusCode, errResp.Error.Message)
	}
}

// decodeOutput extracts the text block from a response and unmarshals the
// JSON object the prompt asked for.
func decodeOutput(resp *apiResponse, out any) error {
	if len(resp.Content) == 0 {
		return fmt.Errorf("empty response content")
	}

	var textContent string
	for _, content := range resp.Content {
		if content.Type == "text" {
			textContent = content.Text
			break
		}
	}
	if textContent == "" {
		return fmt.Errorf("no text content in response")
	}

	// Models occasionally wrap the object in a markdown fence despite
	// instructions. Strip it before unmarshaling.
	textContent = strings.TrimSpace(textContent)
	textContent = strings.TrimPrefix(textContent, "```json")
	textContent = strings.TrimPrefix(textContent, "```")
	textContent = strings.TrimSuffix(textContent, "```")

	if err := json.Unmarshal([]byte(strings.TrimSpace(textContent)), out); err != nil {
		return fmt.Errorf("parse model output: %w", err)
	}
	return nil
}

// calculateCost calculates the cost in cents for the given token usage
func (p *Provider) calculateCost(inputTokens, outputTokens int) int {
	inputCost := (inputTokens * PricingInputCents) / 1_000_000
	outputCost := (outputTokens * PricingOutputCents) / 1_000_000
	return inputCost + outputCost
}

// trackUsage records AI usage in the database and exports it to metrics.
// Failures are logged, never surfaced; accounting must not break the tool.
func (p *Provider) trackUsage(ctx context.Context, userID, subjectID uuid.UUID, usage ai.UsageInfo, requestType string) {
	metrics.AITokensTotal.WithLabelValues("input").Add(float64(usage.InputTokens))
	metrics.AITokensTotal.WithLabelValues("output").Add(float64(usage.OutputTokens))
	metrics.AICostCentsTotal.Add(float64(usage.CostCents))

	_, err := p.queries.CreateAIUsage(ctx, repository.CreateAIUsageParams{
		UserID: userID,
		SubjectID: uuid.NullUUID{
			UUID:  subjectID,
			Valid: subjectID != uuid.Nil,
		},
		Model:        usage.Model,
		InputTokens:  int32(usage.InputTokens),
		OutputTokens: int32(usage.OutputTokens),
		CostCents:    int32(usage.CostCents),
		RequestType:  requestType,
	})
	if err != nil {
		p.logger.Error("Failed to track AI usage", "error", err, "request_type", requestType)
	}
}

// API request/response types

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string       `json:"role"`
	Content []apiContent `json:"content"`
}

type apiContent struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Source *apiImageSource `json:"source,omitempty"`
}

type apiImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type apiResponse struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Role    string             `json:"role"`
	Content []apiContentOutput `json:"content"`
	Model   string             `json:"model"`
	Usage   apiUsage           `json:"usage"`
}

type apiContentOutput struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type apiUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type apiErrorResponse struct {
	Type  string   `json:"type"`
	Error apiError `json:"error"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Output shapes the prompts ask the model to return

type askOutput struct {
	Answer    string           `json:"answer"`
	Citations []citationOutput `json:"citations"`
}

type citationOutput struct {
	Reference string `json:"reference"`
	Excerpt   string `json:"excerpt"`
}

type blueprintOutput struct {
	Summary     string          `json:"summary"`
	DrawingType string          `json:"drawing_type"`
	Findings    []findingOutput `json:"findings"`
}

type findingOutput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Reference   string `json:"reference"`
}

type checklistOutput struct {
	Items []checklistItemOutput `json:"items"`
}

type checklistItemOutput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
	Reference   string `json:"reference"`
}

type letterOutput struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type narrativeOutput struct {
	Narrative string `json:"narrative"`
}
