// Package gemini extracts statement text, image tables and category
// suggestions through the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"google.golang.org/genai"
)

const providerName = "gemini"

const textPrompt = "Transcribe this bank or card statement to plain text.\n" +
	"Keep one transaction per line in reading order, with its date, description and amounts separated by spaces.\n" +
	"Keep the statement period and any year headings.\n" +
	"Do not summarize, reorder or add commentary."

const rowsPrompt = "The image shows a table of bank transactions.\n" +
	"Return STRICT JSON only: an array of rows, each row an array of cell strings, left to right.\n" +
	"The first row is the table header as printed; if there is none, invent none.\n" +
	"Copy dates and amounts exactly as printed, including signs and currency symbols.\n" +
	"Do NOT wrap the response in code fences."

// generator is the slice of genai.Models the adapter calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Client implements the text, vision and categorizer collaborators.
type Client struct {
	models     generator
	model      string
	categories []string
}

var (
	_ portssvc.TextExtractor   = (*Client)(nil)
	_ portssvc.VisionExtractor = (*Client)(nil)
	_ portssvc.Categorizer     = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithCategories restricts category suggestions to the given names.
func WithCategories(categories []string) Option {
	return func(c *Client) { c.categories = categories }
}

// NewClient creates a Gemini API client for model.
func NewClient(ctx context.Context, apiKey, model string, options ...Option) (*Client, error) {
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newClient(gc.Models, model, options...), nil
}

func newClient(models generator, model string, options ...Option) *Client {
	c := &Client{models: models, model: model}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *Client) generate(ctx context.Context, parts []*genai.Part, config *genai.GenerateContentConfig) (string, error) {
	contents := []*genai.Content{{Role: "user", Parts: parts}}
	resp, err := c.models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", classify(err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("%w: %s returned an empty response", apperrors.ErrExternalService, providerName)
	}
	return text, nil
}

// ExtractText transcribes a PDF or scanned statement.
func (c *Client) ExtractText(ctx context.Context, doc domain.Document) (string, error) {
	parts := []*genai.Part{
		{Text: textPrompt},
		{InlineData: &genai.Blob{MIMEType: doc.MIMEType, Data: doc.Data}},
	}
	return c.generate(ctx, parts, &genai.GenerateContentConfig{Temperature: genai.Ptr[float32](0)})
}

// ExtractRows reads a transaction table out of an image.
func (c *Client) ExtractRows(ctx context.Context, doc domain.Document) ([][]string, error) {
	parts := []*genai.Part{
		{Text: rowsPrompt},
		{InlineData: &genai.Blob{MIMEType: doc.MIMEType, Data: doc.Data}},
	}
	raw, err := c.generate(ctx, parts, &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0),
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return nil, err
	}
	var rows [][]string
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &rows); err != nil {
		return nil, fmt.Errorf("%w: %s returned malformed rows: %v", apperrors.ErrExternalService, providerName, err)
	}
	return rows, nil
}

// Suggest asks for a single category name. An answer outside the configured
// categories is dropped.
func (c *Client) Suggest(ctx context.Context, txn domain.CanonicalTransaction) (string, error) {
	var b strings.Builder
	b.WriteString("Suggest a spending category for this bank transaction. Answer with the category name only.\n")
	if len(c.categories) > 0 {
		b.WriteString("Choose one of: " + strings.Join(c.categories, ", ") + ". Answer NONE if nothing fits.\n")
	}
	fmt.Fprintf(&b, "Description: %s\nMerchant: %s\nAmount: %s\nDirection: %s\n",
		txn.Description, txn.Merchant, txn.Amount.StringFixed(2), txn.Direction)

	answer, err := c.generate(ctx, []*genai.Part{{Text: b.String()}}, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0),
		MaxOutputTokens: 20,
	})
	if err != nil {
		return "", err
	}
	answer = strings.Trim(strings.TrimSpace(answer), `."'`)
	if strings.EqualFold(answer, "none") {
		return "", nil
	}
	if len(c.categories) == 0 {
		return answer, nil
	}
	for _, cat := range c.categories {
		if strings.EqualFold(cat, answer) {
			return cat, nil
		}
	}
	return "", nil
}

// classify maps API errors to RateLimitError or ErrExternalService.
func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == http.StatusTooManyRequests {
			return &apperrors.RateLimitError{Provider: providerName}
		}
		return fmt.Errorf("%w: %s: %d %s", apperrors.ErrExternalService, providerName, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("%w: %s: %v", apperrors.ErrExternalService, providerName, err)
}

// cleanJSON strips Markdown fences and any text around the outer array.
func cleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}
