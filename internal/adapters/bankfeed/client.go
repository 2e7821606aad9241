// Package bankfeed pulls transactions from a bank aggregator REST API.
package bankfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
)

const (
	providerName = "bank_feed"
	// APIKeyHeader carries the aggregator credential.
	APIKeyHeader = "X-API-Key"
	maxErrorBody = 4 << 10
)

// Client implements portssvc.BankFeedClient.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ portssvc.BankFeedClient = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient returns a client for the aggregator at baseURL.
func NewClient(baseURL, apiKey string, options ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

type pageResponse struct {
	Transactions []domain.BankTransaction `json:"transactions"`
	NextCursor   *string                  `json:"nextCursor"`
	HasMore      bool                     `json:"hasMore"`
}

// FetchTransactions reads the page after cursor. A nil cursor starts from the
// beginning of the history the aggregator keeps.
func (c *Client) FetchTransactions(ctx context.Context, externalRef string, cursor *string) (*domain.BankFeedPage, error) {
	if externalRef == "" {
		return nil, fmt.Errorf("%w: bank account reference is required", apperrors.ErrValidation)
	}
	u := fmt.Sprintf("%s/accounts/%s/transactions", c.baseURL, url.PathEscape(externalRef))
	if cursor != nil && *cursor != "" {
		u += "?" + url.Values{"cursor": {*cursor}}.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build bank feed request: %w", err)
	}
	req.Header.Set(APIKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperrors.ErrExternalService, providerName, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &apperrors.RateLimitError{Provider: providerName, RetryAfter: retryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: bank account %s", apperrors.ErrNotFound, externalRef)
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %s: %d %s", apperrors.ErrExternalService, providerName, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var page pageResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("%w: %s returned malformed page: %v", apperrors.ErrExternalService, providerName, err)
	}
	for i := range page.Transactions {
		// Some aggregators send signed amounts; direction is authoritative.
		page.Transactions[i].Amount = page.Transactions[i].Amount.Abs()
		if page.Transactions[i].AccountRef == "" {
			page.Transactions[i].AccountRef = externalRef
		}
	}
	return &domain.BankFeedPage{
		Transactions: page.Transactions,
		NextCursor:   page.NextCursor,
		HasMore:      page.HasMore,
	}, nil
}

// retryAfter accepts delta-seconds or an HTTP date.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
