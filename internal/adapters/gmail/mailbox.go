// Package gmail reads statement attachments from a Gmail mailbox.
package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	providerName = "gmail"
	me           = "me"
	maxMessages  = 100
)

// Config holds the OAuth client and the refresh token of the mailbox owner.
type Config struct {
	ClientID       string
	ClientSecret   string
	RefreshToken   string
	ProcessedLabel string
}

// Mailbox implements portssvc.Mailbox over the Gmail API. Processed messages
// get ProcessedLabel and are excluded from later searches.
type Mailbox struct {
	srv            *gmailapi.Service
	processedLabel string

	mu      sync.Mutex
	labelID string
}

var _ portssvc.Mailbox = (*Mailbox)(nil)

// NewMailbox authenticates with the stored refresh token.
func NewMailbox(ctx context.Context, cfg Config) (*Mailbox, error) {
	if cfg.RefreshToken == "" {
		return nil, errors.New("gmail refresh token is not configured")
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmailapi.GmailModifyScope},
		Endpoint:     google.Endpoint,
	}
	ts := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	return NewMailboxWithOptions(ctx, cfg.ProcessedLabel, option.WithTokenSource(ts))
}

// NewMailboxWithOptions builds the Gmail service from explicit client options.
func NewMailboxWithOptions(ctx context.Context, processedLabel string, opts ...option.ClientOption) (*Mailbox, error) {
	srv, err := gmailapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &Mailbox{srv: srv, processedLabel: processedLabel}, nil
}

// searchQuery narrows query to unprocessed messages with attachments.
func (m *Mailbox) searchQuery(query string) string {
	q := strings.TrimSpace(query) + " has:attachment"
	if m.processedLabel != "" {
		q += fmt.Sprintf(` -label:"%s"`, m.processedLabel)
	}
	return strings.TrimSpace(q)
}

func (m *Mailbox) ListMessages(ctx context.Context, query string) ([]domain.MailMessage, error) {
	var ids []string
	call := m.srv.Users.Messages.List(me).Q(m.searchQuery(query)).MaxResults(maxMessages)
	err := call.Pages(ctx, func(resp *gmailapi.ListMessagesResponse) error {
		for _, msg := range resp.Messages {
			ids = append(ids, msg.Id)
		}
		if len(ids) >= maxMessages {
			return errStopPaging
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopPaging) {
		return nil, classify(err)
	}

	out := make([]domain.MailMessage, 0, len(ids))
	for _, id := range ids {
		msg, err := m.srv.Users.Messages.Get(me, id).Format("metadata").MetadataHeaders("Subject", "From").Context(ctx).Do()
		if err != nil {
			return nil, classify(err)
		}
		out = append(out, toMailMessage(msg))
	}
	return out, nil
}

var errStopPaging = errors.New("enough messages")

func toMailMessage(msg *gmailapi.Message) domain.MailMessage {
	mm := domain.MailMessage{
		ID:         msg.Id,
		ReceivedAt: time.UnixMilli(msg.InternalDate).UTC(),
	}
	if msg.Payload != nil {
		for _, h := range msg.Payload.Headers {
			switch strings.ToLower(h.Name) {
			case "subject":
				mm.Subject = h.Value
			case "from":
				mm.From = h.Value
			}
		}
	}
	return mm
}

func (m *Mailbox) FetchAttachments(ctx context.Context, messageID string) ([]domain.Document, error) {
	msg, err := m.srv.Users.Messages.Get(me, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, classify(err)
	}
	var docs []domain.Document
	for _, part := range attachmentParts(msg.Payload) {
		var encoded string
		switch {
		case part.Body.Data != "":
			encoded = part.Body.Data
		case part.Body.AttachmentId != "":
			body, err := m.srv.Users.Messages.Attachments.Get(me, messageID, part.Body.AttachmentId).Context(ctx).Do()
			if err != nil {
				return nil, classify(err)
			}
			encoded = body.Data
		default:
			continue
		}
		data, err := decodeBody(encoded)
		if err != nil {
			return nil, fmt.Errorf("decode attachment %q of message %s: %w", part.Filename, messageID, err)
		}
		docs = append(docs, domain.Document{Filename: part.Filename, MIMEType: part.MimeType, Data: data})
	}
	return docs, nil
}

// attachmentParts walks the MIME tree and returns the parts with a filename.
func attachmentParts(p *gmailapi.MessagePart) []*gmailapi.MessagePart {
	if p == nil {
		return nil
	}
	var out []*gmailapi.MessagePart
	if p.Filename != "" && p.Body != nil {
		out = append(out, p)
	}
	for _, child := range p.Parts {
		out = append(out, attachmentParts(child)...)
	}
	return out
}

// decodeBody accepts padded and unpadded base64url.
func decodeBody(s string) ([]byte, error) {
	if data, err := base64.URLEncoding.DecodeString(s); err == nil {
		return data, nil
	}
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}

func (m *Mailbox) MarkProcessed(ctx context.Context, messageID string) error {
	if m.processedLabel == "" {
		return nil
	}
	labelID, err := m.processedLabelID(ctx)
	if err != nil {
		return err
	}
	_, err = m.srv.Users.Messages.Modify(me, messageID, &gmailapi.ModifyMessageRequest{AddLabelIds: []string{labelID}}).Context(ctx).Do()
	if err != nil {
		return classify(err)
	}
	return nil
}

// processedLabelID finds or creates the processed label once per Mailbox.
func (m *Mailbox) processedLabelID(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.labelID != "" {
		return m.labelID, nil
	}
	labels, err := m.srv.Users.Labels.List(me).Context(ctx).Do()
	if err != nil {
		return "", classify(err)
	}
	for _, l := range labels.Labels {
		if l.Name == m.processedLabel {
			m.labelID = l.Id
			return l.Id, nil
		}
	}
	created, err := m.srv.Users.Labels.Create(me, &gmailapi.Label{
		Name:                  m.processedLabel,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	}).Context(ctx).Do()
	if err != nil {
		return "", classify(err)
	}
	m.labelID = created.Id
	return created.Id, nil
}

// classify maps Google API errors to RateLimitError or ErrExternalService.
func classify(err error) error {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		if gErr.Code == http.StatusTooManyRequests || (gErr.Code == http.StatusForbidden && isRateLimitReason(gErr)) {
			return &apperrors.RateLimitError{Provider: providerName, RetryAfter: retryAfter(gErr.Header)}
		}
		return fmt.Errorf("%w: %s: %d %s", apperrors.ErrExternalService, providerName, gErr.Code, gErr.Message)
	}
	return fmt.Errorf("%w: %s: %v", apperrors.ErrExternalService, providerName, err)
}

func isRateLimitReason(gErr *googleapi.Error) bool {
	for _, item := range gErr.Errors {
		if item.Reason == "rateLimitExceeded" || item.Reason == "userRateLimitExceeded" {
			return true
		}
	}
	return false
}

func retryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	if secs, err := strconv.Atoi(h.Get("Retry-After")); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
