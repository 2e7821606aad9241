package utils

import (
	"log/slog"

	"github.com/posthog/posthog-go"
)

// DefaultAnalyticsEndpoint is used when POSTHOG_ENDPOINT is unset.
const DefaultAnalyticsEndpoint = "https://eu.i.posthog.com"

// AnalyticsClient forwards product events to PostHog. A nil or disabled
// client drops events silently.
type AnalyticsClient struct {
	client posthog.Client
	logger *slog.Logger
}

// NewAnalyticsClient returns a disabled client when apiKey is empty or the
// PostHog client cannot be built; analytics never blocks startup.
func NewAnalyticsClient(apiKey, endpoint string, logger *slog.Logger) *AnalyticsClient {
	if logger == nil {
		logger = slog.Default()
	}
	if apiKey == "" {
		logger.Warn("POSTHOG_API_KEY not set, product analytics disabled")
		return &AnalyticsClient{logger: logger}
	}
	if endpoint == "" {
		endpoint = DefaultAnalyticsEndpoint
	}
	client, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpoint})
	if err != nil {
		logger.Error("PostHog client init failed, analytics disabled", slog.String("error", err.Error()))
		return &AnalyticsClient{logger: logger}
	}
	logger.Info("Product analytics enabled", slog.String("endpoint", endpoint))
	return &AnalyticsClient{client: client, logger: logger}
}

// Enabled reports whether events are actually sent.
func (a *AnalyticsClient) Enabled() bool {
	return a != nil && a.client != nil
}

// Capture queues one event for distinctID.
func (a *AnalyticsClient) Capture(distinctID, event string, properties map[string]any) {
	if !a.Enabled() {
		return
	}
	err := a.client.Enqueue(posthog.Capture{
		DistinctId: distinctID,
		Event:      event,
		Properties: properties,
	})
	if err != nil {
		a.logger.Warn("Dropping analytics event", slog.String("event", event), slog.String("error", err.Error()))
	}
}

// Close flushes queued events.
func (a *AnalyticsClient) Close() {
	if a.Enabled() {
		_ = a.client.Close()
	}
}
