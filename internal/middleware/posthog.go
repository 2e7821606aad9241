package middleware

import (
	"net/http"
	"strings"

	"github.com/SscSPs/txn_ingest/internal/utils"
	"github.com/gin-gonic/gin"
)

// untrackedPrefixes are routes that never produce product events.
var untrackedPrefixes = []string{"/health", "/metrics", "/swagger", "/webhooks"}

// PosthogMiddleware sends one event per successful authenticated API call,
// named after the route template: "/api/v1/queue/approve" becomes
// "api_v1_queue_approve".
func PosthogMiddleware(client *utils.AnalyticsClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if !client.Enabled() || c.Writer.Status() >= http.StatusBadRequest || len(c.Errors) > 0 {
			return
		}
		eventName := routeEventName(c.FullPath())
		if eventName == "" {
			return
		}
		userID, ok := GetUserIDFromContext(c)
		if !ok {
			return
		}

		props := map[string]any{
			"method":      c.Request.Method,
			"status_code": c.Writer.Status(),
		}
		// Only the ids the routes carry, never query strings or bodies
		for _, p := range c.Params {
			props[p.Key] = p.Value
		}
		client.Capture(userID, eventName, props)
	}
}

func routeEventName(fullPath string) string {
	if fullPath == "" {
		return ""
	}
	for _, prefix := range untrackedPrefixes {
		if strings.HasPrefix(fullPath, prefix) {
			return ""
		}
	}
	var parts []string
	for _, seg := range strings.Split(strings.Trim(fullPath, "/"), "/") {
		if seg == "" || strings.HasPrefix(seg, ":") || strings.HasPrefix(seg, "*") {
			continue
		}
		parts = append(parts, strings.ReplaceAll(seg, "-", "_"))
	}
	return strings.Join(parts, "_")
}

// PosthogTracker sends named product events such as "import_committed".
type PosthogTracker struct {
	client *utils.AnalyticsClient
}

// NewPosthogTracker returns a tracker that is a no-op when client is not initialized.
func NewPosthogTracker(client *utils.AnalyticsClient) *PosthogTracker {
	return &PosthogTracker{client: client}
}

// Track attributes the event to the authenticated user; anonymous calls are dropped.
func (t *PosthogTracker) Track(c *gin.Context, eventName string, properties map[string]any) {
	if t == nil || !t.client.Enabled() {
		return
	}
	userID, ok := GetUserIDFromContext(c)
	if !ok {
		return
	}
	props := make(map[string]any, len(properties)+1)
	for k, v := range properties {
		props[k] = v
	}
	props["route"] = c.FullPath()
	t.client.Capture(userID, eventName, props)
}
