package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/txn_ingest/internal/apperrors"
	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/SscSPs/txn_ingest/internal/dto"
	"github.com/SscSPs/txn_ingest/internal/middleware"
	"github.com/gin-gonic/gin"
)

// WebhookTokenHeader carries the per-setup secret on aggregator callbacks.
const WebhookTokenHeader = "X-Webhook-Token"

type webhookHandler struct {
	setupService portssvc.SetupSvc
	bankSync     portssvc.BankSyncSvc
}

// registerWebhookRoutes registers the aggregator callback. It sits outside
// JWT auth; the setup's webhook token authenticates the caller.
func registerWebhookRoutes(r *gin.Engine, setupService portssvc.SetupSvc, bankSync portssvc.BankSyncSvc) {
	h := &webhookHandler{setupService: setupService, bankSync: bankSync}
	r.POST("/webhooks/bank/:setupID", h.bankWebhook)
}

// bankWebhook godoc
// @Summary Receive a bank aggregator webhook
// @Description Queues pushed transactions, or pulls new ones when the payload only signals that data is ready
// @Tags webhooks
// @Accept  json
// @Produce  json
// @Param   setupID path string true "Setup ID"
// @Param   X-Webhook-Token header string true "Setup webhook token"
// @Param   payload body dto.BankWebhookPayload true "Webhook payload"
// @Success 200 {object} domain.EnqueueResult
// @Failure 400 {object} map[string]string "Invalid payload"
// @Failure 401 {object} map[string]string "Invalid webhook token"
// @Failure 503 {object} map[string]string "Bank feed not configured"
// @Failure 500 {object} map[string]string "Failed to process webhook"
// @Router /webhooks/bank/{setupID} [post]
func (h *webhookHandler) bankWebhook(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	setupID := c.Param("setupID")
	logger = logger.With(slog.String("setup_id", setupID))

	setup, err := h.setupService.VerifyWebhook(c.Request.Context(), setupID, c.GetHeader(WebhookTokenHeader))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// Unknown setup and bad token look the same to the caller
			logger.Warn("Webhook rejected", slog.String("error", err.Error()))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid webhook token"})
			return
		}
		respondError(c, logger, err, "Failed to verify webhook")
		return
	}
	if setup.Kind != domain.SourceKindBankAPI {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Setup does not accept bank webhooks"})
		return
	}
	if h.bankSync == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Bank feed is not configured"})
		return
	}

	var payload dto.BankWebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		logger.Warn("Failed to bind JSON for BankWebhook", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload: " + err.Error()})
		return
	}

	// The aggregator is the caller; act as the setup owner from here on
	ctx := middleware.WithUserID(c.Request.Context(), setup.UserID)
	result, err := h.bankSync.HandleWebhook(ctx, *setup, payload)
	if err != nil {
		respondError(c, logger, err, "Failed to process webhook")
		return
	}
	logger.Info("Webhook processed", slog.String("event", payload.Event), slog.Int("enqueued", result.Enqueued))
	c.JSON(http.StatusOK, result)
}
