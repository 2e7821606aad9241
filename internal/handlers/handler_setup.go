package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/SscSPs/txn_ingest/internal/dto"
	"github.com/SscSPs/txn_ingest/internal/middleware"
	"github.com/gin-gonic/gin"
)

// setupHandler handles automatic import sources. bankSync and emailIngest are
// nil when the matching collaborator is not configured.
type setupHandler struct {
	setupService portssvc.SetupSvc
	bankSync     portssvc.BankSyncSvc
	emailIngest  portssvc.EmailIngestSvc
}

func registerSetupRoutes(rg *gin.RouterGroup, services *portssvc.ServiceContainer) {
	h := &setupHandler{
		setupService: services.Setup,
		bankSync:     services.BankSync,
		emailIngest:  services.EmailIngest,
	}

	setups := rg.Group("/setups")
	{
		setups.POST("", h.createSetup)
		setups.GET("", h.listSetups)
		setups.GET("/:id", h.getSetup)
		setups.POST("/:id/sync", h.syncSetup)
	}
}

// createSetup godoc
// @Summary Register an automatic import source
// @Description Links an account to a bank aggregator item or a mailbox query. The webhook token is returned only once.
// @Tags setups
// @Accept  json
// @Produce  json
// @Param   request body dto.CreateSetupRequest true "Setup details"
// @Success 201 {object} dto.CreateSetupResponse
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Setup already exists"
// @Failure 500 {object} map[string]string "Failed to create setup"
// @Security BearerAuth
// @Router /setups [post]
func (h *setupHandler) createSetup(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	var req dto.CreateSetupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateSetup", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	setup, token, err := h.setupService.CreateSetup(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, logger, err, "Failed to create setup")
		return
	}
	c.JSON(http.StatusCreated, dto.CreateSetupResponse{Setup: *setup, WebhookToken: token})
}

// listSetups godoc
// @Summary List import setups
// @Tags setups
// @Produce  json
// @Success 200 {array} domain.ImportSetup
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list setups"
// @Security BearerAuth
// @Router /setups [get]
func (h *setupHandler) listSetups(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	setups, err := h.setupService.ListSetups(c.Request.Context(), userID)
	if err != nil {
		respondError(c, logger, err, "Failed to list setups")
		return
	}
	c.JSON(http.StatusOK, setups)
}

// getSetup godoc
// @Summary Get an import setup
// @Tags setups
// @Produce  json
// @Param   id path string true "Setup ID"
// @Success 200 {object} domain.ImportSetup
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Setup belongs to another user"
// @Failure 404 {object} map[string]string "Setup not found"
// @Failure 500 {object} map[string]string "Failed to get setup"
// @Security BearerAuth
// @Router /setups/{id} [get]
func (h *setupHandler) getSetup(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	setup, err := h.setupService.GetSetup(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "Failed to get setup")
		return
	}
	c.JSON(http.StatusOK, setup)
}

// syncSetup godoc
// @Summary Run an automatic import now
// @Description Pulls new bank transactions or polls the mailbox, depending on the setup kind, and queues them for review
// @Tags setups
// @Produce  json
// @Param   id path string true "Setup ID"
// @Success 200 {object} domain.EnqueueResult
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Setup belongs to another user"
// @Failure 404 {object} map[string]string "Setup not found"
// @Failure 429 {object} map[string]string "Provider rate limited"
// @Failure 502 {object} map[string]string "Provider failed"
// @Failure 503 {object} map[string]string "Source not configured"
// @Failure 500 {object} map[string]string "Failed to sync setup"
// @Security BearerAuth
// @Router /setups/{id}/sync [post]
func (h *setupHandler) syncSetup(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	setup, err := h.setupService.GetSetup(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, logger, err, "Failed to get setup")
		return
	}
	logger = logger.With(slog.String("setup_id", setup.SetupID), slog.String("kind", string(setup.Kind)))
	if !setup.IsActive {
		c.JSON(http.StatusConflict, gin.H{"error": "Setup is inactive"})
		return
	}

	var result *domain.EnqueueResult
	switch setup.Kind {
	case domain.SourceKindBankAPI:
		if h.bankSync == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Bank feed is not configured"})
			return
		}
		result, err = h.bankSync.SyncSetup(c.Request.Context(), *setup)
	case domain.SourceKindEmail:
		if h.emailIngest == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Mailbox is not configured"})
			return
		}
		result, err = h.emailIngest.PollSetup(c.Request.Context(), *setup)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported setup kind"})
		return
	}
	if err != nil {
		respondError(c, logger, err, "Failed to sync setup")
		return
	}
	logger.Info("Setup synced", slog.Int("received", result.Received), slog.Int("enqueued", result.Enqueued))
	c.JSON(http.StatusOK, result)
}
