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

// queueHandler handles the review queue fed by automatic sources.
type queueHandler struct {
	queueService portssvc.QueueSvcFacade
	events       EventTracker
}

func registerQueueRoutes(rg *gin.RouterGroup, queueService portssvc.QueueSvcFacade, events EventTracker) {
	h := &queueHandler{queueService: queueService, events: events}

	queue := rg.Group("/queue")
	{
		queue.GET("/items", h.listItems)
		queue.POST("/items/:id/transition", h.transitionItem)
		queue.POST("/approve", h.approveAndCommit)
		queue.GET("/batches", h.listBatches)
	}
}

// listItems godoc
// @Summary List review queue items
// @Description Pages queue items newest first, filtered by account and optionally batch, setup and status
// @Tags queue
// @Produce  json
// @Param   accountID query string true "Account ID"
// @Param   batchID query string false "Batch ID"
// @Param   setupID query string false "Setup ID"
// @Param   status query []string false "Statuses" collectionFormat(multi)
// @Param   limit query int false "Page size" default(50)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListQueueItemsResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Account not linked to the caller"
// @Failure 500 {object} map[string]string "Failed to list queue items"
// @Security BearerAuth
// @Router /queue/items [get]
func (h *queueHandler) listItems(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	var params dto.ListQueueItemsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query params for ListItems", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	resp, err := h.queueService.ListItems(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, logger, err, "Failed to list queue items")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// transitionItem godoc
// @Summary Move a queue item to a new review status
// @Tags queue
// @Accept  json
// @Produce  json
// @Param   id path string true "Queue item ID"
// @Param   request body dto.TransitionRequest true "Target status"
// @Success 200 {object} domain.QueuedImportItem
// @Failure 400 {object} map[string]string "Invalid status or transition"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Account not linked to the caller"
// @Failure 404 {object} map[string]string "Queue item not found"
// @Failure 409 {object} map[string]string "Item changed concurrently"
// @Failure 500 {object} map[string]string "Failed to update queue item"
// @Security BearerAuth
// @Router /queue/items/{id}/transition [post]
func (h *queueHandler) transitionItem(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for TransitionItem", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}
	itemID := c.Param("id")
	logger = logger.With(slog.String("item_id", itemID), slog.String("status", req.Status))

	item, err := h.queueService.Transition(c.Request.Context(), itemID, domain.QueueStatus(req.Status), userID, req.Notes)
	if err != nil {
		respondError(c, logger, err, "Failed to update queue item")
		return
	}
	logger.Info("Queue item transitioned")
	c.JSON(http.StatusOK, item)
}

// approveAndCommit godoc
// @Summary Approve and commit queue items
// @Description Approves each item if needed and writes it to the ledger with the given splits. Items succeed or fail independently.
// @Tags queue
// @Accept  json
// @Produce  json
// @Param   request body dto.ApproveRequest true "Items and their splits"
// @Success 200 {object} domain.CommitResult
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to approve items"
// @Security BearerAuth
// @Router /queue/approve [post]
func (h *queueHandler) approveAndCommit(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	var req dto.ApproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ApproveAndCommit", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	result, err := h.queueService.ApproveAndCommit(c.Request.Context(), userID, req.Items)
	if err != nil {
		respondError(c, logger, err, "Failed to approve items")
		return
	}
	logger.Info("Queue items approved", slog.Int("committed", len(result.Committed)), slog.Int("failed", len(result.Failed)))
	if h.events != nil {
		h.events.Track(c, "queue_items_committed", map[string]any{
			"requested": len(req.Items),
			"committed": len(result.Committed),
			"failed":    len(result.Failed),
		})
	}
	c.JSON(http.StatusOK, result)
}

// listBatches godoc
// @Summary List import batches
// @Description Lists batches with per-status counts and the derived batch status
// @Tags queue
// @Produce  json
// @Param   accountID query string true "Account ID"
// @Success 200 {array} domain.ImportBatch
// @Failure 400 {object} map[string]string "accountID is required"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Account not linked to the caller"
// @Failure 500 {object} map[string]string "Failed to list batches"
// @Security BearerAuth
// @Router /queue/batches [get]
func (h *queueHandler) listBatches(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	accountID := c.Query("accountID")
	if accountID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "accountID query parameter is required"})
		return
	}

	batches, err := h.queueService.ListBatches(c.Request.Context(), userID, accountID)
	if err != nil {
		respondError(c, logger, err, "Failed to list batches")
		return
	}
	if batches == nil {
		batches = []domain.ImportBatch{}
	}
	c.JSON(http.StatusOK, batches)
}
