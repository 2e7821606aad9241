package handlers

import (
	"log/slog"
	"net/http"
	"time"

	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/SscSPs/txn_ingest/internal/dto"
	"github.com/SscSPs/txn_ingest/internal/middleware"
	"github.com/gin-gonic/gin"
)

type maintenanceHandler struct {
	maintenanceService portssvc.MaintenanceSvc
	defaultGrace       time.Duration
}

func registerMaintenanceRoutes(rg *gin.RouterGroup, maintenanceService portssvc.MaintenanceSvc, defaultGrace time.Duration) {
	h := &maintenanceHandler{maintenanceService: maintenanceService, defaultGrace: defaultGrace}
	rg.POST("/maintenance/sweep-orphans", h.sweepOrphans)
}

// sweepOrphans godoc
// @Summary Remove orphaned commit claims
// @Description Deletes committed-hash claims that never got a ledger link within the grace period
// @Tags maintenance
// @Produce  json
// @Param   grace query string false "Grace period as a Go duration, e.g. 1h"
// @Success 200 {object} dto.SweepOrphansResponse
// @Failure 400 {object} map[string]string "Invalid grace period"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to sweep orphans"
// @Security BearerAuth
// @Router /maintenance/sweep-orphans [post]
func (h *maintenanceHandler) sweepOrphans(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	if _, ok := requireUser(c, logger); !ok {
		return
	}
	grace := h.defaultGrace
	if raw := c.Query("grace"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid grace: " + err.Error()})
			return
		}
		grace = d
	}

	deleted, err := h.maintenanceService.SweepOrphans(c.Request.Context(), grace)
	if err != nil {
		respondError(c, logger, err, "Failed to sweep orphans")
		return
	}
	logger.Info("Orphan sweep finished", slog.Int64("deleted", deleted), slog.Duration("grace", grace))
	c.JSON(http.StatusOK, dto.SweepOrphansResponse{Deleted: deleted})
}
