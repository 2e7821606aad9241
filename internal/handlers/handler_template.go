package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/SscSPs/txn_ingest/internal/middleware"
	"github.com/gin-gonic/gin"
)

// templateHandler handles saved column mappings.
type templateHandler struct {
	templateService portssvc.TemplateSvc
}

func registerTemplateRoutes(rg *gin.RouterGroup, templateService portssvc.TemplateSvc) {
	h := &templateHandler{templateService: templateService}

	templates := rg.Group("/templates")
	{
		templates.GET("", h.listTemplates)
		templates.DELETE("/:id", h.deleteTemplate)
	}
}

// listTemplates godoc
// @Summary List saved import templates
// @Description Lists the caller's remembered column mappings, optionally for one account
// @Tags templates
// @Produce  json
// @Param   accountID query string false "Account ID"
// @Success 200 {array} domain.ImportTemplate
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list templates"
// @Security BearerAuth
// @Router /templates [get]
func (h *templateHandler) listTemplates(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	accountID := c.Query("accountID")

	templates, err := h.templateService.List(c.Request.Context(), userID, accountID)
	if err != nil {
		respondError(c, logger, err, "Failed to list templates")
		return
	}
	if templates == nil {
		templates = []domain.ImportTemplate{}
	}
	c.JSON(http.StatusOK, templates)
}

// deleteTemplate godoc
// @Summary Delete an import template
// @Tags templates
// @Param   id path string true "Template ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Template belongs to another user"
// @Failure 404 {object} map[string]string "Template not found"
// @Failure 500 {object} map[string]string "Failed to delete template"
// @Security BearerAuth
// @Router /templates/{id} [delete]
func (h *templateHandler) deleteTemplate(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	templateID := c.Param("id")
	logger = logger.With(slog.String("template_id", templateID))

	if err := h.templateService.Delete(c.Request.Context(), userID, templateID); err != nil {
		respondError(c, logger, err, "Failed to delete template")
		return
	}
	logger.Info("Template deleted")
	c.Status(http.StatusNoContent)
}
