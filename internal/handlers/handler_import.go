package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/SscSPs/txn_ingest/internal/core/domain"
	portssvc "github.com/SscSPs/txn_ingest/internal/core/ports/services"
	"github.com/SscSPs/txn_ingest/internal/dto"
	"github.com/SscSPs/txn_ingest/internal/middleware"
	"github.com/gin-gonic/gin"
)

// maxUploadBytes caps a single statement upload.
const maxUploadBytes = 10 << 20

// importHandler handles the manual import flow.
type importHandler struct {
	importService portssvc.ImportSvc
	events        EventTracker
}

func newImportHandler(is portssvc.ImportSvc, events EventTracker) *importHandler {
	return &importHandler{importService: is, events: events}
}

// registerImportRoutes registers analyze, preview and commit routes.
func registerImportRoutes(rg *gin.RouterGroup, importService portssvc.ImportSvc, events EventTracker) {
	h := newImportHandler(importService, events)

	imports := rg.Group("/imports")
	{
		imports.POST("/analyze", h.analyzeTabular)
		imports.POST("/preview", h.previewTabular)
		imports.POST("/statement-text", h.previewStatementText)
		imports.POST("/documents", h.previewDocument)
		imports.POST("/commit", h.commit)
	}
}

// readUpload loads the multipart "file" field and the "accountID" form value.
func readUpload(c *gin.Context) (string, domain.Document, error) {
	accountID := c.PostForm("accountID")
	if accountID == "" {
		return "", domain.Document{}, fmt.Errorf("accountID form field is required")
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return "", domain.Document{}, fmt.Errorf("file form field is required: %w", err)
	}
	if fh.Size > maxUploadBytes {
		return "", domain.Document{}, fmt.Errorf("file exceeds %d bytes", maxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return "", domain.Document{}, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return "", domain.Document{}, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(data) > maxUploadBytes {
		return "", domain.Document{}, fmt.Errorf("file exceeds %d bytes", maxUploadBytes)
	}
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	return accountID, domain.Document{Filename: fh.Filename, MIMEType: mimeType, Data: data}, nil
}

// analyzeTabular godoc
// @Summary Analyze a delimited file
// @Description Infers the column mapping of a CSV/TSV upload, or recalls a saved template for its header fingerprint
// @Tags imports
// @Accept  multipart/form-data
// @Produce  json
// @Param   accountID formData string true "Target account ID"
// @Param   file formData file true "Delimited statement file"
// @Success 200 {object} dto.AnalyzeResponse
// @Failure 400 {object} map[string]string "Missing file or unreadable content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to analyze file"
// @Security BearerAuth
// @Router /imports/analyze [post]
func (h *importHandler) analyzeTabular(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	accountID, doc, err := readUpload(c)
	if err != nil {
		logger.Warn("Invalid upload for AnalyzeTabular", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("account_id", accountID), slog.String("filename", doc.Filename))
	logger.Info("Received request to analyze tabular file", slog.Int("bytes", len(doc.Data)))

	resp, err := h.importService.AnalyzeTabular(c.Request.Context(), userID, accountID, doc.Data)
	if err != nil {
		respondError(c, logger, err, "Failed to analyze file")
		return
	}
	logger.Info("Tabular file analyzed", slog.Bool("recognized", resp.Recognized))
	c.JSON(http.StatusOK, resp)
}

// previewTabular godoc
// @Summary Preview a delimited file import
// @Description Maps every row to a transaction and flags duplicates. An explicit mapping overrides inference.
// @Tags imports
// @Accept  multipart/form-data
// @Produce  json
// @Param   accountID formData string true "Target account ID"
// @Param   file formData file true "Delimited statement file"
// @Param   mapping formData string false "Column mapping as JSON"
// @Param   saveTemplate formData bool false "Remember the mapping for this file layout"
// @Success 200 {object} domain.ImportPreview
// @Failure 400 {object} map[string]string "Invalid upload or mapping"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to preview file"
// @Security BearerAuth
// @Router /imports/preview [post]
func (h *importHandler) previewTabular(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	accountID, doc, err := readUpload(c)
	if err != nil {
		logger.Warn("Invalid upload for PreviewTabular", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload: " + err.Error()})
		return
	}

	var mapping *domain.ColumnMapping
	if raw := c.PostForm("mapping"); raw != "" {
		mapping = &domain.ColumnMapping{}
		if err := json.Unmarshal([]byte(raw), mapping); err != nil {
			logger.Warn("Failed to decode mapping for PreviewTabular", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid mapping: " + err.Error()})
			return
		}
	}
	saveTemplate := false
	if raw := c.PostForm("saveTemplate"); raw != "" {
		if saveTemplate, err = strconv.ParseBool(raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid saveTemplate: " + err.Error()})
			return
		}
	}

	logger = logger.With(slog.String("account_id", accountID), slog.String("filename", doc.Filename))
	logger.Info("Received request to preview tabular file", slog.Bool("explicit_mapping", mapping != nil), slog.Bool("save_template", saveTemplate))

	preview, err := h.importService.PreviewTabular(c.Request.Context(), userID, accountID, doc.Data, mapping, saveTemplate)
	if err != nil {
		respondError(c, logger, err, "Failed to preview file")
		return
	}
	h.track(c, "import_previewed", preview)
	c.JSON(http.StatusOK, preview)
}

// previewStatementText godoc
// @Summary Preview transactions from statement text
// @Description Runs the statement grammars over text already extracted from a statement
// @Tags imports
// @Accept  json
// @Produce  json
// @Param   request body dto.StatementTextRequest true "Statement text"
// @Success 200 {object} domain.ImportPreview
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to preview statement"
// @Security BearerAuth
// @Router /imports/statement-text [post]
func (h *importHandler) previewStatementText(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	var req dto.StatementTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for PreviewStatementText", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("account_id", req.AccountID))
	preview, err := h.importService.PreviewStatementText(c.Request.Context(), userID, req.AccountID, req.Text)
	if err != nil {
		respondError(c, logger, err, "Failed to preview statement")
		return
	}
	h.track(c, "import_previewed", preview)
	c.JSON(http.StatusOK, preview)
}

// previewDocument godoc
// @Summary Preview transactions from a document
// @Description Extracts transactions from a PDF, image or delimited upload
// @Tags imports
// @Accept  multipart/form-data
// @Produce  json
// @Param   accountID formData string true "Target account ID"
// @Param   file formData file true "Statement document"
// @Success 200 {object} domain.ImportPreview
// @Failure 400 {object} map[string]string "Invalid upload or unsupported document"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 429 {object} map[string]string "Extraction provider rate limited"
// @Failure 502 {object} map[string]string "Extraction provider failed"
// @Failure 500 {object} map[string]string "Failed to preview document"
// @Security BearerAuth
// @Router /imports/documents [post]
func (h *importHandler) previewDocument(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	accountID, doc, err := readUpload(c)
	if err != nil {
		logger.Warn("Invalid upload for PreviewDocument", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("account_id", accountID), slog.String("filename", doc.Filename), slog.String("mime_type", doc.MIMEType))
	logger.Info("Received request to preview document")

	preview, err := h.importService.PreviewDocument(c.Request.Context(), userID, accountID, doc)
	if err != nil {
		respondError(c, logger, err, "Failed to preview document")
		return
	}
	h.track(c, "import_previewed", preview)
	c.JSON(http.StatusOK, preview)
}

// commit godoc
// @Summary Commit previewed transactions
// @Description Writes the selected transactions with their category splits to the ledger. Duplicates are skipped unless force-included.
// @Tags imports
// @Accept  json
// @Produce  json
// @Param   request body dto.CommitTransactionsRequest true "Transactions and splits"
// @Success 200 {object} domain.CommitResult
// @Failure 400 {object} map[string]string "Invalid request or splits"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to commit transactions"
// @Security BearerAuth
// @Router /imports/commit [post]
func (h *importHandler) commit(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	userID, ok := requireUser(c, logger)
	if !ok {
		return
	}
	var req dto.CommitTransactionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for Commit", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	logger = logger.With(slog.String("account_id", req.AccountID))
	logger.Info("Received request to commit transactions", slog.Int("count", len(req.Transactions)))

	result, err := h.importService.Commit(c.Request.Context(), req.ToCommitRequest(userID))
	if err != nil {
		respondError(c, logger, err, "Failed to commit transactions")
		return
	}
	logger.Info("Transactions committed",
		slog.Int("committed", len(result.Committed)),
		slog.Int("skipped_duplicates", result.SkippedDuplicates),
		slog.Int("failed", len(result.Failed)),
	)
	if h.events != nil {
		h.events.Track(c, "import_committed", map[string]any{
			"account_id":         req.AccountID,
			"committed":          len(result.Committed),
			"skipped_duplicates": result.SkippedDuplicates,
			"failed":             len(result.Failed),
		})
	}
	c.JSON(http.StatusOK, result)
}

func (h *importHandler) track(c *gin.Context, event string, preview *domain.ImportPreview) {
	if h.events == nil {
		return
	}
	h.events.Track(c, event, map[string]any{
		"account_id":        preview.AccountID,
		"source":            string(preview.Source),
		"format_recognized": preview.FormatRecognized,
		"transactions":      len(preview.Transactions),
		"duplicates":        preview.Dedup.Duplicates(),
	})
}
