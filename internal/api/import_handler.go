package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ministry-roster-api/internal/config"
	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/service"
	"github.com/rs/zerolog"
)

// ImportHandler handles snapshot analysis and session endpoints
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// Analyze handles POST /v1/imports/:catalog/analyze.
// The snapshot is read from a text/plain body, a JSON body {unit, text} or
// a multipart "file" field. ?unit= overrides the unit of the body.
func (h *ImportHandler) Analyze(c *gin.Context) {
	catalog := models.Catalog(c.Param("catalog"))
	if !models.ValidCatalogs[catalog] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "catalog must be one of: roster, sectors, groups"})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.Import.MaxSnapshotBytes)

	req, err := h.readSnapshot(c)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": fmt.Sprintf("snapshot exceeds %d bytes", tooLarge.Limit),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req.Catalog = catalog
	if unit := c.Query("unit"); unit != "" {
		req.Unit = unit
	}
	if strings.TrimSpace(req.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "snapshot is empty"})
		return
	}

	ctx := c.Request.Context()
	session, err := h.services.Import.Analyze(ctx, req)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	page, err := h.services.Import.GetSession(ctx, session.ID, 1, h.cfg.Import.PageSize, "")
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, page)
}

func (h *ImportHandler) readSnapshot(c *gin.Context) (*models.AnalyzeRequest, error) {
	contentType := c.ContentType()
	switch {
	case contentType == "application/json":
		var req models.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		return &req, nil
	case strings.HasPrefix(contentType, "multipart/"):
		file, _, err := c.Request.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("file field is required: %w", err)
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, err
		}
		return &models.AnalyzeRequest{Unit: c.PostForm("unit"), Text: string(data)}, nil
	default:
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, err
		}
		return &models.AnalyzeRequest{Text: string(data)}, nil
	}
}

// GetSession handles GET /v1/sessions/:session_id
func (h *ImportHandler) GetSession(c *gin.Context) {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a number"})
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page_size must be a number"})
		return
	}
	status := models.ChangeStatus(c.Query("status"))

	result, err := h.services.Import.GetSession(c.Request.Context(), c.Param("session_id"), page, pageSize, status)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Commit handles POST /v1/sessions/:session_id/commit.
// An empty body commits every row that writes.
func (h *ImportHandler) Commit(c *gin.Context) {
	var req models.CommitRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body: " + err.Error()})
			return
		}
	}

	session, err := h.services.Import.Commit(c.Request.Context(), c.Param("session_id"), &req)
	if err != nil {
		var perr *models.PersistenceError
		if session != nil && errors.As(err, &perr) {
			h.log.Error().Err(err).Str("session_id", session.ID).Msg("Commit failed")
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "Commit failed",
				"session": session,
			})
			return
		}
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, session)
}
