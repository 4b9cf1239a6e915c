package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/service"
	"github.com/rs/zerolog"
)

// CoverageHandler handles coverage endpoints
type CoverageHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewCoverageHandler creates a new CoverageHandler
func NewCoverageHandler(services *service.Services, log zerolog.Logger) *CoverageHandler {
	return &CoverageHandler{
		services: services,
		log:      log.With().Str("handler", "coverage").Logger(),
	}
}

// Departments handles GET /v1/coverage/departments
func (h *CoverageHandler) Departments(c *gin.Context) {
	rows, err := h.services.Coverage.Departments(c.Request.Context(), c.Query("unit"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "total": len(rows)})
}

// Groups handles GET /v1/coverage/groups
func (h *CoverageHandler) Groups(c *gin.Context) {
	rows, err := h.services.Coverage.Groups(c.Request.Context(), c.Query("unit"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": rows, "total": len(rows)})
}

// Department handles GET /v1/coverage/departments/:name
func (h *CoverageHandler) Department(c *gin.Context) {
	h.scope(c, models.CoverageDepartment)
}

// Group handles GET /v1/coverage/groups/:name
func (h *CoverageHandler) Group(c *gin.Context) {
	h.scope(c, models.CoverageGroup)
}

func (h *CoverageHandler) scope(c *gin.Context, mode models.CoverageMode) {
	row, err := h.services.Coverage.Scope(c.Request.Context(), c.Query("unit"), mode, c.Param("name"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, row)
}
