package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ministry-roster-api/internal/models"
	"github.com/ministry-roster-api/internal/service"
	"github.com/rs/zerolog"
)

// ParticipationHandler handles group membership and leader endpoints
type ParticipationHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewParticipationHandler creates a new ParticipationHandler
func NewParticipationHandler(services *service.Services, log zerolog.Logger) *ParticipationHandler {
	return &ParticipationHandler{
		services: services,
		log:      log.With().Str("handler", "participation").Logger(),
	}
}

// linkRequest is the body of POST /v1/participations
type linkRequest struct {
	Unit           string `json:"unit"`
	GroupName      string `json:"group_name" binding:"required"`
	PersonID       string `json:"person_id" binding:"required"`
	PersonName     string `json:"person_name"`
	DepartmentName string `json:"department_name"`
}

// Link handles POST /v1/participations
func (h *ParticipationHandler) Link(c *gin.Context) {
	var req linkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	rec, err := h.services.Participation.Link(c.Request.Context(), &models.ParticipationRecord{
		Unit:           req.Unit,
		GroupName:      req.GroupName,
		PersonID:       req.PersonID,
		PersonName:     req.PersonName,
		DepartmentName: req.DepartmentName,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

// Unlink handles DELETE /v1/participations?unit=&group=&person_id=
func (h *ParticipationHandler) Unlink(c *gin.Context) {
	changed, err := h.services.Participation.Unlink(c.Request.Context(),
		c.Query("unit"), c.Query("group"), c.Query("person_id"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if !changed {
		c.JSON(http.StatusNotFound, gin.H{"error": "Active participation not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Leaders handles GET /v1/leaders
func (h *ParticipationHandler) Leaders(c *gin.Context) {
	leaders, err := h.services.Participation.Leaders(c.Request.Context(), c.Query("unit"))
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if leaders == nil {
		leaders = []*models.Leader{}
	}
	c.JSON(http.StatusOK, gin.H{"items": leaders, "total": len(leaders)})
}
