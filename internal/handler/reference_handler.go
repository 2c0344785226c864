package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/transit-mediation/mediation-api/internal/models"
	appErrors "github.com/transit-mediation/mediation-api/pkg/errors"
	"github.com/transit-mediation/mediation-api/pkg/response"
)

// ReferenceHandler serves the static reference data the capture screen
// needs: known lines, incident counters and the stop list of line A.
type ReferenceHandler struct{}

// NewReferenceHandler constructs the handler.
func NewReferenceHandler() *ReferenceHandler {
	return &ReferenceHandler{}
}

// Lines handles GET /lines.
func (h *ReferenceHandler) Lines(c *gin.Context) {
	response.JSON(c, http.StatusOK, []models.Line{models.LineA, models.LineB, models.LineC, models.LineOther})
}

// Stops handles GET /lines/:line/stops. Only line A carries a curated stop
// list; the other lines take free-text stops.
func (h *ReferenceHandler) Stops(c *gin.Context) {
	line := models.Line(c.Param("line"))
	if !line.Valid() {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "unknown line"))
		return
	}
	stops := []string{}
	if line == models.LineA {
		stops = models.StopsLineA
	}
	response.JSON(c, http.StatusOK, gin.H{"line": line, "stops": stops})
}

// IncidentTypes handles GET /incident-types.
func (h *ReferenceHandler) IncidentTypes(c *gin.Context) {
	out := make([]gin.H, 0, len(models.IncidentTypes))
	for _, incident := range models.IncidentTypes {
		out = append(out, gin.H{"key": incident.Key, "label": incident.Label})
	}
	response.JSON(c, http.StatusOK, out)
}
