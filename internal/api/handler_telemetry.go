package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet-telemetry-backend/internal/mw"
)

type speedUpdateRequest struct {
	Speed   *float64 `json:"speed" binding:"required"`
	Message *string  `json:"message"`
}

// ReportSpeed handles POST /api/machines/update. The target machine is
// the caller itself — its id comes from the classified API key, never
// from the body, so one machine cannot report for another.
func (h *Handler) ReportSpeed(c *gin.Context) {
	var req speedUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "speed is required"})
		return
	}

	machineID := mw.Identity(c).MachineID
	timestamp, err := h.store.RecordSpeed(c.Request.Context(), machineID, *req.Speed, req.Message)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to update machine"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"timestamp": timestamp,
	})
}
