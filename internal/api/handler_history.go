package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fleet-telemetry-backend/internal/model"
)

// GetHistory handles GET /api/machines/:id/history. Newest first, with
// an optional ?limit= cap defaulting to 100.
func (h *Handler) GetHistory(c *gin.Context) {
	machineID, ok := h.machineFromPath(c)
	if !ok {
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	history, err := h.store.ListHistory(c.Request.Context(), machineID, limit)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if history == nil {
		history = []model.SpeedHistory{}
	}
	c.JSON(http.StatusOK, gin.H{"history": history})
}
