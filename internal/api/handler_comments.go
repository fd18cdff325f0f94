package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fleet-telemetry-backend/internal/model"
	"fleet-telemetry-backend/internal/mw"
	"fleet-telemetry-backend/internal/store"
)

type addCommentRequest struct {
	Comment  string  `json:"comment" binding:"required"`
	Priority *string `json:"priority"`
}

// AddComment handles POST /api/machines/:id/comments. The author is the
// classified caller; the machine must exist at write time.
func (h *Handler) AddComment(c *gin.Context) {
	machineID, ok := h.machineFromPath(c)
	if !ok {
		return
	}

	var req addCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "comment is required"})
		return
	}

	priority := model.PriorityNormal
	if req.Priority != nil {
		priority = *req.Priority
	}

	comment := model.MaintenanceComment{
		MachineID: machineID,
		Username:  mw.Identity(c).CommentAuthor(),
		Comment:   req.Comment,
		Priority:  priority,
		CreatedAt: nowUnix(),
	}

	if err := h.store.AddComment(c.Request.Context(), &comment); err != nil {
		if store.IsValidation(err) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to add comment"})
		}
		return
	}

	if h.alerts != nil && (priority == model.PriorityHigh || priority == model.PriorityCritical) {
		h.alerts.Dispatch(machineID, fmt.Sprintf("%s maintenance reported by %s: %s", priority, comment.Username, comment.Comment))
	}

	c.JSON(http.StatusCreated, comment)
}

// GetComments handles GET /api/machines/:id/comments, newest first.
func (h *Handler) GetComments(c *gin.Context) {
	machineID, ok := h.machineFromPath(c)
	if !ok {
		return
	}

	comments, err := h.store.ListComments(c.Request.Context(), machineID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if comments == nil {
		comments = []model.MaintenanceComment{}
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// machineFromPath parses :id and verifies the machine exists. On failure
// it writes the error response and returns false.
func (h *Handler) machineFromPath(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid machine ID"})
		return 0, false
	}

	if _, err := h.store.GetMachine(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Machine not found"})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return 0, false
	}
	return id, true
}
