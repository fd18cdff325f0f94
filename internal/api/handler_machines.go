package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fleet-telemetry-backend/internal/auth"
	"fleet-telemetry-backend/internal/model"
	"fleet-telemetry-backend/internal/store"
)

type createMachineRequest struct {
	Name        string  `json:"name" binding:"required"`
	Code        string  `json:"code" binding:"required"`
	Location    *string `json:"location"`
	MachineType *string `json:"machine_type"`
}

// machineResponse reveals the API key alongside the machine record. Used
// only where the key is legitimately disclosed: creation, and an update
// that regenerated it.
type machineResponse struct {
	model.Machine
	APIKey string `json:"api_key,omitempty"`
}

// CreateMachine handles POST /api/machines (admin only). The API key is
// generated server-side and returned exactly once in the response body.
func (h *Handler) CreateMachine(c *gin.Context) {
	var req createMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "name and code are required"})
		return
	}

	m := model.Machine{
		Name:        req.Name,
		Code:        req.Code,
		APIKey:      auth.GenerateMachineAPIKey(),
		Location:    req.Location,
		MachineType: req.MachineType,
	}

	if err := h.store.CreateMachine(c.Request.Context(), &m); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Machine code already exists"})
		} else {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	c.JSON(http.StatusCreated, machineResponse{Machine: m, APIKey: m.APIKey})
}

// ListMachines handles GET /api/machines. Live state reflects the most
// recent successfully-ingested reading; API keys are never listed.
func (h *Handler) ListMachines(c *gin.Context) {
	machines, err := h.store.ListMachines(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if machines == nil {
		machines = []model.Machine{}
	}
	c.JSON(http.StatusOK, gin.H{"machines": machines})
}

// UpdateMachine handles PUT /api/machines/:id (admin only). Only fields
// present in the body are touched; an empty body is a validation error.
func (h *Handler) UpdateMachine(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid machine ID"})
		return
	}

	var upd store.MachineUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	m, newKey, err := h.store.UpdateMachine(c.Request.Context(), id, upd)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, machineResponse{Machine: *m, APIKey: newKey})
	case store.IsValidation(err):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Machine not found"})
	case errors.Is(err, store.ErrConflict):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Machine name or code already exists"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
	}
}
