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

type createUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// CreateUser handles POST /api/users (admin only). A session token is
// generated server-side and returned with the created record — there is
// no other way for the operator to obtain it besides logging in.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username, password and role are required"})
		return
	}

	u := model.User{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
		Token:    auth.GenerateUserToken(),
		IsActive: true,
	}

	if err := h.store.CreateUser(c.Request.Context(), &u); err != nil {
		switch {
		case store.IsValidation(err):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, store.ErrConflict):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
		default:
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		}
		return
	}

	c.JSON(http.StatusCreated, u)
}

// ListUsers handles GET /api/users (admin only).
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.store.ListUsers(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if users == nil {
		users = []model.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// UpdateUser handles PUT /api/users/:id (admin only). Only fields present
// in the body are touched.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var upd store.UserUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	u, err := h.store.UpdateUser(c.Request.Context(), id, upd)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, u)
	case store.IsValidation(err):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, store.ErrConflict):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Username already exists"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
	}
}
