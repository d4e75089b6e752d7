package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shop_back_end/internal/apperr"
	"shop_back_end/internal/middleware"
	"shop_back_end/internal/services"
)

type UserHandler struct {
	auth *services.AuthService
	log  *slog.Logger
}

func NewUserHandler(auth *services.AuthService, logger *slog.Logger) *UserHandler {
	return &UserHandler{auth: auth, log: orDefault(logger)}
}

type updateUserRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// GET /users/me
func (h *UserHandler) Me(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	user, err := h.auth.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// GET /users (admin)
func (h *UserHandler) ListUsers(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

// GET /users/:id is open to the user themself and to admins.
func (h *UserHandler) GetUser(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	targetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, h.log, apperr.NotFound("user"))
		return
	}
	if targetID != userID && !middleware.IsAdmin(c) {
		respondError(c, h.log, apperr.Forbidden("access denied"))
		return
	}

	user, err := h.auth.GetUser(c.Request.Context(), targetID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// PUT /users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID, _ := middleware.CurrentUserID(c)

	var req updateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Username == nil && req.Email == nil {
		respondError(c, h.log, apperr.Validation("nothing to update"))
		return
	}

	user, err := h.auth.UpdateUser(c.Request.Context(), userID, c.Param("id"), services.UpdateUserInput{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user updated", "user": user})
}
