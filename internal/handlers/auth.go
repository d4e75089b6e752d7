package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"shop_back_end/internal/middleware"
	"shop_back_end/internal/services"
)

type AuthHandler struct {
	auth *services.AuthService
	log  *slog.Logger
}

func NewAuthHandler(auth *services.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, log: orDefault(logger)}
}

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "registration successful", "user": user})
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	token, user, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.Set(middleware.CtxAuditResourceID, user.ID.String())
	c.JSON(http.StatusOK, gin.H{"token": token, "user": user})
}
