package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"shop_back_end/internal/apperr"
)

// respondError writes err as {"error": msg} with the status of its kind.
// Internal errors are logged with their cause and answered generically.
func respondError(c *gin.Context, log *slog.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(c.Request.Context(), "request failed",
			"method", c.Request.Method, "path", c.FullPath(), "err", err)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": apperr.Message(err)})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
