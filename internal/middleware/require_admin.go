package middleware

import (
	"github.com/gin-gonic/gin"

	"shop_back_end/internal/models"
)

var adminOnly = NewRoleSet(models.RoleAdmin)

// RequireAdmin restricts a route to the admin role.
func RequireAdmin() gin.HandlerFunc {
	return Authorize(adminOnly)
}

// IsAdmin reports whether the authenticated caller is an admin.
func IsAdmin(c *gin.Context) bool {
	return IsAuthorized(c.GetString(CtxRole), adminOnly)
}
