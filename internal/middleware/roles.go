package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type RoleSet map[string]struct{}

func NewRoleSet(roles ...string) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// IsAuthorized reports whether role is in allowed. An empty role is never
// authorized.
func IsAuthorized(role string, allowed RoleSet) bool {
	if role == "" {
		return false
	}
	_, ok := allowed[role]
	return ok
}

// Authorize must run after AuthRequired.
func Authorize(allowed RoleSet) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAuthorized(c.GetString(CtxRole), allowed) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "access denied"})
			return
		}
		c.Next()
	}
}
