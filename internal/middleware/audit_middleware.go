package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"shop_back_end/internal/audit"
)

// CtxAuditResourceID lets a handler name the resource it created, for
// routes without an :id parameter.
const CtxAuditResourceID = "audit_resource_id"

// AuditAction records one audit entry after the handler has run.
func AuditAction(rec audit.Recorder, action, resource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if rec == nil {
			return
		}

		resourceID := c.Param("id")
		if id := c.GetString(CtxAuditResourceID); id != "" {
			resourceID = id
		}
		e := audit.NewEntry(action, resource, resourceID)
		if id, ok := CurrentUserID(c); ok {
			e.UserID = id.String()
		}
		e.UserEmail = c.GetString(CtxEmail)
		e.IPAddress = c.ClientIP()
		e.UserAgent = c.Request.UserAgent()
		e.Status = c.Writer.Status()
		e.Success = e.Status < http.StatusBadRequest
		rec.Record(c.Request.Context(), e)
	}
}
