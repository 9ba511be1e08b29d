package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/teacher-reports-api/internal/models"
	"github.com/noah-isme/teacher-reports-api/internal/repository"
)

// Audit records an audit entry after successful requests on sensitive routes.
func Audit(repo *repository.AuditRepository, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		actor := "anonymous"
		if claims, ok := c.Get(ContextUserKey); ok {
			actor = claims.(*models.JWTClaims).Email
		}

		comment := fmt.Sprintf("%s %s status=%d latency_ms=%d",
			c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start).Milliseconds())

		_ = repo.Append(c.Request.Context(), &models.AuditEntry{
			Actor:     actor,
			Action:    action,
			Comment:   &comment,
			IPAddress: c.ClientIP(),
		})
	}
}
