package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/maestro-api/internal/config"
	"github.com/Conceptual-Machines/maestro-api/internal/models"
)

// AdminRequired gates grammar management. With auth disabled the service
// is assumed self-hosted and the gate stays open.
func AdminRequired(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AuthMode == "none" {
			c.Next()
			return
		}

		if CurrentRole(c) != models.RoleAdmin {
			c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			c.Abort()
			return
		}

		c.Next()
	}
}
