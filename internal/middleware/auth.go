package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/maestro-api/internal/config"
	"github.com/Conceptual-Machines/maestro-api/internal/models"
)

const (
	bearerPrefix    = "Bearer"
	apiKeyHeader    = "X-API-Key"
	apiKeyPrefixLen = 8
)

// Claims are the token claims the service trusts. There is no user
// table; identity lives entirely in the signed token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth validates bearer tokens locally and attaches the claims to the
// request context. An X-API-Key header is accepted as an alternative
// credential when a database is configured.
func JWTAuth(db *gorm.DB, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader(apiKeyHeader); key != "" {
			if authenticateAPIKey(c, db, key) {
				c.Next()
				return
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			c.Abort()
			return
		}

		var tokenString string

		// Extract token from "Bearer <token>"
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == bearerPrefix {
				tokenString = parts[1]
			}
		}

		if tokenString == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		// Parse and validate token
		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			// Verify signing method
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		})

		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		userID := claims.UserID
		if userID == "" {
			userID = claims.Subject
		}
		role := claims.Role
		if role == "" {
			role = models.RoleUser
		}

		c.Set("user_id", userID)
		c.Set("user_email", claims.Email)
		c.Set("user_role", role)

		c.Next()
	}
}

// authenticateAPIKey looks a key up by its prefix and verifies the rest
// against the stored bcrypt hash.
func authenticateAPIKey(c *gin.Context, db *gorm.DB, raw string) bool {
	if db == nil || len(raw) < apiKeyPrefixLen {
		return false
	}

	var key models.APIKey
	err := db.Where("prefix = ? AND is_active = ?", raw[:apiKeyPrefixLen], true).First(&key).Error
	if err != nil || !key.CheckKey(raw) {
		return false
	}

	now := time.Now()
	db.Model(&key).Update("last_used_at", &now)

	c.Set("user_id", fmt.Sprintf("key-%d", key.ID))
	c.Set("user_role", key.Role)
	c.Set("api_key_name", key.Name)
	return true
}

// CurrentUserID returns the authenticated caller's ID, empty when anonymous
func CurrentUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// CurrentRole returns the caller's role, empty when anonymous
func CurrentRole(c *gin.Context) string {
	return c.GetString("user_role")
}
