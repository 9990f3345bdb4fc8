package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/maestro-api/internal/logger"
	"github.com/Conceptual-Machines/maestro-api/internal/models"
)

type AdminHandler struct {
	db *gorm.DB
}

func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// CreateKey mints a new API key. The raw key is returned exactly once;
// only the bcrypt hash and the lookup prefix are stored.
func (h *AdminHandler) CreateKey(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "API key management requires a database"})
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
		Role string `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := req.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be admin or user"})
		return
	}

	raw := "mk_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	key := models.APIKey{
		Name:     req.Name,
		Prefix:   raw[:8],
		Role:     role,
		IsActive: true,
	}
	if err := key.HashKey(raw); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash key"})
		return
	}

	if err := h.db.Create(&key).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store key"})
		return
	}

	logger.Info("🔑 API key created", logger.Fields{
		"name":   key.Name,
		"prefix": key.Prefix,
		"role":   key.Role,
	})

	c.JSON(http.StatusCreated, gin.H{
		"key":     key,
		"raw_key": raw,
		"message": "Store the raw key now; it cannot be retrieved again",
	})
}

// ListKeys returns all API keys without their hashes
func (h *AdminHandler) ListKeys(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "API key management requires a database"})
		return
	}

	var keys []models.APIKey
	if err := h.db.Order("created_at DESC").Find(&keys).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch keys"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"keys": keys, "count": len(keys)})
}

// RevokeKey deactivates an API key. Revocation rather than deletion
// keeps the key's parse history attributable.
func (h *AdminHandler) RevokeKey(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "API key management requires a database"})
		return
	}

	keyID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid key ID"})
		return
	}

	var key models.APIKey
	if err := h.db.First(&key, keyID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Key not found"})
		return
	}

	key.IsActive = false
	if err := h.db.Save(&key).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to revoke key"})
		return
	}

	logger.Info("🔑 API key revoked", logger.Fields{"prefix": key.Prefix})
	c.JSON(http.StatusOK, gin.H{"message": "Key revoked", "key": key})
}
