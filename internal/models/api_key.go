package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// APIKey authenticates non-gateway callers. Only the bcrypt hash is
// stored; the prefix (first eight characters of the raw key) is kept in
// clear for lookup.
type APIKey struct {
	ID         uint           `gorm:"primarykey" json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
	Name       string         `gorm:"not null" json:"name"`
	Prefix     string         `gorm:"uniqueIndex;not null" json:"prefix"`
	KeyHash    string         `gorm:"not null" json:"-"`
	Role       string         `gorm:"default:'user';index" json:"role"` // "admin", "user"
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	LastUsedAt *time.Time     `json:"last_used_at,omitempty"`
}

// HashKey hashes the raw key using bcrypt
func (k *APIKey) HashKey(raw string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	k.KeyHash = string(hashed)
	return nil
}

// CheckKey compares a raw key with the stored hash
func (k *APIKey) CheckKey(raw string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(k.KeyHash), []byte(raw))
	return err == nil
}
