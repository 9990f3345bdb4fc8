package database

import (
	"fmt"
	"log"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Conceptual-Machines/maestro-api/internal/models"
)

// Connect opens the postgres connection pool. An empty URL is allowed
// for stateless deployments: the caller gets a nil handle and every
// persistence feature switches off.
func Connect(databaseURL string) (*gorm.DB, error) {
	if databaseURL == "" {
		log.Println("⚠️ DATABASE_URL not set - running without persistence")
		return nil, nil
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("✅ Database connected")
	return db, nil
}

// Migrate applies the schema for all persisted models
func Migrate(db *gorm.DB) error {
	if db == nil {
		return nil
	}

	if err := db.AutoMigrate(
		&models.GrammarRecord{},
		&models.ParseLog{},
		&models.APIKey{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Println("✅ Database migrated")
	return nil
}
