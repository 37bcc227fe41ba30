package db

import (
	"fmt"

	"github.com/skiffbot/skiff/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates all Skiff tables.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.StreamKey{},
		&models.DispatchRecord{},
	); err != nil {
		return fmt.Errorf("db: migrate: %w", err)
	}
	return nil
}
