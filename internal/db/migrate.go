package db

import (
	"fmt"

	"gorm.io/gorm"

	"imonitor/internal/model"
)

// Migrate runs database migrations for all models
func Migrate(gdb *gorm.DB) error {
	models := []interface{}{
		&model.Node{},
	}

	if err := gdb.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
