package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/iliyamo/blog-backend/internal/model"
)

// AutoMigrate creates or updates the users and posts tables.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.User{}, &model.Post{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
