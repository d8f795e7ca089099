package config

import (
	"fmt"

	"github.com/bellapacxx/roshambo-backend/models"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.MatchRecord{},
		&models.CardInventory{},
		&models.CardTransaction{},
	); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
