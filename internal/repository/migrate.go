package repository

import (
	"go-productguard/internal/model"

	"gorm.io/gorm"
)

// Migrate creates or updates the schema, including the unique index on
// qr_codes.code that arbitrates concurrent code allocation.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(model.All()...)
}
