package repository

import (
	"go-inventory-pos/internal/model"

	"gorm.io/gorm"
)

// AutoMigrate creates or updates the tables (Hati-hati di production, sebaiknya pakai tools migrasi terpisah)
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.Product{}, &model.Transaction{}, &model.User{})
}
