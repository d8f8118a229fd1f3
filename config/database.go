package config

import (
	"fmt"

	"github.com/tripplekay/KayCutts/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

// InitDB initializes the Postgres connection and migrates the booking
// schema. Only called when STORE_DRIVER=postgres; the default deployment
// uses the file-backed store and never touches a database.
func InitDB(config *Config) error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		config.DBHost, config.DBPort, config.DBUser, config.DBPassword, config.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	DB = db

	if err := DB.AutoMigrate(
		&models.Booking{},
		&models.UnmatchedCallback{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}
