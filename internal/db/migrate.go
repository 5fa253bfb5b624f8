package db

import (
	"cityvibe/internal/models"
)

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}

	return db.Gorm.AutoMigrate(
		&models.Venue{},
		&models.Event{},
		&models.ScrapeRun{},
	)
}
