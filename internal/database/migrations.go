package database

import (
	"github.com/campuslink/resources-backend/internal/models"
	"gorm.io/gorm"
)

func RunMigrations(db *gorm.DB) error {
	// Create tables if they don't exist
	err := db.AutoMigrate(
		&models.User{},
		&models.Room{},
		&models.RoomRental{},
		&models.Driver{},
		&models.CarpoolOffer{},
		&models.CarpoolPassenger{},
		&models.NotificationPreference{},
	)
	if err != nil {
		return err
	}

	// Role constraint on users
	if db.Migrator().HasTable(&models.User{}) {
		db.Exec(`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_role_check`)
		db.Exec(`ALTER TABLE users ADD CONSTRAINT users_role_check CHECK (role IN ('student', 'organizer', 'admin'))`)
	}

	// Database-level guards mirroring the allocation invariants. The
	// services enforce these too; the checks catch any writer that
	// bypasses them.
	constraints := []struct {
		table string
		name  string
		check string
	}{
		{"rooms", "rooms_capacity_check", "capacity > 0"},
		{"room_rentals", "room_rentals_interval_check", "end_time > start_time"},
		{"drivers", "drivers_capacity_check", "capacity BETWEEN 1 AND 50"},
		{"carpool_offers", "carpool_offers_seats_check", "seats_available >= 0"},
	}
	for _, c := range constraints {
		db.Exec("ALTER TABLE " + c.table + " DROP CONSTRAINT IF EXISTS " + c.name)
		if err := db.Exec("ALTER TABLE " + c.table + " ADD CONSTRAINT " + c.name + " CHECK (" + c.check + ")").Error; err != nil {
			return err
		}
	}

	return nil
}
