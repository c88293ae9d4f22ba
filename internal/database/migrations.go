package database

import (
	"github.com/chachabrian/unipool-backend/internal/models"
	"gorm.io/gorm"
)

// RunMigrations creates or updates the four relations. Unique indexes on
// users.email, bookings(ride_id, passenger_id) and reviews(ride_id, reviewer_id)
// come from the model tags and are the store-level safety net behind the
// service checks.
func RunMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Ride{},
		&models.Booking{},
		&models.Review{},
	)
}
