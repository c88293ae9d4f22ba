package services

import (
	"context"
	"fmt"
	"slices"

	"github.com/chachabrian/unipool-backend/internal/database"
	"github.com/chachabrian/unipool-backend/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// PassengerBooking is a booking as its passenger sees it.
type PassengerBooking struct {
	models.Booking
	Driver   *DriverProfile `json:"driver,omitempty"`
	Reviewed bool           `json:"reviewed"`
}

type BookingService struct {
	db       *gorm.DB
	notifier Notifier
	images   ImageStore
}

func NewBookingService(db *gorm.DB, notifier Notifier, images ImageStore) *BookingService {
	return &BookingService{db: db, notifier: orNoop(notifier), images: images}
}

// Join books one seat on the ride for passengerEmail. The seat decrement and
// the booking insert commit together or not at all.
func (s *BookingService) Join(ctx context.Context, rideID uint, passengerEmail string) (*models.Booking, error) {
	passengerEmail = models.NormalizeEmail(passengerEmail)
	if passengerEmail == "" {
		return nil, newForbidden("you must be logged in to book a ride")
	}

	var booking models.Booking
	var ride models.Ride
	var driverID uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ride, rideID).Error; err != nil {
			return notFoundOr(err, "ride", rideID)
		}
		if isOwner(&ride, passengerEmail) {
			return newForbidden("you cannot book your own ride")
		}

		passenger, err := findUserByEmail(tx, passengerEmail)
		if err != nil {
			return err
		}

		var existing int64
		if err := tx.Model(&models.Booking{}).
			Where("ride_id = ? AND passenger_id = ?", rideID, passenger.ID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check bookings: %w", err)
		}
		if existing > 0 {
			return newConflict("you have already booked this ride")
		}

		res := tx.Model(&models.Ride{}).
			Where("id = ? AND available_seats > 0", rideID).
			UpdateColumn("available_seats", gorm.Expr("available_seats - 1"))
		if res.Error != nil {
			return fmt.Errorf("failed to reserve seat: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return newConflict("no seats available on this ride")
		}

		booking = models.Booking{
			RideID:      rideID,
			PassengerID: passenger.ID,
			Status:      models.BookingStatusConfirmed,
		}
		if err := tx.Create(&booking).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return newConflict("you have already booked this ride")
			}
			return fmt.Errorf("failed to create booking: %w", err)
		}

		if err := tx.First(&ride, rideID).Error; err != nil {
			return fmt.Errorf("failed to reload ride: %w", err)
		}
		driverID = userIDByEmail(tx, ride.DriverEmail)
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"bookingId": booking.ID,
		"rideId":    rideID,
		"passenger": passengerEmail,
		"seatsLeft": ride.AvailableSeats,
	}).Info("Ride booked")

	if driverID != 0 {
		s.notifier.Notify(ctx, rideEvent(EventBookingCreated, &ride,
			fmt.Sprintf("%s booked a seat on your ride to %s", passengerEmail, ride.Destination), []uint{driverID}))
	}
	return &booking, nil
}

// Cancel removes the caller's booking and gives the seat back to the ride.
func (s *BookingService) Cancel(ctx context.Context, bookingID uint, requesterEmail string) error {
	requesterEmail = models.NormalizeEmail(requesterEmail)
	if requesterEmail == "" {
		return newForbidden("you must be logged in to cancel a booking")
	}

	var ride models.Ride
	var driverID uint
	rideFound := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var booking models.Booking
		if err := tx.Preload("Passenger").First(&booking, bookingID).Error; err != nil {
			return notFoundOr(err, "booking", bookingID)
		}
		if booking.Passenger == nil || booking.Passenger.Email != requesterEmail {
			return newForbidden("you can only cancel your own bookings")
		}

		var err error
		rideFound, err = releaseBooking(tx, &booking)
		if err != nil {
			return err
		}
		if !rideFound {
			return nil
		}

		if err := tx.First(&ride, booking.RideID).Error; err != nil {
			return fmt.Errorf("failed to reload ride: %w", err)
		}
		driverID = userIDByEmail(tx, ride.DriverEmail)
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{"bookingId": bookingID, "passenger": requesterEmail}).Info("Booking cancelled")

	if rideFound && driverID != 0 {
		s.notifier.Notify(ctx, rideEvent(EventBookingCancelled, &ride,
			fmt.Sprintf("%s cancelled their seat on your ride to %s", requesterEmail, ride.Destination), []uint{driverID}))
	}
	return nil
}

// ListForPassenger returns the passenger's bookings, latest departure first.
func (s *BookingService) ListForPassenger(ctx context.Context, passengerID uint) ([]PassengerBooking, error) {
	db := s.db.WithContext(ctx)

	var bookings []models.Booking
	if err := db.Preload("Ride").Where("passenger_id = ?", passengerID).Find(&bookings).Error; err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	slices.SortStableFunc(bookings, func(a, b models.Booking) int {
		if a.Ride == nil || b.Ride == nil {
			return int(b.ID) - int(a.ID)
		}
		if c := b.Ride.DepartureTime.Compare(a.Ride.DepartureTime); c != 0 {
			return c
		}
		return int(b.ID) - int(a.ID)
	})

	emails := make([]string, 0, len(bookings))
	bookedRides := make([]uint, 0, len(bookings))
	for _, b := range bookings {
		bookedRides = append(bookedRides, b.RideID)
		if b.Ride != nil {
			emails = append(emails, b.Ride.DriverEmail)
		}
	}

	drivers := make(map[string]*models.User)
	if len(emails) > 0 {
		var users []models.User
		if err := db.Where("email IN ?", emails).Find(&users).Error; err != nil {
			return nil, fmt.Errorf("failed to load drivers: %w", err)
		}
		for i := range users {
			drivers[users[i].Email] = &users[i]
		}
	}

	reviewed := make(map[uint]bool)
	if len(bookedRides) > 0 {
		var ids []uint
		if err := db.Model(&models.Review{}).
			Where("reviewer_id = ? AND ride_id IN ?", passengerID, bookedRides).
			Pluck("ride_id", &ids).Error; err != nil {
			return nil, fmt.Errorf("failed to load reviews: %w", err)
		}
		for _, id := range ids {
			reviewed[id] = true
		}
	}

	result := make([]PassengerBooking, len(bookings))
	for i, b := range bookings {
		entry := PassengerBooking{Booking: b, Reviewed: reviewed[b.RideID]}
		if b.Ride != nil {
			if driver, ok := drivers[b.Ride.DriverEmail]; ok {
				entry.Driver = driverProfile(driver, s.images)
			}
		}
		result[i] = entry
	}
	return result, nil
}

// releaseBooking deletes the booking and restores its seat. It reports whether
// the ride still existed. A booking already removed by a concurrent cancel is
// reported as not found so the seat is only restored once.
func releaseBooking(tx *gorm.DB, booking *models.Booking) (bool, error) {
	res := tx.Where("id = ?", booking.ID).Delete(&models.Booking{})
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete booking: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, newNotFound("booking", booking.ID)
	}

	res = tx.Model(&models.Ride{}).
		Where("id = ? AND available_seats < seat_capacity", booking.RideID).
		UpdateColumn("available_seats", gorm.Expr("available_seats + 1"))
	if res.Error != nil {
		return false, fmt.Errorf("failed to release seat: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		var exists int64
		if err := tx.Model(&models.Ride{}).Where("id = ?", booking.RideID).Count(&exists).Error; err != nil {
			return false, fmt.Errorf("failed to check ride: %w", err)
		}
		if exists > 0 {
			logrus.WithField("rideId", booking.RideID).Warn("Seat count already at capacity on cancel")
		}
		return exists > 0, nil
	}
	return true, nil
}

// userIDByEmail returns 0 when the email has no account.
func userIDByEmail(tx *gorm.DB, email string) uint {
	var ids []uint
	if err := tx.Model(&models.User{}).Where("email = ?", email).Limit(1).Pluck("id", &ids).Error; err != nil || len(ids) == 0 {
		return 0
	}
	return ids[0]
}
