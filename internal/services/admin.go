package services

import (
	"context"
	"fmt"

	"github.com/chachabrian/unipool-backend/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type Totals struct {
	Users    int64 `json:"users"`
	Rides    int64 `json:"rides"`
	Bookings int64 `json:"bookings"`
}

type Dashboard struct {
	Users  []models.User `json:"users"`
	Rides  []OfferedRide `json:"rides"`
	Totals Totals        `json:"totals"`
}

type AdminService struct {
	db       *gorm.DB
	notifier Notifier
}

func NewAdminService(db *gorm.DB, notifier Notifier) *AdminService {
	return &AdminService{db: db, notifier: orNoop(notifier)}
}

func (s *AdminService) Dashboard(ctx context.Context) (*Dashboard, error) {
	db := s.db.WithContext(ctx)

	var users []models.User
	if err := db.Order("id ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	var rides []models.Ride
	if err := db.Order("departure_time DESC").Order("id DESC").Find(&rides).Error; err != nil {
		return nil, fmt.Errorf("failed to list rides: %w", err)
	}

	counts, err := bookingCounts(db, rideIDs(rides))
	if err != nil {
		return nil, err
	}

	dash := &Dashboard{
		Users: users,
		Rides: make([]OfferedRide, len(rides)),
		Totals: Totals{
			Users: int64(len(users)),
			Rides: int64(len(rides)),
		},
	}
	for i, ride := range rides {
		dash.Rides[i] = OfferedRide{Ride: ride, State: ride.State(), BookingCount: counts[ride.ID]}
		dash.Totals.Bookings += counts[ride.ID]
	}
	return dash, nil
}

// DeleteUser removes a student account. The user's bookings are cancelled and
// their empty rides removed in the same transaction.
func (s *AdminService) DeleteUser(ctx context.Context, userID uint) error {
	var released []models.Booking

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			return notFoundOr(err, "user", userID)
		}
		if user.IsAdmin() {
			return newForbidden("admin accounts cannot be deleted")
		}

		var reviews int64
		if err := tx.Model(&models.Review{}).
			Where("reviewer_id = ? OR driver_id = ?", user.ID, user.ID).
			Count(&reviews).Error; err != nil {
			return fmt.Errorf("failed to count reviews: %w", err)
		}
		if reviews > 0 {
			return newConflict(fmt.Sprintf("cannot delete a user with %d review(s)", reviews))
		}

		var passengers int64
		if err := tx.Model(&models.Booking{}).
			Joins("JOIN rides ON rides.id = bookings.ride_id").
			Where("rides.driver_email = ?", user.Email).
			Count(&passengers).Error; err != nil {
			return fmt.Errorf("failed to count passengers: %w", err)
		}
		if passengers > 0 {
			return &ConflictError{
				Reason: fmt.Sprintf("cannot delete a user whose rides have %d passenger(s)", passengers),
				Count:  passengers,
			}
		}

		var bookings []models.Booking
		if err := tx.Where("passenger_id = ?", user.ID).Find(&bookings).Error; err != nil {
			return fmt.Errorf("failed to load bookings: %w", err)
		}
		for i := range bookings {
			found, err := releaseBooking(tx, &bookings[i])
			if err != nil {
				return err
			}
			if found {
				released = append(released, bookings[i])
			}
		}

		var owned []uint
		if err := tx.Model(&models.Ride{}).Where("driver_email = ?", user.Email).Pluck("id", &owned).Error; err != nil {
			return fmt.Errorf("failed to load rides: %w", err)
		}
		if len(owned) > 0 {
			if err := tx.Where("ride_id IN ?", owned).Delete(&models.Review{}).Error; err != nil {
				return fmt.Errorf("failed to delete ride reviews: %w", err)
			}
			if err := tx.Where("id IN ?", owned).Delete(&models.Ride{}).Error; err != nil {
				return fmt.Errorf("failed to delete rides: %w", err)
			}
		}

		if err := tx.Delete(&models.User{}, user.ID).Error; err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{"userId": userID, "releasedBookings": len(released)}).Info("User deleted by admin")
	s.notifyDrivers(ctx, released)
	return nil
}

// DeleteRide removes a ride regardless of bookings, with its bookings and reviews.
func (s *AdminService) DeleteRide(ctx context.Context, rideID uint) error {
	var ride models.Ride
	var passengers []uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ride, rideID).Error; err != nil {
			return notFoundOr(err, "ride", rideID)
		}

		var err error
		passengers, err = passengerIDs(tx, rideID)
		if err != nil {
			return err
		}

		if err := tx.Where("ride_id = ?", rideID).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("failed to delete reviews: %w", err)
		}
		if err := tx.Where("ride_id = ?", rideID).Delete(&models.Booking{}).Error; err != nil {
			return fmt.Errorf("failed to delete bookings: %w", err)
		}
		if err := tx.Delete(&models.Ride{}, rideID).Error; err != nil {
			return fmt.Errorf("failed to delete ride: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{"rideId": rideID, "passengers": len(passengers)}).Info("Ride removed by admin")
	if len(passengers) > 0 {
		s.notifier.Notify(ctx, rideEvent(EventRideRemoved, &ride,
			fmt.Sprintf("Your ride from %s to %s was removed by an administrator", ride.Departure, ride.Destination), passengers))
	}
	return nil
}

func (s *AdminService) notifyDrivers(ctx context.Context, released []models.Booking) {
	for _, b := range released {
		var ride models.Ride
		if err := s.db.WithContext(ctx).First(&ride, b.RideID).Error; err != nil {
			continue
		}
		driverID := userIDByEmail(s.db.WithContext(ctx), ride.DriverEmail)
		if driverID == 0 {
			continue
		}
		s.notifier.Notify(ctx, rideEvent(EventBookingCancelled, &ride,
			fmt.Sprintf("A passenger's booking on your ride to %s was cancelled", ride.Destination), []uint{driverID}))
	}
}
