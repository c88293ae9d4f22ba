package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chachabrian/unipool-backend/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultModeOfTransport = "Car"

type NewRide struct {
	Departure     string
	Destination   string
	DepartureTime time.Time
	Seats         int
	Mode          string
	CarModel      string
}

// RideFilter narrows ListRides. Empty fields are ignored.
type RideFilter struct {
	From string
	To   string
	Mode string
}

type DriverProfile struct {
	ID          uint   `json:"id"`
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	CarImageURL string `json:"carImageUrl,omitempty"`
}

// RideListing is a ride annotated at read time with its driver. The rating
// fields are zero when the driver has no reviews or no account.
type RideListing struct {
	models.Ride
	State             models.RideState `json:"state"`
	Driver            *DriverProfile   `json:"driver,omitempty"`
	DriverRating      float64          `json:"driverRating"`
	DriverReviewCount int64            `json:"driverReviewCount"`
}

type OfferedRide struct {
	models.Ride
	State        models.RideState `json:"state"`
	BookingCount int64            `json:"bookingCount"`
}

// ManagedRide is the owner's view: the ride plus every booking with its passenger.
type ManagedRide struct {
	models.Ride
	State models.RideState `json:"state"`
}

type RideService struct {
	db       *gorm.DB
	notifier Notifier
	images   ImageStore
	now      func() time.Time
}

func NewRideService(db *gorm.DB, notifier Notifier, images ImageStore) *RideService {
	return &RideService{
		db:       db,
		notifier: orNoop(notifier),
		images:   images,
		now:      time.Now,
	}
}

// Create posts a ride offer owned by ownerEmail.
func (s *RideService) Create(ctx context.Context, ownerEmail, ownerName string, in NewRide) (*models.Ride, error) {
	ownerEmail = models.NormalizeEmail(ownerEmail)
	if ownerEmail == "" {
		return nil, newForbidden("you must be logged in to offer a ride")
	}

	departure := strings.TrimSpace(in.Departure)
	destination := strings.TrimSpace(in.Destination)
	if departure == "" {
		return nil, newValidation("departure", "departure is required")
	}
	if destination == "" {
		return nil, newValidation("destination", "destination is required")
	}
	if in.Seats < models.MinSeats || in.Seats > models.MaxSeats {
		return nil, newValidation("seats", fmt.Sprintf("seats must be between %d and %d", models.MinSeats, models.MaxSeats))
	}
	if in.DepartureTime.IsZero() {
		return nil, newValidation("departureTime", "departure time is required")
	}

	if !in.DepartureTime.After(s.now()) {
		return nil, newValidation("departureTime", "departure time must be in the future")
	}
	departureTime := in.DepartureTime.Truncate(time.Minute).UTC()

	mode := strings.TrimSpace(in.Mode)
	if mode == "" {
		mode = defaultModeOfTransport
	}

	ride := models.Ride{
		DriverEmail:     ownerEmail,
		DriverName:      strings.TrimSpace(ownerName),
		Departure:       departure,
		Destination:     destination,
		DepartureTime:   departureTime,
		SeatCapacity:    in.Seats,
		AvailableSeats:  in.Seats,
		ModeOfTransport: mode,
		CarModel:        strings.TrimSpace(in.CarModel),
	}
	if err := s.db.WithContext(ctx).Create(&ride).Error; err != nil {
		return nil, fmt.Errorf("failed to create ride: %w", err)
	}

	logrus.WithFields(logrus.Fields{"rideId": ride.ID, "driver": ownerEmail}).Info("Ride created")
	s.notifier.Notify(ctx, rideEvent(EventRideCreated, &ride,
		fmt.Sprintf("New ride from %s to %s", ride.Departure, ride.Destination), nil))

	return &ride, nil
}

// List returns rides ordered by departure time with driver annotations.
func (s *RideService) List(ctx context.Context, filter RideFilter) ([]RideListing, error) {
	query := s.db.WithContext(ctx).Model(&models.Ride{})

	if from := strings.TrimSpace(filter.From); from != "" {
		query = query.Where(`LOWER(departure) LIKE ? ESCAPE '\'`, containsPattern(from))
	}
	if to := strings.TrimSpace(filter.To); to != "" {
		query = query.Where(`LOWER(destination) LIKE ? ESCAPE '\'`, containsPattern(to))
	}
	if mode := strings.TrimSpace(filter.Mode); mode != "" {
		query = query.Where("LOWER(mode_of_transport) = ?", strings.ToLower(mode))
	}

	var rides []models.Ride
	if err := query.Order("departure_time ASC").Order("id ASC").Find(&rides).Error; err != nil {
		return nil, fmt.Errorf("failed to list rides: %w", err)
	}

	return s.annotate(s.db.WithContext(ctx), rides)
}

func (s *RideService) Get(ctx context.Context, rideID uint) (*RideListing, error) {
	var ride models.Ride
	if err := s.db.WithContext(ctx).First(&ride, rideID).Error; err != nil {
		return nil, notFoundOr(err, "ride", rideID)
	}

	listings, err := s.annotate(s.db.WithContext(ctx), []models.Ride{ride})
	if err != nil {
		return nil, err
	}
	return &listings[0], nil
}

// ListOffered returns the rides driverEmail posted, latest departure first.
func (s *RideService) ListOffered(ctx context.Context, driverEmail string) ([]OfferedRide, error) {
	driverEmail = models.NormalizeEmail(driverEmail)
	if driverEmail == "" {
		return nil, newForbidden("you must be logged in to view your rides")
	}

	db := s.db.WithContext(ctx)
	var rides []models.Ride
	if err := db.Where("driver_email = ?", driverEmail).
		Order("departure_time DESC").Order("id DESC").
		Find(&rides).Error; err != nil {
		return nil, fmt.Errorf("failed to list offered rides: %w", err)
	}

	counts, err := bookingCounts(db, rideIDs(rides))
	if err != nil {
		return nil, err
	}

	offered := make([]OfferedRide, len(rides))
	for i, ride := range rides {
		offered[i] = OfferedRide{Ride: ride, State: ride.State(), BookingCount: counts[ride.ID]}
	}
	return offered, nil
}

// Manage loads a ride with its bookings for the owning driver.
func (s *RideService) Manage(ctx context.Context, rideID uint, requesterEmail string) (*ManagedRide, error) {
	var ride models.Ride
	err := s.db.WithContext(ctx).
		Preload("Bookings", func(db *gorm.DB) *gorm.DB { return db.Order("bookings.created_at ASC") }).
		Preload("Bookings.Passenger").
		First(&ride, rideID).Error
	if err != nil {
		return nil, notFoundOr(err, "ride", rideID)
	}
	if !isOwner(&ride, requesterEmail) {
		return nil, newForbidden("only the driver can manage this ride")
	}
	return &ManagedRide{Ride: ride, State: ride.State()}, nil
}

// MarkComplete flags the ride as completed. Completing twice is a no-op.
func (s *RideService) MarkComplete(ctx context.Context, rideID uint, requesterEmail string) (*models.Ride, error) {
	var ride models.Ride
	var passengers []uint
	changed := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&ride, rideID).Error; err != nil {
			return notFoundOr(err, "ride", rideID)
		}
		if !isOwner(&ride, requesterEmail) {
			return newForbidden("only the driver can complete this ride")
		}
		if ride.IsCompleted {
			return nil
		}

		res := tx.Model(&models.Ride{}).
			Where("id = ? AND is_completed = ?", rideID, false).
			Update("is_completed", true)
		if res.Error != nil {
			return fmt.Errorf("failed to complete ride: %w", res.Error)
		}
		ride.IsCompleted = true
		changed = res.RowsAffected > 0
		if !changed {
			return nil
		}

		var err error
		passengers, err = passengerIDs(tx, rideID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		logrus.WithField("rideId", rideID).Info("Ride marked complete")
		if len(passengers) > 0 {
			s.notifier.Notify(ctx, rideEvent(EventRideCompleted, &ride,
				fmt.Sprintf("Your ride to %s is complete. You can now review the driver.", ride.Destination), passengers))
		}
	}
	return &ride, nil
}

// Delete removes a ride that has no bookings. The ride's reviews go with it.
func (s *RideService) Delete(ctx context.Context, rideID uint, requesterEmail string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ride models.Ride
		if err := tx.First(&ride, rideID).Error; err != nil {
			return notFoundOr(err, "ride", rideID)
		}
		if !isOwner(&ride, requesterEmail) {
			return newForbidden("only the driver can delete this ride")
		}

		res := tx.Where("id = ?", rideID).
			Where("NOT EXISTS (SELECT 1 FROM bookings WHERE bookings.ride_id = rides.id)").
			Delete(&models.Ride{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete ride: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Booking{}).Where("ride_id = ?", rideID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to count bookings: %w", err)
			}
			return &ConflictError{
				Reason: fmt.Sprintf("cannot delete ride with %d passenger(s); bookings must be cancelled first", count),
				Count:  count,
			}
		}

		if err := tx.Where("ride_id = ?", rideID).Delete(&models.Review{}).Error; err != nil {
			return fmt.Errorf("failed to delete ride reviews: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithField("rideId", rideID).Info("Ride deleted")
	return nil
}

// annotate attaches driver profiles and ratings to rides with two batch queries.
func (s *RideService) annotate(db *gorm.DB, rides []models.Ride) ([]RideListing, error) {
	listings := make([]RideListing, len(rides))
	if len(rides) == 0 {
		return listings, nil
	}

	emails := make([]string, 0, len(rides))
	seen := make(map[string]bool, len(rides))
	for _, ride := range rides {
		if !seen[ride.DriverEmail] {
			seen[ride.DriverEmail] = true
			emails = append(emails, ride.DriverEmail)
		}
	}

	var drivers []models.User
	if err := db.Where("email IN ?", emails).Find(&drivers).Error; err != nil {
		return nil, fmt.Errorf("failed to load drivers: %w", err)
	}

	byEmail := make(map[string]*models.User, len(drivers))
	ids := make([]uint, 0, len(drivers))
	for i := range drivers {
		byEmail[drivers[i].Email] = &drivers[i]
		ids = append(ids, drivers[i].ID)
	}

	ratings, err := driverRatings(db, ids)
	if err != nil {
		return nil, err
	}

	for i, ride := range rides {
		listing := RideListing{Ride: ride, State: ride.State()}
		if driver, ok := byEmail[ride.DriverEmail]; ok {
			listing.Driver = driverProfile(driver, s.images)
			rating := ratings[driver.ID]
			listing.DriverRating = rating.Average
			listing.DriverReviewCount = rating.Count
		}
		listings[i] = listing
	}
	return listings, nil
}

func driverProfile(u *models.User, images ImageStore) *DriverProfile {
	profile := &DriverProfile{ID: u.ID, FullName: u.DisplayName(), Email: u.Email}
	if u.CarImagePath != nil && images != nil {
		profile.CarImageURL = images.URL(*u.CarImagePath)
	}
	return profile
}

func isOwner(ride *models.Ride, email string) bool {
	email = models.NormalizeEmail(email)
	return email != "" && strings.EqualFold(ride.DriverEmail, email)
}

func rideIDs(rides []models.Ride) []uint {
	ids := make([]uint, len(rides))
	for i, ride := range rides {
		ids[i] = ride.ID
	}
	return ids
}

// bookingCounts returns active booking counts keyed by ride id.
func bookingCounts(db *gorm.DB, ids []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return counts, nil
	}

	var rows []struct {
		RideID uint
		Total  int64
	}
	if err := db.Model(&models.Booking{}).
		Select("ride_id, COUNT(*) AS total").
		Where("ride_id IN ?", ids).
		Group("ride_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	for _, row := range rows {
		counts[row.RideID] = row.Total
	}
	return counts, nil
}

func passengerIDs(db *gorm.DB, rideID uint) ([]uint, error) {
	var ids []uint
	if err := db.Model(&models.Booking{}).Where("ride_id = ?", rideID).Pluck("passenger_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load passengers: %w", err)
	}
	return ids, nil
}

func rideEvent(kind EventType, ride *models.Ride, message string, recipients []uint) RideEvent {
	return RideEvent{
		Type:           kind,
		RideID:         ride.ID,
		Departure:      ride.Departure,
		Destination:    ride.Destination,
		DepartureTime:  ride.DepartureTime,
		AvailableSeats: ride.AvailableSeats,
		Message:        message,
		Recipients:     recipients,
		OccurredAt:     time.Now().UTC(),
	}
}

// containsPattern builds a LIKE pattern that matches s literally anywhere.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFoundError and wraps anything else.
func notFoundOr(err error, entity string, id interface{}) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newNotFound(entity, id)
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}
