package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/chachabrian/unipool-backend/internal/models"
	"github.com/chachabrian/unipool-backend/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []RideEvent
}

func (r *recordingNotifier) Notify(_ context.Context, event RideEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingNotifier) ofType(kind EventType) []RideEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []RideEvent
	for _, e := range r.events {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

type memoryImages struct {
	mu      sync.Mutex
	next    int
	stored  map[string]bool
	deleted []string
}

func newMemoryImages() *memoryImages {
	return &memoryImages{stored: make(map[string]bool)}
}

func (m *memoryImages) Upload(file *multipart.FileHeader, folder string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	ref := fmt.Sprintf("%s/img-%d%s", folder, m.next, filepath.Ext(file.Filename))
	m.stored[ref] = true
	return ref, nil
}

func (m *memoryImages) Delete(ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stored, ref)
	m.deleted = append(m.deleted, ref)
	return nil
}

func (m *memoryImages) URL(ref string) string {
	return "https://img.test/" + ref
}

type fixture struct {
	db       *gorm.DB
	events   *recordingNotifier
	images   *memoryImages
	accounts *AccountService
	rides    *RideService
	bookings *BookingService
	reviews  *ReviewService
	admin    *AdminService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	events := &recordingNotifier{}
	images := newMemoryImages()
	return &fixture{
		db:       db,
		events:   events,
		images:   images,
		accounts: NewAccountService(db, images, "admin@unipool.com"),
		rides:    NewRideService(db, events, images),
		bookings: NewBookingService(db, events, images),
		reviews:  NewReviewService(db),
		admin:    NewAdminService(db, events),
	}
}

func (f *fixture) user(t *testing.T, email string) *models.User {
	t.Helper()
	u, err := f.accounts.Register(context.Background(), "", email, "password")
	require.NoError(t, err)
	return u
}

func (f *fixture) ride(t *testing.T, driver *models.User, seats int) *models.Ride {
	t.Helper()
	return f.rideTo(t, driver, seats, "Campus", "Downtown", time.Now().Add(48*time.Hour))
}

func (f *fixture) rideTo(t *testing.T, driver *models.User, seats int, from, to string, at time.Time) *models.Ride {
	t.Helper()
	ride, err := f.rides.Create(context.Background(), driver.Email, driver.DisplayName(), NewRide{
		Departure:     from,
		Destination:   to,
		DepartureTime: at,
		Seats:         seats,
	})
	require.NoError(t, err)
	return ride
}

func (f *fixture) seats(t *testing.T, rideID uint) int {
	t.Helper()
	var ride models.Ride
	require.NoError(t, f.db.First(&ride, rideID).Error)
	return ride.AvailableSeats
}

func (f *fixture) bookingCount(t *testing.T, rideID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Booking{}).Where("ride_id = ?", rideID).Count(&n).Error)
	return n
}

// assertSeatInvariant checks availableSeats = capacity - bookings.
func (f *fixture) assertSeatInvariant(t *testing.T, rideID uint) {
	t.Helper()
	var ride models.Ride
	require.NoError(t, f.db.First(&ride, rideID).Error)
	require.GreaterOrEqual(t, ride.AvailableSeats, 0)
	require.Equal(t, int64(ride.SeatCapacity-ride.AvailableSeats), f.bookingCount(t, rideID))
}
