package services

import (
	"context"
	"testing"

	"github.com/chachabrian/unipool-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, "driver@uni.edu")
	p := f.user(t, "p@uni.edu")
	ride := f.ride(t, driver, 3)
	f.ride(t, driver, 1)
	_, err := f.bookings.Join(ctx, ride.ID, p.Email)
	require.NoError(t, err)

	dash, err := f.admin.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, Totals{Users: 2, Rides: 2, Bookings: 1}, dash.Totals)
	require.Len(t, dash.Users, 2)
	assert.Equal(t, driver.ID, dash.Users[0].ID)
	require.Len(t, dash.Rides, 2)
}

func TestDeleteUserGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, "admin@unipool.com")
	driver := f.user(t, "driver@uni.edu")
	reviewer := f.user(t, "reviewer@uni.edu")
	passenger := f.user(t, "p@uni.edu")

	assert.True(t, IsNotFound(f.admin.DeleteUser(ctx, 999)))
	assert.True(t, IsForbidden(f.admin.DeleteUser(ctx, admin.ID)))

	reviewed := f.ride(t, driver, 2)
	_, err := f.reviews.Submit(ctx, reviewed.ID, reviewer.Email, 5, "")
	require.NoError(t, err)
	assert.True(t, IsConflict(f.admin.DeleteUser(ctx, reviewer.ID)))
	assert.True(t, IsConflict(f.admin.DeleteUser(ctx, driver.ID)))

	busyDriver := f.user(t, "busy@uni.edu")
	busy := f.ride(t, busyDriver, 2)
	_, err = f.bookings.Join(ctx, busy.ID, passenger.Email)
	require.NoError(t, err)

	err = f.admin.DeleteUser(ctx, busyDriver.ID)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, int64(1), conflict.Count)
}

func TestDeleteUserReleasesBookingsAndRides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, "driver@uni.edu")
	leaving := f.user(t, "leaving@uni.edu")

	booked := f.ride(t, driver, 2)
	_, err := f.bookings.Join(ctx, booked.ID, leaving.Email)
	require.NoError(t, err)
	own := f.ride(t, leaving, 3)

	require.NoError(t, f.admin.DeleteUser(ctx, leaving.ID))

	assert.Equal(t, 2, f.seats(t, booked.ID))
	assert.Equal(t, int64(0), f.bookingCount(t, booked.ID))

	var rides int64
	require.NoError(t, f.db.Model(&models.Ride{}).Where("id = ?", own.ID).Count(&rides).Error)
	assert.Equal(t, int64(0), rides)

	var users int64
	require.NoError(t, f.db.Model(&models.User{}).Where("id = ?", leaving.ID).Count(&users).Error)
	assert.Equal(t, int64(0), users)

	cancelled := f.events.ofType(EventBookingCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, []uint{driver.ID}, cancelled[0].Recipients)
}

func TestAdminDeleteRideRemovesBookingsAndReviews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, "driver@uni.edu")
	p := f.user(t, "p@uni.edu")
	ride := f.ride(t, driver, 2)
	_, err := f.bookings.Join(ctx, ride.ID, p.Email)
	require.NoError(t, err)
	_, err = f.reviews.Submit(ctx, ride.ID, p.Email, 4, "")
	require.NoError(t, err)

	assert.True(t, IsNotFound(f.admin.DeleteRide(ctx, 999)))
	require.NoError(t, f.admin.DeleteRide(ctx, ride.ID))

	assert.Equal(t, int64(0), f.bookingCount(t, ride.ID))
	var reviews int64
	require.NoError(t, f.db.Model(&models.Review{}).Where("ride_id = ?", ride.ID).Count(&reviews).Error)
	assert.Equal(t, int64(0), reviews)

	removed := f.events.ofType(EventRideRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, []uint{p.ID}, removed[0].Recipients)

	// With the review gone the passenger can now be removed.
	require.NoError(t, f.admin.DeleteUser(ctx, p.ID))
}
