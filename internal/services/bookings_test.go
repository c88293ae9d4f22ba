package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/chachabrian/unipool-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinScenarioTwoSeats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, "driver@uni.edu")
	a := f.user(t, "a@uni.edu")
	b := f.user(t, "b@uni.edu")
	c := f.user(t, "c@uni.edu")
	ride := f.ride(t, driver, 2)

	bookingA, err := f.bookings.Join(ctx, ride.ID, a.Email)
	require.NoError(t, err)
	assert.Equal(t, models.BookingStatusConfirmed, bookingA.Status)
	assert.Equal(t, 1, f.seats(t, ride.ID))

	_, err = f.bookings.Join(ctx, ride.ID, b.Email)
	require.NoError(t, err)
	assert.Equal(t, 0, f.seats(t, ride.ID))

	_, err = f.bookings.Join(ctx, ride.ID, c.Email)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Reason, "no seats")
	assert.Equal(t, 0, f.seats(t, ride.ID))

	require.NoError(t, f.bookings.Cancel(ctx, bookingA.ID, a.Email))
	assert.Equal(t, 1, f.seats(t, ride.ID))

	_, err = f.bookings.Join(ctx, ride.ID, c.Email)
	require.NoError(t, err)
	assert.Equal(t, 0, f.seats(t, ride.ID))
	f.assertSeatInvariant(t, ride.ID)
}

func TestJoinFailureOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, "driver@uni.edu")
	passenger := f.user(t, "p@uni.edu")
	ride := f.ride(t, driver, 1)

	_, err := f.bookings.Join(ctx, 999, passenger.Email)
	assert.True(t, IsNotFound(err), "unknown ride")

	_, err = f.bookings.Join(ctx, ride.ID, "DRIVER@uni.edu")
	assert.True(t, IsForbidden(err), "own ride")

	_, err = f.bookings.Join(ctx, ride.ID, "ghost@uni.edu")
	assert.True(t, IsNotFound(err), "unknown passenger")

	_, err = f.bookings.Join(ctx, ride.ID, passenger.Email)
	require.NoError(t, err)

	// Already booked is reported before the ride being full.
	_, err = f.bookings.Join(ctx, ride.ID, passenger.Email)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Contains(t, conflict.Reason, "already booked")
	assert.Equal(t, 0, f.seats(t, ride.ID))
	f.assertSeatInvariant(t, ride.ID)
}

func TestConcurrentJoinsForLastSeat(t *testing.T) {
	f := newFixture(t)
	driver := f.user(t, "driver@uni.edu")
	ride := f.ride(t, driver, 1)

	passengers := []*models.User{f.user(t, "a@uni.edu"), f.user(t, "b@uni.edu")}
	errs := make([]error, len(passengers))

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i, p := range passengers {
		wg.Add(1)
		go func(i int, email string) {
			defer wg.Done()
			<-start
			_, errs[i] = f.bookings.Join(context.Background(), ride.ID, email)
		}(i, p.Email)
	}
	close(start)
	wg.Wait()

	succeeded, conflicts := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case IsConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, int64(1), f.bookingCount(t, ride.ID))
	f.assertSeatInvariant(t, ride.ID)
}

func TestCancelRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, "driver@uni.edu")
	owner := f.user(t, "owner@uni.edu")
	stranger := f.user(t, "stranger@uni.edu")
	ride := f.ride(t, driver, 3)

	booking, err := f.bookings.Join(ctx, ride.ID, owner.Email)
	require.NoError(t, err)
	before := f.seats(t, ride.ID)

	err = f.bookings.Cancel(ctx, 999, owner.Email)
	assert.True(t, IsNotFound(err))

	err = f.bookings.Cancel(ctx, booking.ID, stranger.Email)
	assert.True(t, IsForbidden(err))
	assert.Equal(t, before, f.seats(t, ride.ID))

	require.NoError(t, f.bookings.Cancel(ctx, booking.ID, "Owner@Uni.edu"))
	assert.Equal(t, before+1, f.seats(t, ride.ID))

	err = f.bookings.Cancel(ctx, booking.ID, owner.Email)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, before+1, f.seats(t, ride.ID))

	// Cancel then rejoin consumes exactly one seat again.
	_, err = f.bookings.Join(ctx, ride.ID, owner.Email)
	require.NoError(t, err)
	assert.Equal(t, before, f.seats(t, ride.ID))
	f.assertSeatInvariant(t, ride.ID)

	cancelled := f.events.ofType(EventBookingCancelled)
	require.Len(t, cancelled, 1)
	assert.Equal(t, []uint{driver.ID}, cancelled[0].Recipients)
	assert.Len(t, f.events.ofType(EventBookingCreated), 2)
}

func TestListForPassenger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.user(t, "driver@uni.edu")
	passenger := f.user(t, "p@uni.edu")
	base := time.Now().Add(24 * time.Hour)

	sooner := f.rideTo(t, driver, 2, "A", "B", base)
	later := f.rideTo(t, driver, 2, "A", "C", base.Add(5*time.Hour))

	_, err := f.bookings.Join(ctx, sooner.ID, passenger.Email)
	require.NoError(t, err)
	_, err = f.bookings.Join(ctx, later.ID, passenger.Email)
	require.NoError(t, err)

	_, err = f.reviews.Submit(ctx, sooner.ID, passenger.Email, 5, "great")
	require.NoError(t, err)

	list, err := f.bookings.ListForPassenger(ctx, passenger.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, later.ID, list[0].RideID)
	assert.False(t, list[0].Reviewed)
	assert.Equal(t, sooner.ID, list[1].RideID)
	assert.True(t, list[1].Reviewed)

	require.NotNil(t, list[0].Driver)
	assert.Equal(t, driver.Email, list[0].Driver.Email)
	require.NotNil(t, list[0].Ride)
	assert.Equal(t, "C", list[0].Ride.Destination)

	empty, err := f.bookings.ListForPassenger(ctx, driver.ID)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
