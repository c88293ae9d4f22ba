package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleRoundTripsThroughStore(t *testing.T) {
	v, err := RoleAdmin.Value()
	require.NoError(t, err)
	assert.Equal(t, "Admin", v)

	var r Role
	require.NoError(t, r.Scan([]byte("Admin")))
	assert.Equal(t, RoleAdmin, r)

	require.NoError(t, r.Scan("student"))
	assert.Equal(t, RoleStudent, r)
}

func TestRoleRejectsUnknownValues(t *testing.T) {
	var r Role
	assert.Error(t, r.Scan("Moderator"))
	assert.Error(t, r.Scan(42))

	_, err := Role(7).Value()
	assert.Error(t, err)

	assert.Error(t, json.Unmarshal([]byte(`"root"`), &r))
}

func TestRoleJSON(t *testing.T) {
	out, err := json.Marshal(struct {
		Role Role `json:"role"`
	}{RoleAdmin})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"Admin"}`, string(out))
}

func TestRideState(t *testing.T) {
	r := Ride{SeatCapacity: 3, AvailableSeats: 3}
	assert.Equal(t, RideStateOpen, r.State())

	r.AvailableSeats = 1
	assert.Equal(t, RideStatePartiallyBooked, r.State())
	assert.Equal(t, 2, r.BookedSeats())

	r.AvailableSeats = 0
	assert.Equal(t, RideStateFull, r.State())
}

func TestUserDisplayName(t *testing.T) {
	u := User{Email: "ana@uni.edu"}
	assert.Equal(t, "ana@uni.edu", u.DisplayName())

	u.FullName = "Ana Lima"
	assert.Equal(t, "Ana Lima", u.DisplayName())
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "ana@uni.edu", NormalizeEmail("  Ana@Uni.EDU "))
}
