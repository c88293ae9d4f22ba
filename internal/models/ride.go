package models

import (
	"time"
)

type RideState string

const (
	RideStateOpen            RideState = "open"
	RideStatePartiallyBooked RideState = "partially_booked"
	RideStateFull            RideState = "full"
)

const (
	MinSeats = 1
	MaxSeats = 50
)

type Ride struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	DriverEmail     string    `gorm:"column:driver_email;not null;index" json:"driverEmail"`
	DriverName      string    `gorm:"column:driver_name;not null;default:''" json:"driverName"`
	Departure       string    `gorm:"column:departure;not null" json:"departure"`
	Destination     string    `gorm:"column:destination;not null" json:"destination"`
	DepartureTime   time.Time `gorm:"column:departure_time;not null;index" json:"departureTime"`
	SeatCapacity    int       `gorm:"column:seat_capacity;not null;check:chk_rides_seat_capacity,seat_capacity BETWEEN 1 AND 50" json:"seatCapacity"`
	AvailableSeats  int       `gorm:"column:available_seats;not null;check:chk_rides_available_seats,available_seats >= 0 AND available_seats <= seat_capacity" json:"availableSeats"`
	ModeOfTransport string    `gorm:"column:mode_of_transport;not null;default:'Car'" json:"modeOfTransport"`
	CarModel        string    `gorm:"column:car_model;not null;default:''" json:"carModel"`
	IsCompleted     bool      `gorm:"column:is_completed;not null;default:false" json:"isCompleted"`
	Bookings        []Booking `gorm:"foreignKey:RideID;constraint:OnDelete:CASCADE" json:"bookings,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// TableName specifies the table name
func (Ride) TableName() string {
	return "rides"
}

// State derives the seat state from the counters.
func (r *Ride) State() RideState {
	switch {
	case r.AvailableSeats <= 0:
		return RideStateFull
	case r.AvailableSeats < r.SeatCapacity:
		return RideStatePartiallyBooked
	default:
		return RideStateOpen
	}
}

// BookedSeats is the number of seats held by active bookings.
func (r *Ride) BookedSeats() int {
	return r.SeatCapacity - r.AvailableSeats
}
