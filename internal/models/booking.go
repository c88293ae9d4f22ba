package models

import (
	"time"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "Confirmed"
)

// Booking is a passenger's claim on one seat. Cancelling removes the row, so
// the (ride, passenger) unique index always describes active bookings.
type Booking struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	RideID      uint          `gorm:"column:ride_id;not null;uniqueIndex:idx_bookings_ride_passenger" json:"rideId"`
	Ride        *Ride         `gorm:"foreignKey:RideID" json:"ride,omitempty"`
	PassengerID uint          `gorm:"column:passenger_id;not null;uniqueIndex:idx_bookings_ride_passenger;index" json:"passengerId"`
	Passenger   *User         `gorm:"foreignKey:PassengerID;constraint:OnDelete:CASCADE" json:"passenger,omitempty"`
	Status      BookingStatus `gorm:"column:status;not null;default:'Confirmed'" json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// TableName specifies the table name
func (Booking) TableName() string {
	return "bookings"
}
