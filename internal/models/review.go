package models

import (
	"time"
)

const (
	MinRating = 1
	MaxRating = 5
)

// Review is written once by a passenger about a ride's driver. Only the ride
// side cascades; removing users never removes reviews.
type Review struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RideID     uint      `gorm:"column:ride_id;not null;uniqueIndex:idx_reviews_ride_reviewer" json:"rideId"`
	Ride       *Ride     `gorm:"foreignKey:RideID;constraint:OnDelete:CASCADE" json:"-"`
	ReviewerID uint      `gorm:"column:reviewer_id;not null;uniqueIndex:idx_reviews_ride_reviewer" json:"reviewerId"`
	Reviewer   *User     `gorm:"foreignKey:ReviewerID;constraint:OnDelete:NO ACTION" json:"-"`
	DriverID   uint      `gorm:"column:driver_id;not null;index" json:"driverId"`
	Driver     *User     `gorm:"foreignKey:DriverID;constraint:OnDelete:NO ACTION" json:"-"`
	Rating     int       `gorm:"column:rating;not null;check:chk_reviews_rating,rating >= 1 AND rating <= 5" json:"rating"`
	Comment    string    `gorm:"column:comment;not null;default:''" json:"comment"`
	CreatedAt  time.Time `gorm:"column:created_at;not null;index" json:"createdAt"`
}

// TableName specifies the table name
func (Review) TableName() string {
	return "reviews"
}
