package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/chachabrian/unipool-backend/internal/database"
	"github.com/chachabrian/unipool-backend/internal/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Rating is a driver's aggregate score, recomputed on every read.
type Rating struct {
	Average float64 `json:"averageRating"`
	Count   int64   `json:"count"`
}

type ReviewView struct {
	models.Review
	ReviewerName string `json:"reviewerName"`
	Departure    string `json:"departure"`
	Destination  string `json:"destination"`
}

type DriverReviews struct {
	Reviews       []ReviewView `json:"reviews"`
	AverageRating float64      `json:"averageRating"`
	Count         int64        `json:"count"`
}

type ReviewService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewReviewService(db *gorm.DB) *ReviewService {
	return &ReviewService{db: db, now: time.Now}
}

// Submit records reviewerEmail's rating of the ride's driver.
func (s *ReviewService) Submit(ctx context.Context, rideID uint, reviewerEmail string, rating int, comment string) (*models.Review, error) {
	reviewerEmail = models.NormalizeEmail(reviewerEmail)
	if reviewerEmail == "" {
		return nil, newForbidden("you must be logged in to leave a review")
	}

	var review models.Review
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reviewer, err := findUserByEmail(tx, reviewerEmail)
		if err != nil {
			if IsNotFound(err) {
				return newForbidden("you must be logged in to leave a review")
			}
			return err
		}

		var ride models.Ride
		if err := tx.First(&ride, rideID).Error; err != nil {
			return notFoundOr(err, "ride", rideID)
		}

		driver, err := findUserByEmail(tx, ride.DriverEmail)
		if err != nil {
			if IsNotFound(err) {
				return newNotFound("driver", ride.DriverEmail)
			}
			return err
		}

		var existing int64
		if err := tx.Model(&models.Review{}).
			Where("ride_id = ? AND reviewer_id = ?", rideID, reviewer.ID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check reviews: %w", err)
		}
		if existing > 0 {
			return newConflict("you have already reviewed this ride")
		}

		if rating < models.MinRating || rating > models.MaxRating {
			return newValidation("rating", fmt.Sprintf("rating must be between %d and %d", models.MinRating, models.MaxRating))
		}

		review = models.Review{
			RideID:     rideID,
			ReviewerID: reviewer.ID,
			DriverID:   driver.ID,
			Rating:     rating,
			Comment:    strings.TrimSpace(comment),
			CreatedAt:  s.now().UTC(),
		}
		if err := tx.Create(&review).Error; err != nil {
			if database.IsUniqueViolation(err) {
				return newConflict("you have already reviewed this ride")
			}
			return fmt.Errorf("failed to save review: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"rideId": rideID, "driverId": review.DriverID, "rating": rating}).Info("Review submitted")
	return &review, nil
}

// ForDriver lists the driver's reviews, newest first, with their average.
func (s *ReviewService) ForDriver(ctx context.Context, driverID uint) (*DriverReviews, error) {
	db := s.db.WithContext(ctx)

	var reviews []models.Review
	if err := db.Preload("Reviewer").Preload("Ride").
		Where("driver_id = ?", driverID).
		Order("created_at DESC").Order("id DESC").
		Find(&reviews).Error; err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}

	views := make([]ReviewView, len(reviews))
	total := 0
	for i, r := range reviews {
		view := ReviewView{Review: r}
		if r.Reviewer != nil {
			view.ReviewerName = r.Reviewer.DisplayName()
		}
		if r.Ride != nil {
			view.Departure = r.Ride.Departure
			view.Destination = r.Ride.Destination
		}
		views[i] = view
		total += r.Rating
	}

	return &DriverReviews{
		Reviews:       views,
		AverageRating: averageRating(int64(total), int64(len(reviews))),
		Count:         int64(len(reviews)),
	}, nil
}

// driverRatings aggregates ratings for many drivers in one query.
func driverRatings(db *gorm.DB, driverIDs []uint) (map[uint]Rating, error) {
	ratings := make(map[uint]Rating, len(driverIDs))
	if len(driverIDs) == 0 {
		return ratings, nil
	}

	var rows []struct {
		DriverID uint
		Total    int64
		Reviews  int64
	}
	if err := db.Model(&models.Review{}).
		Select("driver_id, SUM(rating) AS total, COUNT(*) AS reviews").
		Where("driver_id IN ?", driverIDs).
		Group("driver_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}

	for _, row := range rows {
		ratings[row.DriverID] = Rating{Average: averageRating(row.Total, row.Reviews), Count: row.Reviews}
	}
	return ratings, nil
}

// averageRating rounds to one decimal; no reviews averages to zero.
func averageRating(total, count int64) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(float64(total)/float64(count)*10) / 10
}
