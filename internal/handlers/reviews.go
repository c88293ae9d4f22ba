package handlers

import (
	"net/http"

	"github.com/chachabrian/unipool-backend/internal/middleware"
	"github.com/chachabrian/unipool-backend/internal/services"
	"github.com/gin-gonic/gin"
)

type SubmitReviewInput struct {
	RideID  uint   `json:"rideId" binding:"required"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func SubmitReview(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input SubmitReviewInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		review, err := reviews.Submit(c.Request.Context(), input.RideID,
			c.GetString(middleware.KeyUserEmail), input.Rating, input.Comment)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, review)
	}
}

// GetDriverReviews returns the reviews written about the current user.
func GetDriverReviews(reviews *services.ReviewService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := reviews.ForDriver(c.Request.Context(), c.GetUint(middleware.KeyUserID))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
