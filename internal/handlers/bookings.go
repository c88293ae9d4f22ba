package handlers

import (
	"net/http"

	"github.com/chachabrian/unipool-backend/internal/middleware"
	"github.com/chachabrian/unipool-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// JoinRide books a seat on :id for the current user.
func JoinRide(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		booking, err := bookings.Join(c.Request.Context(), id, c.GetString(middleware.KeyUserEmail))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, booking)
	}
}

func CancelBooking(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		if err := bookings.Cancel(c.Request.Context(), id, c.GetString(middleware.KeyUserEmail)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled"})
	}
}

func GetMyBookings(bookings *services.BookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := bookings.ListForPassenger(c.Request.Context(), c.GetUint(middleware.KeyUserID))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}
