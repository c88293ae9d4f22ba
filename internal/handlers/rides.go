package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/chachabrian/unipool-backend/internal/middleware"
	"github.com/chachabrian/unipool-backend/internal/services"
	"github.com/chachabrian/unipool-backend/pkg/utils"
	"github.com/gin-gonic/gin"
)

type CreateRideInput struct {
	Departure     string `json:"departure"`
	Destination   string `json:"destination"`
	DepartureTime string `json:"departureTime"`
	Seats         int    `json:"seats"`
	Mode          string `json:"mode"`
	CarModel      string `json:"carModel"`
}

// CreateRide posts a ride for the current user. loc interprets departure
// times sent without a zone.
func CreateRide(rides *services.RideService, loc *time.Location) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input CreateRideInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var departureTime time.Time
		if strings.TrimSpace(input.DepartureTime) != "" {
			parsed, err := utils.ParseDepartureTime(input.DepartureTime, loc)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "departure time is not a valid date and time", "field": "departureTime"})
				return
			}
			departureTime = parsed
		}

		ride, err := rides.Create(c.Request.Context(),
			c.GetString(middleware.KeyUserEmail),
			c.GetString(middleware.KeyUserName),
			services.NewRide{
				Departure:     input.Departure,
				Destination:   input.Destination,
				DepartureTime: departureTime,
				Seats:         input.Seats,
				Mode:          input.Mode,
				CarModel:      input.CarModel,
			})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, ride)
	}
}

// ListRides supports ?from=&to=&mode= filters.
func ListRides(rides *services.RideService) gin.HandlerFunc {
	return func(c *gin.Context) {
		listings, err := rides.List(c.Request.Context(), services.RideFilter{
			From: c.Query("from"),
			To:   c.Query("to"),
			Mode: c.Query("mode"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listings)
	}
}

func GetRide(rides *services.RideService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		listing, err := rides.Get(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, listing)
	}
}

func GetOfferedRides(rides *services.RideService) gin.HandlerFunc {
	return func(c *gin.Context) {
		offered, err := rides.ListOffered(c.Request.Context(), c.GetString(middleware.KeyUserEmail))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, offered)
	}
}

func ManageRide(rides *services.RideService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		ride, err := rides.Manage(c.Request.Context(), id, c.GetString(middleware.KeyUserEmail))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ride)
	}
}

func CompleteRide(rides *services.RideService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		ride, err := rides.MarkComplete(c.Request.Context(), id, c.GetString(middleware.KeyUserEmail))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, ride)
	}
}

func DeleteRide(rides *services.RideService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := rides.Delete(c.Request.Context(), id, c.GetString(middleware.KeyUserEmail)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Ride deleted"})
	}
}
