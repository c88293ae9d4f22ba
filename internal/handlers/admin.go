package handlers

import (
	"net/http"

	"github.com/chachabrian/unipool-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func AdminDashboard(admin *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		dash, err := admin.Dashboard(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dash)
	}
}

// AdminDeleteUser removes the account and signs it out everywhere.
func AdminDeleteUser(admin *services.AdminService, sessions *services.SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		if err := admin.DeleteUser(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		if err := sessions.DeleteForUser(c.Request.Context(), id); err != nil {
			logrus.WithError(err).WithField("userId", id).Warn("Failed to end sessions of deleted user")
		}
		c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
	}
}

func AdminDeleteRide(admin *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}

		if err := admin.DeleteRide(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Ride deleted"})
	}
}
