package handlers

import (
	"net/http"

	"github.com/chachabrian/unipool-backend/internal/middleware"
	"github.com/chachabrian/unipool-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// GetProfile retrieves the user's profile
func GetProfile(accounts *services.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := accounts.GetProfile(c.Request.Context(), c.GetString(middleware.KeyUserEmail))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

// UpdateProfile changes the display name. An empty name falls back to the email.
func UpdateProfile(accounts *services.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			FullName string `json:"fullName"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		profile, err := accounts.UpdateProfile(c.Request.Context(), c.GetString(middleware.KeyUserEmail), input.FullName)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

// UploadCarImage expects a multipart form with a "carImage" file.
func UploadCarImage(accounts *services.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("carImage")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No image uploaded", "field": "carImage"})
			return
		}

		profile, err := accounts.SetCarImage(c.Request.Context(), c.GetString(middleware.KeyUserEmail), file)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

func RemoveCarImage(accounts *services.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		profile, err := accounts.RemoveCarImage(c.Request.Context(), c.GetString(middleware.KeyUserEmail))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}
