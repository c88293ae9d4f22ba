package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/chachabrian/unipool-backend/internal/middleware"
	"github.com/chachabrian/unipool-backend/internal/services"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const genericFailure = "Something went wrong. Please try again."

// respondError maps domain errors onto status codes. Anything unexpected is
// logged, reported to Sentry and hidden behind a generic message.
func respondError(c *gin.Context, err error) {
	var validation *services.ValidationError
	var notFound *services.NotFoundError
	var forbidden *services.AuthorizationError
	var conflict *services.ConflictError

	switch {
	case errors.As(err, &validation):
		body := gin.H{"error": validation.Reason}
		if validation.Field != "" {
			body["field"] = validation.Field
		}
		c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound.Error()})
	case errors.As(err, &forbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": forbidden.Reason})
	case errors.As(err, &conflict):
		body := gin.H{"error": conflict.Reason}
		if conflict.Count > 0 {
			body["bookingCount"] = conflict.Count
		}
		c.JSON(http.StatusConflict, body)
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"user":   c.GetString(middleware.KeyUserEmail),
		}).Error("Request failed")
		if hub := sentrygin.GetHubFromContext(c); hub != nil {
			hub.CaptureException(err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": genericFailure})
	}
}

// idParam parses a positive numeric path parameter.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name, "field": name})
		return 0, false
	}
	return uint(id), true
}
