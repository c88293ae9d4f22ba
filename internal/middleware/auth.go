package middleware

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/chachabrian/unipool-backend/internal/models"
	"github.com/chachabrian/unipool-backend/internal/services"
	"github.com/chachabrian/unipool-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Keys set on the gin context for a resolved session.
const (
	KeyUserEmail     = "userEmail"
	KeyUserID        = "userId"
	KeyUserName      = "userName"
	KeyUserRole      = "userRole"
	KeySessionID     = "sessionId"
	KeyCSRFToken     = "csrfToken"
	KeyAuthViaCookie = "authViaCookie"

	CSRFHeader = "X-CSRF-Token"
)

// SessionMiddleware resolves the caller from a bearer token or the session
// cookie. Requests without a valid session continue anonymously.
func SessionMiddleware(sessions *services.SessionStore, secret []byte, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, viaCookie := extractToken(c, cookieName)
		if tokenString == "" {
			c.Next()
			return
		}

		claims, err := utils.ValidateSessionToken(secret, tokenString)
		if err != nil {
			c.Next()
			return
		}

		session, err := sessions.Get(c.Request.Context(), claims.ID)
		if err != nil {
			if !errors.Is(err, services.ErrSessionNotFound) {
				logrus.WithError(err).Error("Failed to resolve session")
			}
			c.Next()
			return
		}
		if !strings.EqualFold(session.Email, claims.Email) {
			c.Next()
			return
		}

		c.Set(KeyUserEmail, session.Email)
		c.Set(KeyUserID, session.UserID)
		c.Set(KeyUserName, session.Name)
		c.Set(KeyUserRole, session.Role)
		c.Set(KeySessionID, session.ID)
		c.Set(KeyCSRFToken, session.CSRFToken)
		c.Set(KeyAuthViaCookie, viaCookie)
		c.Next()
	}
}

func extractToken(c *gin.Context, cookieName string) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1]), false
		}
	}

	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(KeyUserEmail) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Please log in to continue"})
			return
		}
		c.Next()
	}
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(KeyUserRole)
		if !ok || role.(models.Role) != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// CSRFProtect requires the session's CSRF token on state-changing requests
// authenticated by cookie. Bearer tokens are not sent automatically by
// browsers and are exempt.
func CSRFProtect() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if !c.GetBool(KeyAuthViaCookie) {
			c.Next()
			return
		}

		expected := c.GetString(KeyCSRFToken)
		provided := c.GetHeader(CSRFHeader)
		if expected == "" || subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid or missing CSRF token"})
			return
		}
		c.Next()
	}
}
