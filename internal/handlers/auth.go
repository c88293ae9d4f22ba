package handlers

import (
	"net/http"
	"time"

	"github.com/chachabrian/unipool-backend/internal/middleware"
	"github.com/chachabrian/unipool-backend/internal/services"
	"github.com/chachabrian/unipool-backend/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// AuthConfig holds what the login handlers need to mint session tokens.
type AuthConfig struct {
	Secret       []byte
	TokenTTL     time.Duration
	CookieName   string
	SecureCookie bool
}

type RegisterInput struct {
	FullName string `json:"fullName"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Register(accounts *services.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input RegisterInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := accounts.Register(c.Request.Context(), input.FullName, input.Email, input.Password)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "Registration successful. You can now log in.",
			"user":    user,
		})
	}
}

func Login(accounts *services.AccountService, sessions *services.SessionStore, cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input LoginInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		user, err := accounts.Authenticate(c.Request.Context(), input.Email, input.Password)
		if err != nil {
			respondError(c, err)
			return
		}

		session, err := sessions.Create(c.Request.Context(), user)
		if err != nil {
			respondError(c, err)
			return
		}

		token, err := utils.GenerateSessionToken(cfg.Secret, session.ID, user.Email, cfg.TokenTTL)
		if err != nil {
			respondError(c, err)
			return
		}

		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(cfg.CookieName, token, int(cfg.TokenTTL.Seconds()), "/", "", cfg.SecureCookie, true)

		logrus.WithField("userId", user.ID).Info("User logged in")
		c.JSON(http.StatusOK, gin.H{
			"token":     token,
			"csrfToken": session.CSRFToken,
			"user":      user,
		})
	}
}

// Logout ends the current session, if any, and clears the cookie.
func Logout(sessions *services.SessionStore, cfg AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetString(middleware.KeySessionID); id != "" {
			session := &services.Session{ID: id, UserID: c.GetUint(middleware.KeyUserID)}
			if err := sessions.Delete(c.Request.Context(), session); err != nil {
				respondError(c, err)
				return
			}
		}

		c.SetSameSite(http.SameSiteStrictMode)
		c.SetCookie(cfg.CookieName, "", -1, "/", "", cfg.SecureCookie, true)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}
