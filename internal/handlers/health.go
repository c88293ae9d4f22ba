package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Health reports whether the database and redis answer within two seconds.
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"database": "ok", "redis": "ok"}
		healthy := true

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			logrus.WithError(err).Warn("Health check: database unavailable")
			status["database"] = "unavailable"
			healthy = false
		}

		if err := rdb.Ping(ctx).Err(); err != nil {
			logrus.WithError(err).Warn("Health check: redis unavailable")
			status["redis"] = "unavailable"
			healthy = false
		}

		if !healthy {
			status["status"] = "degraded"
			c.JSON(http.StatusServiceUnavailable, status)
			return
		}
		status["status"] = "ok"
		c.JSON(http.StatusOK, status)
	}
}
