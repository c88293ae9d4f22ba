package handlers

import (
	"github.com/chachabrian/unipool-backend/internal/middleware"
	"github.com/chachabrian/unipool-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler streams ride events addressed to the current user.
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		services.HandleWebSocket(hub, c.Writer, c.Request, c.GetUint(middleware.KeyUserID))
	}
}
