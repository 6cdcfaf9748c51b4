package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-booking/utils"
)

// WebSocketAuthMiddleware authenticates the upgrade request from the
// token query parameter, since browsers cannot set headers on it.
func WebSocketAuthMiddleware(users UserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			utils.AbortWithError(c, http.StatusUnauthorized, errors.New("token query parameter missing"), nil)
			return
		}
		if !authenticate(c, users, token) {
			utils.AbortWithError(c, http.StatusUnauthorized, errors.New("invalid or expired token"), nil)
			return
		}
		c.Next()
	}
}
