package middlewares

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-booking/utils"
)

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

// RecoveryMiddleware turns a panic into a 500 envelope.
func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				utils.ErrorLogger.Errorf("panic on %s %s: %v\n%s", c.Request.Method, c.Request.URL.Path, r, debug.Stack())
				utils.AbortWithError(c, http.StatusInternalServerError, errors.New("internal server error"), nil)
			}
		}()
		c.Next()
	}
}
