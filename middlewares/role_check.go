package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-booking/utils"
)

// RequireRole must run after an auth middleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		userRole := c.GetString(CtxRole)
		if userRole == "" {
			utils.AbortWithError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"), nil)
			return
		}
		if !allowed[userRole] {
			utils.AbortWithError(c, http.StatusForbidden, fmt.Errorf("%s access required", roles[0]), nil)
			return
		}
		c.Next()
	}
}
