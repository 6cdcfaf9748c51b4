package middlewares

import (
	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-booking/utils"
)

// ReviewLoggerMiddleware leaves an audit line for every booking review.
func ReviewLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		bookingID := c.Param("id")
		utils.InfoLogger.Printf("Admin %s reviewing booking %s", c.GetString(CtxEmail), bookingID)

		c.Next()

		if c.Writer.Status() < 300 {
			utils.InfoLogger.Printf("Booking %s reviewed by %s", bookingID, c.GetString(CtxEmail))
		} else {
			utils.ErrorLogger.Printf("Review of booking %s by %s failed with %d", bookingID, c.GetString(CtxEmail), c.Writer.Status())
		}
	}
}
