package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yeremiapane/restaurant-booking/metrics"
	"github.com/yeremiapane/restaurant-booking/utils"
)

const (
	HeaderRequestID = "X-Request-ID"
	CtxRequestID    = "request_id"
)

// LoggerMiddleware tags each request with an id, logs it and records its
// latency. m may be nil.
func LoggerMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(CtxRequestID, requestID)
		c.Header(HeaderRequestID, requestID)

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		m.ObserveRequest(c.Request.Method, c.FullPath(), status, latency)

		if raw != "" {
			path = path + "?" + raw
		}
		// Tokens travel in the websocket query string.
		if c.Query("token") != "" {
			path = c.Request.URL.Path
		}

		logger := utils.InfoLogger
		if status >= 500 {
			logger = utils.ErrorLogger
		}
		logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"client_ip":  c.ClientIP(),
		}).Printf("%s | %3d | %13v | %s", c.Request.Method, status, latency, path)
	}
}
