package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/tippyhq/tracking/internal/pkg/logger"
)

// RequestContextMiddleware assigns a request id and logs each request
func RequestContextMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Request().Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			c.Set("request_id", requestID)
			c.Response().Header().Set("X-Request-ID", requestID)

			start := time.Now()
			err := next(c)
			latency := time.Since(start)

			userID, _ := c.Get("user_id").(string)
			txn := newrelic.FromContext(c.Request().Context())
			logger.GetGlobalLogger().LogHTTPRequest(
				txn,
				c.Request().Method,
				c.Path(),
				c.RealIP(),
				userID,
				requestID,
				c.Response().Status,
				latency,
				err,
			)

			return err
		}
	}
}
