package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tippyhq/tracking/internal/pkg/jwt"
	"github.com/tippyhq/tracking/internal/pkg/models"
)

// JWTMiddleware validates the bearer token and exposes the caller's
// identity to handlers via the echo context
func JWTMiddleware(cfg models.JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
			}

			claims, err := jwt.ValidateToken(parts[1], cfg.Secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			c.Set("user_id", claims.UserID)
			c.Set("user_role", claims.Role)
			return next(c)
		}
	}
}

// CurrentUserID returns the authenticated user id set by JWTMiddleware
func CurrentUserID(c echo.Context) string {
	userID, _ := c.Get("user_id").(string)
	return userID
}
