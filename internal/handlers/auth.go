package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"

	"uk.co.dudmesh.viberrelay/internal/auth"
)

const claimsKey = "claims"

// Authenticate requires a bearer token signed with secret. Socket clients
// that cannot set headers may pass it as the token query parameter.
func Authenticate(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := c.QueryParam("token")
			if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
				raw = strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			}

			claims, err := auth.Parse(secret, raw)
			if err != nil {
				return err
			}
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}
