package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dsr-service/internal/service"
	"github.com/iliyamo/dsr-service/internal/utils"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the token's user id in the request context, where handlers
// read it with UserIDFrom.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(auth, "Bearer ") {
				return fail(c, http.StatusUnauthorized, service.MsgUnauthorized)
			}
			raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if raw == "" {
				return fail(c, http.StatusUnauthorized, service.MsgUnauthorized)
			}

			id, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				c.Logger().Debugf("jwt rejected: %v", err)
				return fail(c, http.StatusUnauthorized, service.MsgInvalidToken)
			}

			req := c.Request()
			c.SetRequest(req.WithContext(WithUserID(req.Context(), id)))
			return next(c)
		}
	}
}
