package middleware

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"
)

type ctxKey int

const userIDKey ctxKey = iota

// WithUserID returns a copy of ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFrom returns the user id placed by JWTAuth.  ok is false on routes
// that are not behind JWTAuth.
func UserIDFrom(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(userIDKey).(uint64)
	return id, ok && id != 0
}

// userKeyPart is the user component of rate-limit and cache keys.
func userKeyPart(c echo.Context) string {
	if id, ok := UserIDFrom(c.Request().Context()); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, failure{Success: false, Message: msg})
}
