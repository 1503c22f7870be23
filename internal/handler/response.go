package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dsr-service/internal/middleware"
	"github.com/iliyamo/dsr-service/internal/service"
)

// Per-request deadlines for downstream calls.  Code delivery may talk to an
// SMTP relay, so those routes get more room.
const (
	opTimeout   = 5 * time.Second
	mailTimeout = 30 * time.Second
)

const msgInvalidBody = "Invalid request body"

// envelope is the body of every API response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func ok(c echo.Context, status int, msg string, data any) error {
	return c.JSON(status, envelope{Success: true, Message: msg, Data: data})
}

func fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, envelope{Success: false, Message: msg})
}

func statusFor(k service.Kind) int {
	switch k {
	case service.KindBadRequest, service.KindConflict:
		return http.StatusBadRequest
	case service.KindUnauthorized:
		return http.StatusUnauthorized
	case service.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// fromError renders a service error.  Anything unclassified becomes a 500
// carrying fallback, never the error text.
func fromError(c echo.Context, err error, fallback string) error {
	var se *service.Error
	if errors.As(err, &se) {
		msg := se.Message
		if msg == "" {
			msg = fallback
		}
		return fail(c, statusFor(se.Kind), msg)
	}
	c.Logger().Errorf("unclassified error: %v", err)
	return fail(c, http.StatusInternalServerError, fallback)
}

// currentUser returns the id JWTAuth stored in the request context.
func currentUser(c echo.Context) (uint64, bool) {
	return middleware.UserIDFrom(c.Request().Context())
}
