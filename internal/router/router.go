// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dsr-service/internal/handler"
	"github.com/iliyamo/dsr-service/internal/middleware"
)

// BasePath prefixes every account and report route.
const BasePath = "/users/api/v1"

// RegisterRoutes registers routes that do not require authentication and
// are not part of the versioned API.
func RegisterRoutes(e *echo.Echo, h *handler.HealthHandler) {
	e.GET("/healthz", h.Health)
}

// API bundles what the versioned routes need.
type API struct {
	Users     *handler.UsersHandler
	DSR       *handler.DSRHandler
	JWTSecret string
	// RateLimit guards the unauthenticated account routes.
	RateLimit echo.MiddlewareFunc
	Cache     *middleware.ResponseCache
}

// RegisterAPI mounts the account and report routes under BasePath.
func RegisterAPI(e *echo.Echo, a API) {
	g := e.Group(BasePath)

	public := g.Group("")
	if a.RateLimit != nil {
		public.Use(a.RateLimit)
	}
	public.POST("/signup", a.Users.Signup)
	public.POST("/login", a.Users.Login)
	public.POST("/forget-password", a.Users.ForgetPassword)
	public.POST("/send-otp", a.Users.SendOTP)
	public.POST("/verify-otp", a.Users.VerifyOTP)

	auth := g.Group("", middleware.JWTAuth(a.JWTSecret))
	auth.GET("/profile", a.Users.GetProfile)
	auth.PATCH("/profile", a.Users.UpdateProfile)

	read, write := passThrough, passThrough
	if a.Cache != nil {
		read, write = a.Cache.Middleware(), a.Cache.Invalidate()
	}
	auth.POST("/dsr", a.DSR.Create, write)
	auth.PUT("/dsr", a.DSR.Update, write)
	auth.GET("/dsr", a.DSR.List, read)
	auth.GET("/dsr/:dsrId", a.DSR.GetByID, read)
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
