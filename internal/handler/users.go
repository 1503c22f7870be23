package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/dsr-service/internal/model"
	"github.com/iliyamo/dsr-service/internal/service"
)

// Accounts is the account service as seen by the HTTP layer.
type Accounts interface {
	Signup(ctx context.Context, name, email, password string) (service.SignupResult, error)
	Login(ctx context.Context, email, password string) (service.LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResendCode(ctx context.Context, email string) error
	VerifyCodeAndResetPassword(ctx context.Context, email, code, newPassword string) error
	GetProfile(ctx context.Context, userID uint64) (model.User, error)
	UpdateProfile(ctx context.Context, userID uint64, upd service.ProfileUpdate) (model.User, error)
}

// UsersHandler serves signup, login, password reset and profile routes.
type UsersHandler struct {
	svc Accounts
}

func NewUsersHandler(svc Accounts) *UsersHandler { return &UsersHandler{svc: svc} }

// ----- DTOs -----

type signupReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailReq struct {
	Email string `json:"email"`
}

type verifyReq struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

func (h *UsersHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidBody)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), opTimeout)
	defer cancel()

	res, err := h.svc.Signup(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		return fromError(c, err, service.MsgInternal)
	}
	return ok(c, http.StatusCreated, service.MsgUserCreated, res)
}

func (h *UsersHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidBody)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), opTimeout)
	defer cancel()

	res, err := h.svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fromError(c, err, service.MsgInternal)
	}
	return ok(c, http.StatusOK, service.MsgLoginSuccess, res)
}

// ForgetPassword issues a reset code.
func (h *UsersHandler) ForgetPassword(c echo.Context) error {
	return h.sendCode(c, h.svc.RequestPasswordReset, service.MsgOTPSent)
}

// SendOTP re-issues a reset code, replacing any earlier one.
func (h *UsersHandler) SendOTP(c echo.Context) error {
	return h.sendCode(c, h.svc.ResendCode, service.MsgOTPResent)
}

func (h *UsersHandler) sendCode(c echo.Context, send func(context.Context, string) error, okMsg string) error {
	var req emailReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidBody)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), mailTimeout)
	defer cancel()

	if err := send(ctx, req.Email); err != nil {
		return fromError(c, err, service.MsgInternal)
	}
	return ok(c, http.StatusOK, okMsg, nil)
}

func (h *UsersHandler) VerifyOTP(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidBody)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), opTimeout)
	defer cancel()

	if err := h.svc.VerifyCodeAndResetPassword(ctx, req.Email, req.OTP, req.NewPassword); err != nil {
		return fromError(c, err, service.MsgInternal)
	}
	return ok(c, http.StatusOK, service.MsgPasswordReset, nil)
}

func (h *UsersHandler) GetProfile(c echo.Context) error {
	uid, authed := currentUser(c)
	if !authed {
		return fail(c, http.StatusUnauthorized, service.MsgUnauthorized)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), opTimeout)
	defer cancel()

	u, err := h.svc.GetProfile(ctx, uid)
	if err != nil {
		return fromError(c, err, service.MsgInternal)
	}
	return ok(c, http.StatusOK, service.MsgProfileFetched, u)
}

func (h *UsersHandler) UpdateProfile(c echo.Context) error {
	uid, authed := currentUser(c)
	if !authed {
		return fail(c, http.StatusUnauthorized, service.MsgUnauthorized)
	}
	var req service.ProfileUpdate
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, msgInvalidBody)
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), opTimeout)
	defer cancel()

	u, err := h.svc.UpdateProfile(ctx, uid, req)
	if err != nil {
		return fromError(c, err, service.MsgInternal)
	}
	return ok(c, http.StatusOK, service.MsgProfileUpdated, u)
}
