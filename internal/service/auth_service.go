package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/dsr-service/internal/model"
	"github.com/iliyamo/dsr-service/internal/repository"
	"github.com/iliyamo/dsr-service/internal/utils"
)

// otpDigits is the length of a password-reset code.
const otpDigits = 6

// UserStore is the credential store the account service works against.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) error
	UpdateProfile(ctx context.Context, id uint64, name, profilePicture *string) (model.User, error)
}

// CodeStore keeps one-time codes with an expiry.
type CodeStore interface {
	Save(ctx context.Context, email, code string) error
	Match(ctx context.Context, email, code string) (bool, error)
	Consume(ctx context.Context, email, code string) error
}

// CodeSender delivers a one-time code to an email address.
type CodeSender interface {
	SendCode(ctx context.Context, email, code string) error
}

// AuthOptions carries the token and hashing parameters.
type AuthOptions struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// AuthService implements signup, login, password reset and profile
// management.
type AuthService struct {
	users  UserStore
	codes  CodeStore
	sender CodeSender
	opts   AuthOptions
	log    *zap.Logger

	newCode func() (string, error)
}

func NewAuthService(users UserStore, codes CodeStore, sender CodeSender, opts AuthOptions, log *zap.Logger) *AuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	return &AuthService{
		users:   users,
		codes:   codes,
		sender:  sender,
		opts:    opts,
		log:     log.Named("auth"),
		newCode: func() (string, error) { return utils.NewNumericCode(otpDigits) },
	}
}

// SignupResult is what a new account exposes: never the hash.
type SignupResult struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}

// LoginResult carries the bearer token.
type LoginResult struct {
	Token string `json:"token"`
}

// ProfileUpdate lists the fields a user may change.  Nil or empty fields
// keep the stored value.
type ProfileUpdate struct {
	Name           *string `json:"name"`
	ProfilePicture *string `json:"profilePicture"`
}

func (s *AuthService) Signup(ctx context.Context, name, email, password string) (SignupResult, error) {
	email = repository.NormalizeEmail(email)
	if strings.TrimSpace(name) == "" || email == "" || password == "" {
		s.log.Warn("signup rejected: missing fields", zap.String("email", email))
		return SignupResult{}, badRequest(MsgSignupFields)
	}
	if len(password) > utils.MaxPasswordBytes {
		s.log.Warn("signup rejected: password too long", zap.String("email", email))
		return SignupResult{}, badRequest(MsgPasswordTooLong)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		s.log.Warn("signup failed: user already exists", zap.String("email", email))
		return SignupResult{}, newError(KindConflict, MsgUserExists, repository.ErrEmailExists)
	} else if !errors.Is(err, repository.ErrNotFound) {
		s.log.Error("signup lookup failed", zap.String("email", email), zap.Error(err))
		return SignupResult{}, internal(MsgInternal, err)
	}

	hash, err := utils.HashPassword(password, s.opts.BcryptCost)
	if err != nil {
		s.log.Error("signup hash failed", zap.String("email", email), zap.Error(err))
		return SignupResult{}, internal(MsgInternal, err)
	}
	id, err := s.users.Create(ctx, name, email, hash)
	if errors.Is(err, repository.ErrEmailExists) {
		// lost a race with a concurrent signup for the same address
		s.log.Warn("signup failed: user already exists", zap.String("email", email))
		return SignupResult{}, newError(KindConflict, MsgUserExists, err)
	}
	if err != nil {
		s.log.Error("signup insert failed", zap.String("email", email), zap.Error(err))
		return SignupResult{}, internal(MsgInternal, err)
	}

	s.log.Info("user created", zap.Uint64("user_id", id), zap.String("email", email))
	return SignupResult{ID: id, Email: email}, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	email = repository.NormalizeEmail(email)
	if email == "" || password == "" {
		return LoginResult{}, badRequest(MsgLoginFields)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("login failed: user not found", zap.String("email", email))
		return LoginResult{}, notFound(MsgUserNotFound)
	}
	if err != nil {
		s.log.Error("login lookup failed", zap.String("email", email), zap.Error(err))
		return LoginResult{}, internal(MsgInternal, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		s.log.Warn("login failed: invalid password", zap.String("email", email))
		return LoginResult{}, newError(KindUnauthorized, MsgInvalidCredentials, nil)
	}

	tok, err := utils.NewAccessToken(s.opts.JWTSecret, u.ID, s.opts.TokenTTL)
	if err != nil {
		s.log.Error("login token signing failed", zap.Uint64("user_id", u.ID), zap.Error(err))
		return LoginResult{}, internal(MsgInternal, err)
	}
	s.log.Info("user logged in", zap.Uint64("user_id", u.ID), zap.String("email", email))
	return LoginResult{Token: tok.Token}, nil
}

// RequestPasswordReset issues a fresh code for a forgotten password.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.sendCode(ctx, email, "forget-password")
}

// ResendCode issues a replacement code.  Any earlier code stops working.
func (s *AuthService) ResendCode(ctx context.Context, email string) error {
	return s.sendCode(ctx, email, "send-otp")
}

func (s *AuthService) sendCode(ctx context.Context, email, reason string) error {
	email = repository.NormalizeEmail(email)
	log := s.log.With(zap.String("email", email), zap.String("reason", reason))
	if email == "" {
		log.Warn("otp sending failed: email not provided")
		return badRequest(MsgEmailRequired)
	}

	if _, err := s.users.GetByEmail(ctx, email); errors.Is(err, repository.ErrNotFound) {
		log.Warn("otp sending failed: user not found")
		return notFound(MsgUserNotFound)
	} else if err != nil {
		log.Error("otp user lookup failed", zap.Error(err))
		return internal(MsgInternal, err)
	}

	code, err := s.newCode()
	if err != nil {
		log.Error("otp generation failed", zap.Error(err))
		return internal(MsgInternal, err)
	}
	if err := s.codes.Save(ctx, email, code); err != nil {
		log.Error("otp store failed", zap.Error(err))
		return internal(MsgInternal, err)
	}
	if err := s.sender.SendCode(ctx, email, code); err != nil {
		log.Error("otp delivery failed", zap.Error(err))
		return internal(MsgInternal, err)
	}
	log.Info("otp sent")
	return nil
}

// VerifyCodeAndResetPassword checks the code and, when it matches, stores
// the new password and burns the code.  The code is handed back when the
// password write fails.
func (s *AuthService) VerifyCodeAndResetPassword(ctx context.Context, email, code, newPassword string) error {
	email = repository.NormalizeEmail(email)
	code = strings.TrimSpace(code)
	log := s.log.With(zap.String("email", email))
	if email == "" || code == "" || newPassword == "" {
		log.Warn("password reset failed: missing parameters")
		return badRequest(MsgResetFieldsRequired)
	}
	if len(newPassword) > utils.MaxPasswordBytes {
		log.Warn("password reset failed: password too long")
		return badRequest(MsgPasswordTooLong)
	}

	ok, err := s.codes.Match(ctx, email, code)
	if err != nil {
		log.Error("otp lookup failed", zap.Error(err))
		return internal(MsgInternal, err)
	}
	if !ok {
		log.Warn("password reset failed: invalid or expired otp")
		return badRequest(MsgInvalidOTP)
	}

	if _, err := s.users.GetByEmail(ctx, email); errors.Is(err, repository.ErrNotFound) {
		log.Warn("password reset failed: user not found")
		return notFound(MsgUserNotFound)
	} else if err != nil {
		log.Error("password reset lookup failed", zap.Error(err))
		return internal(MsgInternal, err)
	}

	hash, err := utils.HashPassword(newPassword, s.opts.BcryptCost)
	if err != nil {
		log.Error("password reset hash failed", zap.Error(err))
		return internal(MsgInternal, err)
	}
	if err := s.codes.Consume(ctx, email, code); errors.Is(err, repository.ErrCodeMismatch) {
		log.Warn("password reset failed: otp consumed concurrently")
		return badRequest(MsgInvalidOTP)
	} else if err != nil {
		log.Error("otp consume failed", zap.Error(err))
		return internal(MsgInternal, err)
	}
	if err := s.users.UpdatePassword(ctx, email, hash); errors.Is(err, repository.ErrNotFound) {
		log.Warn("password reset failed: user not found")
		return notFound(MsgUserNotFound)
	} else if err != nil {
		log.Error("password update failed", zap.Error(err))
		// give the code back so the user can retry
		if rerr := s.codes.Save(context.WithoutCancel(ctx), email, code); rerr != nil {
			log.Error("otp restore failed", zap.Error(rerr))
		}
		return internal(MsgInternal, err)
	}

	log.Info("password reset successful")
	return nil
}

func (s *AuthService) GetProfile(ctx context.Context, userID uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("profile fetch failed: user not found", zap.Uint64("user_id", userID))
		return model.User{}, notFound(MsgUserNotFound)
	}
	if err != nil {
		s.log.Error("profile fetch failed", zap.Uint64("user_id", userID), zap.Error(err))
		return model.User{}, internal(MsgInternal, err)
	}
	return u, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uint64, upd ProfileUpdate) (model.User, error) {
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return model.User{}, err
	}
	u, err := s.users.UpdateProfile(ctx, userID, nonEmpty(upd.Name), nonEmpty(upd.ProfilePicture))
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("profile update failed: user not found", zap.Uint64("user_id", userID))
		return model.User{}, notFound(MsgUserNotFound)
	}
	if err != nil {
		s.log.Error("profile update failed", zap.Uint64("user_id", userID), zap.Error(err))
		return model.User{}, internal(MsgInternal, err)
	}
	s.log.Info("profile updated", zap.Uint64("user_id", userID))
	return u, nil
}

func nonEmpty(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
