// Package service holds the account and report business rules.  Services
// return *Error values whose Kind tells the HTTP layer which status to
// use; Message is safe to show to the caller.
package service

import "errors"

// Kind classifies a failure independent of transport.
type Kind uint8

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	}
	return "internal"
}

// Error is a classified failure with a fixed human-readable message.  Err
// keeps the underlying cause for logs and errors.Is; it is never rendered.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

func badRequest(msg string) *Error            { return newError(KindBadRequest, msg, nil) }
func notFound(msg string) *Error              { return newError(KindNotFound, msg, nil) }
func internal(msg string, cause error) *Error { return newError(KindInternal, msg, cause) }

// KindOf returns the Kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// User-facing messages.
const (
	MsgUserExists         = "User already exists"
	MsgUserCreated        = "User created"
	MsgUserNotFound       = "User not found"
	MsgInvalidCredentials = "Invalid credentials"
	MsgLoginSuccess       = "Login successful"
	MsgOTPSent            = "OTP sent successfully"
	MsgOTPResent          = "OTP resent successfully"
	MsgInvalidOTP         = "Invalid or expired OTP"
	MsgPasswordReset      = "Password reset successfully"
	MsgProfileFetched     = "User profile fetched successfully"
	MsgProfileUpdated     = "User profile updated successfully"
	MsgInternal           = "Something went wrong, please try again later"
	MsgUnauthorized       = "Unauthorized. Token missing or invalid."
	MsgInvalidToken       = "Invalid or expired token."
	MsgLimitReached       = "Estimated hours cannot exceed 8."
	MsgDSRCreated         = "DSR submitted successfully"
	MsgDSRCreateFailed    = "Failed to create DSR"
	MsgDSRNotFound        = "DSR not found"
	MsgDSRUpdated         = "DSR updated successfully"
	MsgDSRUpdateFailed    = "Failed to update DSR"
	MsgDSRFetched         = "DSRs fetched"
	MsgDSRFetchFailed     = "Failed to fetch DSRs"

	MsgEmailRequired       = "Email is required"
	MsgResetFieldsRequired = "Email, OTP and new password are required"
	MsgSignupFields        = "Name, email and password are required"
	MsgLoginFields         = "Email and password are required"
	MsgDSRFields           = "Project, date, estimatedHour and description are required"
	MsgDSRUpdateFields     = "id, estimatedHour and description are required"
	MsgHoursPositive       = "Estimated hours must be greater than 0."
	MsgInvalidDate         = "Date must be in YYYY-MM-DD format"
	MsgInvalidPagination   = "page and limit must be positive integers (limit at most 100)"
	MsgInvalidID           = "Invalid DSR id"
	MsgPasswordTooLong     = "Password must be at most 72 bytes"
)
