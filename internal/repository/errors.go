// Package repository holds the MySQL and Redis data access code.  The
// sentinel errors below let the service layer tell "absent" and
// "rejected by a store rule" apart from plain infrastructure failures.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist or is not
// owned by the caller.  Ownership failures are deliberately
// indistinguishable from absence.
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned by UserRepo.Create on a unique-key violation.
var ErrEmailExists = errors.New("email already exists")

// ErrDailyLimit is returned when writing a report would push the owner's
// total for that date over model.MaxDailyHours.
var ErrDailyLimit = errors.New("daily hour limit exceeded")

// ErrCodeMismatch is returned by OTPRepo when no code is stored for an
// email or the stored code differs from the presented one.
var ErrCodeMismatch = errors.New("one-time code mismatch")
