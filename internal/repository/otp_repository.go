package repository

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPTTL is how long a one-time code stays valid after it is issued.
const OTPTTL = 300 * time.Second

const otpKeyPrefix = "otp:"

// consumeScript deletes the key only when it still holds the presented
// code, so exactly one of several concurrent verifications wins.
var consumeScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// OTPRepo keeps password-reset codes in Redis.  Codes never touch MySQL;
// the only link to a user is the email in the key.
type OTPRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewOTPRepo(rdb *redis.Client) *OTPRepo { return &OTPRepo{rdb: rdb, ttl: OTPTTL} }

func otpKey(email string) string { return otpKeyPrefix + email }

// Save stores code for email, replacing any earlier code and restarting
// the expiry.
func (r *OTPRepo) Save(ctx context.Context, email, code string) error {
	if err := r.rdb.Set(ctx, otpKey(email), code, r.ttl).Err(); err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

// Match reports whether code is the live code for email.  A missing or
// expired entry is a mismatch, not an error.
func (r *OTPRepo) Match(ctx context.Context, email, code string) (bool, error) {
	stored, err := r.rdb.Get(ctx, otpKey(email)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get otp: %w", err)
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(code)) == 1, nil
}

// Consume atomically deletes the code for email if it equals code.  It
// returns ErrCodeMismatch when the code is absent, expired, replaced or
// already used.
func (r *OTPRepo) Consume(ctx context.Context, email, code string) error {
	n, err := consumeScript.Run(ctx, r.rdb, []string{otpKey(email)}, code).Int64()
	if err != nil {
		return fmt.Errorf("consume otp: %w", err)
	}
	if n == 0 {
		return ErrCodeMismatch
	}
	return nil
}
