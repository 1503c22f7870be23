package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOTPRepo(t *testing.T) (*OTPRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewOTPRepo(rdb), mr
}

func TestOTPRepo_SaveSetsKeyAndTTL(t *testing.T) {
	repo, mr := newOTPRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "a@b.c", "123456"))

	got, err := mr.Get("otp:a@b.c")
	require.NoError(t, err)
	assert.Equal(t, "123456", got)
	assert.Equal(t, OTPTTL, mr.TTL("otp:a@b.c"))
}

func TestOTPRepo_ResendReplacesCode(t *testing.T) {
	repo, _ := newOTPRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "a@b.c", "111111"))
	require.NoError(t, repo.Save(ctx, "a@b.c", "222222"))

	ok, err := repo.Match(ctx, "a@b.c", "111111")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Match(ctx, "a@b.c", "222222")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOTPRepo_ExpiredCodeDoesNotMatch(t *testing.T) {
	repo, mr := newOTPRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "a@b.c", "123456"))
	mr.FastForward(OTPTTL + 1)

	ok, err := repo.Match(ctx, "a@b.c", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, repo.Consume(ctx, "a@b.c", "123456"), ErrCodeMismatch)
}

func TestOTPRepo_ConsumeIsSingleUse(t *testing.T) {
	repo, mr := newOTPRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "a@b.c", "123456"))

	assert.ErrorIs(t, repo.Consume(ctx, "a@b.c", "654321"), ErrCodeMismatch)
	require.NoError(t, repo.Consume(ctx, "a@b.c", "123456"))
	assert.False(t, mr.Exists("otp:a@b.c"))
	assert.ErrorIs(t, repo.Consume(ctx, "a@b.c", "123456"), ErrCodeMismatch)
}

func TestOTPRepo_RedisDown(t *testing.T) {
	repo, mr := newOTPRepo(t)
	mr.Close()

	_, err := repo.Match(context.Background(), "a@b.c", "1")
	assert.Error(t, err)
}
