package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "dsr")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("NOTIFY_DRIVER", "log")
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr())
	assert.True(t, cfg.IsDev())
	assert.Equal(t, 60, cfg.AccessTTLMin)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.True(t, cfg.DBMigrate)
	assert.False(t, cfg.EnforceCapOnUpdate)
	assert.Equal(t, NotifyLog, cfg.Notify.Driver)
	assert.Equal(t, "otp.requested", cfg.Notify.QueueName)
}

func TestFromEnv_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_HOST", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
	assert.Contains(t, err.Error(), "DB_HOST")
}

func TestFromEnv_SMTPNeedsHost(t *testing.T) {
	for _, driver := range []string{"smtp", "queue"} {
		t.Run(driver, func(t *testing.T) {
			setRequired(t)
			t.Setenv("NOTIFY_DRIVER", driver)
			t.Setenv("MAIL_HOST", "")
			t.Setenv("MAIL_USER", "")

			_, err := FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "MAIL_HOST")

			t.Setenv("MAIL_HOST", "smtp.example.com")
			t.Setenv("MAIL_USER", "support@example.com")
			cfg, err := FromEnv()
			require.NoError(t, err)
			assert.Equal(t, driver, cfg.Notify.Driver)
			assert.Equal(t, "support@example.com", cfg.Notify.Sender())
		})
	}
}

func TestFromEnv_LogDriverRejectedInProduction(t *testing.T) {
	setRequired(t)
	t.Setenv("NOTIFY_DRIVER", "log")

	for _, env := range []string{"prod", "Production"} {
		t.Setenv("APP_ENV", env)
		_, err := FromEnv()
		assert.Error(t, err, env)
	}

	t.Setenv("APP_ENV", "staging")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, NotifyLog, cfg.Notify.Driver)
}

func TestFromEnv_UnknownDriver(t *testing.T) {
	setRequired(t)
	t.Setenv("NOTIFY_DRIVER", "pigeon")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestLoadRateLimitConfig_Normalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := LoadRateLimitConfig()
	assert.Equal(t, 1, rl.Capacity)
	assert.Equal(t, 10*time.Second, rl.TTL)
	assert.InDelta(t, 0.5, rl.PerSecond(), 1e-9)
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_METHODS", "get, head")
	t.Setenv("CACHE_TTL", "1m")

	cc := LoadCacheConfig()
	assert.True(t, cc.Methods["GET"])
	assert.True(t, cc.Methods["HEAD"])
	assert.Equal(t, time.Minute, cc.TTL)
	assert.Equal(t, 1048576, cc.MaxBodyBytes)
}

func TestRedisOptions_HostPort(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_HOST", "cache")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")

	opt, err := RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opt.Addr)
	assert.Equal(t, 2, opt.DB)
}
