package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_parseEnv(t *testing.T) {
	t.Run("overrides from environment", func(t *testing.T) {
		t.Setenv("ADDRESS", "127.0.0.1:9090")
		t.Setenv("MONGO_URI", "mongodb://db:27017")
		t.Setenv("DATABASE_NAME", "orders")
		t.Setenv("REDIS_ADDR", "redis:6379")
		t.Setenv("JWT_SECRET_KEY", "env_secret")
		t.Setenv("ACCESS_TOKEN_TTL", "15m")
		t.Setenv("REFRESH_TOKEN_TTL", "48h")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, "127.0.0.1:9090", cfg.EndpointAddrHTTP)
		assert.Equal(t, "mongodb://db:27017", cfg.MongoURI)
		assert.Equal(t, "orders", cfg.DatabaseName)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, "env_secret", cfg.SecretKey)
		assert.Equal(t, 15*time.Minute, cfg.AccessTokenValidityDuration)
		assert.Equal(t, 48*time.Hour, cfg.RefreshTokenValidityDuration)
	})

	t.Run("malformed duration keeps current value", func(t *testing.T) {
		t.Setenv("ACCESS_TOKEN_TTL", "half an hour")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, 30*time.Minute, cfg.AccessTokenValidityDuration)
	})
}
