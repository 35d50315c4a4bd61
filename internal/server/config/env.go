package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config values from environment variables. A .env file in
// the working directory is loaded first when present; real environment
// variables win over .env entries (godotenv does not override existing ones).
//
// Recognized variables:
//
//	ADDRESS            HTTP bind address (e.g., ":8000")
//	MONGO_URI          MongoDB connection URI
//	DATABASE_NAME      MongoDB database name
//	REDIS_ADDR         Redis address for the refresh-token store
//	JWT_SECRET_KEY     JWT HMAC secret key
//	ACCESS_TOKEN_TTL   access token validity, Go duration string (e.g., "30m")
//	REFRESH_TOKEN_TTL  refresh token validity, Go duration string (e.g., "720h")
//
// Malformed duration values are ignored and leave the current value in place.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("ADDRESS"); v != "" {
		config.EndpointAddrHTTP = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		config.MongoURI = v
	}
	if v := os.Getenv("DATABASE_NAME"); v != "" {
		config.DatabaseName = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		config.RedisAddr = v
	}
	if v := os.Getenv("JWT_SECRET_KEY"); v != "" {
		config.SecretKey = v
	}
	if v := os.Getenv("ACCESS_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.AccessTokenValidityDuration = d
		}
	}
	if v := os.Getenv("REFRESH_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			config.RefreshTokenValidityDuration = d
		}
	}
}
