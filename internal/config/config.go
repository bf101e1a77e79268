package config

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

// Image size bounds, in pixels. Profile pictures are small thumbnails, shop
// pictures larger previews.
const (
	ProfileImageMax = 125
	ShopImageMax    = 700
)

type Config struct {
	Port          string `env:"PORT" envDefault:"8585"`
	DBPath        string `env:"DB_PATH" envDefault:"./shopkeeper.db"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	TemplatesDir  string `env:"TEMPLATES_DIR" envDefault:"templates"`

	ProfileImageDir string `env:"PROFILE_IMAGE_DIR" envDefault:"static/images/profile_pictures"`
	ShopImageDir    string `env:"SHOP_IMAGE_DIR" envDefault:"static/images/shop"`

	CookieDomain string `env:"COOKIE_DOMAIN"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"false"`

	CSRFKeyB64    string `env:"CSRF_KEY"`
	SessionKeyB64 string `env:"SESSION_KEY"`

	CSRFKey    []byte `env:"-"`
	SessionKey []byte `env:"-"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.CSRFKey = decodeKey("CSRF_KEY", cfg.CSRFKeyB64)
	cfg.SessionKey = decodeKey("SESSION_KEY", cfg.SessionKeyB64)

	// Make sure port is valid
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		slog.Error("Invalid PORT environment variable. Falling back to default.", "PORT", cfg.Port)
		cfg.Port = "8585"
	}

	return cfg, nil
}

// decodeKey base64-decodes a configured key, falling back to a fresh random
// key (invalid across restarts) when the variable is unset or too short.
func decodeKey(name, encoded string) []byte {
	if encoded == "" {
		slog.Warn(name + " environment variable not set. Generating a random key for development. This key will change on each restart. PLEASE SET " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(decoded) < 32 {
		slog.Warn(name + " is invalid or too short (min 32 bytes recommended). Generating a random key for development. PLEASE SET A SECURE " + name + " IN PRODUCTION!")
		return generateRandomBytes(32)
	}
	return decoded
}

// generateRandomBytes generates a random byte slice of specified length
// Uses crypto/rand for secure random numbers.
func generateRandomBytes(n int) []byte {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		slog.Error("Failed to read random bytes", "error", err)
		// Fallback only prevents a panic, never acceptable for production.
		fallbackKey := "fallback-insecure-key-" + strconv.FormatInt(time.Now().UnixNano(), 10)
		if len(fallbackKey) < n {
			paddedKey := make([]byte, n)
			copy(paddedKey, fallbackKey)
			return paddedKey
		}
		return []byte(fallbackKey)[:n]
	}
	return b
}
