// Package config loads and validates application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration values for the API server and the CLI.
// Values are populated by Load from environment variables. A variable set to
// the empty string counts as unset.
type Config struct {
	// Port is the TCP port the HTTP server listens on.
	Port string `env:"PORT" envDefault:"8080"`

	// DatabaseURL is the Postgres connection string. Required.
	DatabaseURL string `env:"DATABASE_URL,required"`

	// LogLevel controls the minimum log level: debug, info, warn or error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// LogFile, when set, receives a rotated copy of every log line.
	LogFile string `env:"LOG_FILE"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string `env:"CORS_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	// UploadRoot is the directory backing media URLs.
	UploadRoot string `env:"UPLOAD_ROOT" envDefault:"./uploads"`

	// UploadURLPrefix is the URL path under which UploadRoot is served.
	UploadURLPrefix string `env:"UPLOAD_URL_PREFIX" envDefault:"/uploads/"`

	// MaxRestoreBytes caps the size of an uploaded restore archive.
	MaxRestoreBytes int64 `env:"MAX_RESTORE_BYTES" envDefault:"2147483648"`

	// AutoMigrate applies pending migrations on API startup.
	AutoMigrate bool `env:"AUTO_MIGRATE" envDefault:"false"`

	// AuthUserHeader and AuthRoleHeader name the headers set by the identity
	// provider in front of the API.
	AuthUserHeader string `env:"AUTH_USER_HEADER" envDefault:"X-Authenticated-User"`
	AuthRoleHeader string `env:"AUTH_ROLE_HEADER" envDefault:"X-Authenticated-Role"`
}

// Load reads configuration from environment variables and returns a Config.
// Returns an error naming any required variables that are not set.
func Load() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ()}); err != nil {
		return Config{}, fmt.Errorf("config.Load: %w", err)
	}

	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)
	if cfg.MaxRestoreBytes <= 0 {
		return Config{}, fmt.Errorf("config.Load: MAX_RESTORE_BYTES must be positive, got %d", cfg.MaxRestoreBytes)
	}
	return cfg, nil
}

// environ returns the process environment without empty values so that
// defaults and required checks treat VAR= the same as an unset VAR.
func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		k, v, _ := strings.Cut(kv, "=")
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// trimAll trims each element, ignoring empty entries.
func trimAll(values []string) []string {
	var out []string
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
