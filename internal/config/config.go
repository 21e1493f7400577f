// Package config loads the npmmer configuration.
//
// Values are layered, later sources overriding earlier ones:
//
//	built-in defaults < YAML file (--config) < NPMMER_* environment < command-line flags
//
// Environment variables use "__" for nesting, so NPMMER_AUTH__JWT_SECRET sets
// auth.jwt_secret and NPMMER_SERVER__PORT sets server.port.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix every configuration environment variable carries.
const EnvPrefix = "NPMMER_"

// MinSecretLength is the shortest JWT signing secret accepted.
const MinSecretLength = 16

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Redis    RedisConfig    `koanf:"redis"`
	Registry RegistryConfig `koanf:"registry"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port          int  `koanf:"port"`
	SecureCookies bool `koanf:"secure_cookies"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	// Path is the SQLite file, or ":memory:" for a throwaway database.
	Path string `koanf:"path"`
}

// AuthConfig configures sessions, password hashing and sign-in throttling.
type AuthConfig struct {
	JWTSecret  string        `koanf:"jwt_secret"`
	TokenTTL   time.Duration `koanf:"token_ttl"`
	BcryptCost int           `koanf:"bcrypt_cost"`
	// RateLimit is requests per second per client IP on signup/signin.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// RedisConfig enables the Redis token denylist. Empty URL keeps revocations
// in process memory.
type RedisConfig struct {
	URL string `koanf:"url"`
}

// RegistryConfig points the search proxy at an npm-compatible registry.
type RegistryConfig struct {
	URL     string        `koanf:"url"`
	Timeout time.Duration `koanf:"timeout"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // text, json
}

// defaults are loaded first and overridden by every other source.
var defaults = map[string]any{
	"server.port":           8080,
	"server.secure_cookies": false,
	"database.path":         "data/npmmer.db",
	"auth.jwt_secret":       "",
	"auth.token_ttl":        "24h",
	"auth.bcrypt_cost":      10,
	"auth.rate_limit":       1.0,
	"auth.rate_burst":       5,
	"redis.url":             "",
	"registry.url":          "https://registry.npmjs.org",
	"registry.timeout":      "10s",
	"log.level":             "info",
	"log.format":            "text",
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"port":           "server.port",
	"secure-cookies": "server.secure_cookies",
	"db":             "database.path",
	"jwt-secret":     "auth.jwt_secret",
	"redis-url":      "redis.url",
	"registry-url":   "registry.url",
	"log-level":      "log.level",
	"log-format":     "log.format",
}

// RegisterFlags adds the configuration flags to fs. Flag defaults are
// informational only: a flag overrides the other sources only when it is set
// explicitly.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML configuration file")
	fs.Int("port", 8080, "HTTP listen port")
	fs.Bool("secure-cookies", false, "mark the session cookie Secure (use behind HTTPS)")
	fs.String("db", "data/npmmer.db", "SQLite database path")
	fs.String("jwt-secret", "", "HMAC secret for session tokens (at least 16 characters)")
	fs.String("redis-url", "", "Redis URL for the token denylist (empty keeps it in memory)")
	fs.String("registry-url", "https://registry.npmjs.org", "npm registry base URL for search")
	fs.String("log-level", "info", "log level: debug, info, warn, error")
	fs.String("log-format", "text", "log format: text, json")
}

// Load builds the configuration. fs may be nil (no flags); path may be empty
// (no file). When fs has a "config" flag set, it takes precedence over path.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, val := range defaults {
		if err := k.Set(key, val); err != nil {
			return nil, fmt.Errorf("config: setting default %s: %w", key, err)
		}
	}

	if fs != nil {
		if f := fs.Lookup("config"); f != nil && f.Changed {
			path = f.Value.String()
		}
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}

	if fs != nil {
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("config: loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	return &cfg, nil
}

// envKey turns NPMMER_AUTH__JWT_SECRET into auth.jwt_secret.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// Validate checks the values the server cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d is out of range", c.Server.Port))
	}
	if c.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if len(c.Auth.JWTSecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("auth.jwt_secret must be at least %d characters (set %sAUTH__JWT_SECRET)",
			MinSecretLength, EnvPrefix))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Auth.RateLimit <= 0 || c.Auth.RateBurst <= 0 {
		errs = append(errs, errors.New("auth.rate_limit and auth.rate_burst must be positive"))
	}
	if c.Registry.Timeout <= 0 {
		errs = append(errs, errors.New("registry.timeout must be positive"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not one of text, json", c.Log.Format))
	}

	return errors.Join(errs...)
}

// EnsureDataDir creates the directory holding the database file.
func (c *Config) EnsureDataDir() error {
	if c.Database.Path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(c.Database.Path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: creating data directory: %w", err)
	}
	return nil
}

// String renders the configuration for logging with secrets masked.
func (c *Config) String() string {
	values := map[string]string{
		"server.port":           fmt.Sprint(c.Server.Port),
		"server.secure_cookies": fmt.Sprint(c.Server.SecureCookies),
		"database.path":         c.Database.Path,
		"auth.jwt_secret":       c.Auth.JWTSecret,
		"auth.token_ttl":        c.Auth.TokenTTL.String(),
		"auth.bcrypt_cost":      fmt.Sprint(c.Auth.BcryptCost),
		"auth.rate_limit":       fmt.Sprint(c.Auth.RateLimit),
		"auth.rate_burst":       fmt.Sprint(c.Auth.RateBurst),
		"redis.url":             c.Redis.URL,
		"registry.url":          c.Registry.URL,
		"registry.timeout":      c.Registry.Timeout.String(),
		"log.level":             c.Log.Level,
		"log.format":            c.Log.Format,
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&sb, "%s=%s ", key, maskSensitiveField(key, values[key]))
	}
	return strings.TrimSpace(sb.String())
}

func maskSensitiveField(key, value string) string {
	// redis URLs can carry a password.
	sensitive := []string{"secret", "password", "redis.url"}

	for _, s := range sensitive {
		if strings.Contains(key, s) && value != "" {
			return maskValue(value)
		}
	}
	return value
}

func maskValue(value string) string {
	if len(value) <= 3 {
		return strings.Repeat("*", 7)
	}
	return value[:3] + strings.Repeat("*", 7)
}
