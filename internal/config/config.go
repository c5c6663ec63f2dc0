// Package config loads chirp's settings from, in increasing priority,
// built-in defaults, an optional YAML file and environment variables.
// A .env file in the working directory is read into the environment first.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the YAML file location.
const ConfigPathEnvVar = "CONFIG_PATH"

var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/chirp/config.yaml",
}

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	DB        DBConfig        `koanf:"db"`
	Redis     RedisConfig     `koanf:"redis"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Auth      AuthConfig      `koanf:"auth"`
	OAuth     OAuthConfig     `koanf:"oauth"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Port            string        `koanf:"port" validate:"required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	// AuthRequestsPerSecond bounds signup/login attempts per client IP.
	AuthRequestsPerSecond float64 `koanf:"auth_requests_per_second" validate:"gt=0"`
}

type DBConfig struct {
	// URL takes precedence over the individual fields when set.
	URL      string `koanf:"url"`
	Host     string `koanf:"host"`
	Port     string `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	Name     string `koanf:"name"`
	SSLMode  string `koanf:"sslmode"`
	MaxConns int32  `koanf:"max_conns" validate:"gte=0"`
}

// DSN renders the Postgres connection string.
func (c DBConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + c.Port,
		Path:   "/" + c.Name,
	}
	if c.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(c.SSLMode)
	}
	return u.String()
}

type RedisConfig struct {
	// Addr empty means no Redis; the in-process limiter is used instead.
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"gte=0"`
}

type RateLimitConfig struct {
	Limit    int           `koanf:"limit" validate:"gt=0"`
	Window   time.Duration `koanf:"window" validate:"gt=0"`
	Disabled bool          `koanf:"disabled"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret" validate:"required,min=16"`
	TokenTTL  time.Duration `koanf:"token_ttl" validate:"gt=0"`
}

type OAuthConfig struct {
	DiscordClientID     string `koanf:"discord_client_id"`
	DiscordClientSecret string `koanf:"discord_client_secret" validate:"required_with=DiscordClientID"`
	RedirectURL         string `koanf:"redirect_url" validate:"required_with=DiscordClientID,omitempty,url"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                  "8080",
			ShutdownTimeout:       10 * time.Second,
			AuthRequestsPerSecond: 20,
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Name:     "chirp",
			SSLMode:  "disable",
			MaxConns: 10,
		},
		RateLimit: RateLimitConfig{
			Limit:  3,
			Window: time.Minute,
		},
		Auth: AuthConfig{
			TokenTTL: 72 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// envMappings keeps the flat variable names the deployment already uses.
// Anything else can be set as CHIRP_<SECTION>_<KEY>.
var envMappings = map[string]string{
	"port":                  "server.port",
	"database_url":          "db.url",
	"db_host":               "db.host",
	"db_port":               "db.port",
	"db_user":               "db.user",
	"db_password":           "db.password",
	"db_name":               "db.name",
	"db_sslmode":            "db.sslmode",
	"redis_addr":            "redis.addr",
	"redis_password":        "redis.password",
	"jwt_secret":            "auth.jwt_secret",
	"discord_client_id":     "oauth.discord_client_id",
	"discord_client_secret": "oauth.discord_client_secret",
	"oauth_redirect_url":    "oauth.redirect_url",
	"log_level":             "log.level",
	"log_format":            "log.format",
}

func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if path, ok := envMappings[key]; ok {
		return path
	}
	if rest, ok := strings.CutPrefix(key, "chirp_"); ok {
		section, field, found := strings.Cut(rest, "_")
		if !found {
			return ""
		}
		return section + "." + field
	}
	return ""
}

// Load builds the configuration and validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	return validator.New(validator.WithRequiredStructEnabled()).Struct(c)
}
