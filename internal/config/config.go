// Package config loads the server configuration.
//
// Values come from three layers, later ones winning:
//
//  1. built-in defaults (Default)
//  2. a YAML file, config/config.yaml unless SENDLINKS_CONFIG says otherwise
//  3. environment variables, including any set by a .env file
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "config/config.yaml"

	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"

	minSecretLength = 16
	minIterations   = 1000
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Session  SessionConfig  `yaml:"session"`
	Password PasswordConfig `yaml:"password"`
	Log      LogConfig      `yaml:"log"`
	GitHub   GitHubConfig   `yaml:"github"`
	CORS     CORSConfig     `yaml:"cors"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	BaseURL         string        `yaml:"baseURL"` // public URL, used to build the OAuth callback
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // sqlite, mysql or postgres
	Path   string `yaml:"path"`   // sqlite file
	DSN    string `yaml:"dsn"`    // mysql / postgres connection string

	// ResetOnStart drops and recreates every table at startup.
	ResetOnStart bool `yaml:"resetOnStart"`

	MaxIdle int `yaml:"maxIdle"`
	MaxOpen int `yaml:"maxOpen"`
}

type SessionConfig struct {
	Secret       string        `yaml:"secret"`
	TTL          time.Duration `yaml:"ttl"`
	CookieName   string        `yaml:"cookieName"`
	CookieSecure bool          `yaml:"cookieSecure"`

	// GeneratedSecret is set by Validate when no secret was configured
	// and a random one was made up. Sessions then die with the process.
	GeneratedSecret bool `yaml:"-"`
}

type PasswordConfig struct {
	Iterations int `yaml:"iterations"` // PBKDF2 rounds for new hashes
}

type LogConfig struct {
	Level      string `yaml:"level"`    // debug, info, warn, error
	Format     string `yaml:"format"`   // text or json
	Filename   string `yaml:"filename"` // also log to this rotated file when set
	MaxSize    int    `yaml:"maxSize"`  // MB
	MaxBackups int    `yaml:"maxBackups"`
	MaxAge     int    `yaml:"maxAge"` // days
	Compress   bool   `yaml:"compress"`
}

type GitHubConfig struct {
	ClientID     string `yaml:"clientID"`
	ClientSecret string `yaml:"clientSecret"`
	CallbackURL  string `yaml:"callbackURL"`
}

// Enabled reports whether GitHub sign-in is configured.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:  DriverSQLite,
			Path:    "data/sendlinks.db",
			MaxIdle: 10,
			MaxOpen: 100,
		},
		Session: SessionConfig{
			TTL:        24 * time.Hour,
			CookieName: "sendlinks_session",
		},
		Password: PasswordConfig{
			Iterations: 600000,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// PathFromEnv returns the config file path: SENDLINKS_CONFIG, or DefaultPath.
func PathFromEnv() string {
	if p := os.Getenv("SENDLINKS_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load builds the configuration and validates it. A missing .env or YAML
// file is fine; a malformed one, or an unparsable environment value, is
// an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	cfg := Default()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: reading %s: %w", path, err)
	}
	// Unmarshalling over the defaults keeps every key the file leaves out.
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	e := envReader{}

	e.setInt("PORT", &c.Server.Port)
	e.setString("BASE_URL", &c.Server.BaseURL)

	e.setString("DB_DRIVER", &c.Database.Driver)
	e.setString("DB_PATH", &c.Database.Path)
	e.setString("DB_DSN", &c.Database.DSN)
	e.setBool("DB_RESET_ON_START", &c.Database.ResetOnStart)
	e.setInt("DB_MAX_IDLE", &c.Database.MaxIdle)
	e.setInt("DB_MAX_OPEN", &c.Database.MaxOpen)

	e.setString("SESSION_SECRET", &c.Session.Secret)
	e.setDuration("SESSION_TTL", &c.Session.TTL)
	e.setBool("SESSION_COOKIE_SECURE", &c.Session.CookieSecure)

	e.setInt("PASSWORD_ITERATIONS", &c.Password.Iterations)

	e.setString("LOG_LEVEL", &c.Log.Level)
	e.setString("LOG_FORMAT", &c.Log.Format)
	e.setString("LOG_FILENAME", &c.Log.Filename)

	e.setString("GITHUB_CLIENT_ID", &c.GitHub.ClientID)
	e.setString("GITHUB_CLIENT_SECRET", &c.GitHub.ClientSecret)
	e.setString("GITHUB_CALLBACK_URL", &c.GitHub.CallbackURL)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORS.AllowedOrigins = splitList(v)
	}

	return errors.Join(e.errs...)
}

// Validate checks the configuration and fills in derived values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = fmt.Sprintf("http://localhost:%d", c.Server.Port)
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")

	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("config: database.path is required for sqlite")
		}
	case DriverMySQL, DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("config: database.dsn is required for %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("config: unknown database.driver %q (want sqlite, mysql or postgres)", c.Database.Driver)
	}

	switch {
	case c.Session.Secret == "":
		secret, err := randomSecret()
		if err != nil {
			return err
		}
		c.Session.Secret = secret
		c.Session.GeneratedSecret = true
	case len(c.Session.Secret) < minSecretLength:
		return fmt.Errorf("config: session.secret must be at least %d characters", minSecretLength)
	}
	if c.Session.TTL <= 0 {
		return errors.New("config: session.ttl must be positive")
	}
	if c.Session.CookieName == "" {
		return errors.New("config: session.cookieName is required")
	}

	if c.Password.Iterations < minIterations {
		return fmt.Errorf("config: password.iterations must be at least %d", minIterations)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: log.format must be text or json, got %q", c.Log.Format)
	}

	if c.GitHub.Enabled() && c.GitHub.CallbackURL == "" {
		c.GitHub.CallbackURL = c.Server.BaseURL + "/auth/github/callback"
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("config: generating session secret: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// envReader overrides config fields from set environment variables and
// collects parse errors instead of silently keeping the old value.
type envReader struct {
	errs []error
}

func (e *envReader) setString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func (e *envReader) setInt(key string, dst *int) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q is not an integer", key, v))
		return
	}
	*dst = n
}

func (e *envReader) setBool(key string, dst *bool) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q is not a boolean", key, v))
		return
	}
	*dst = b
}

func (e *envReader) setDuration(key string, dst *time.Duration) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("config: %s=%q is not a duration", key, v))
		return
	}
	*dst = d
}
