package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "BASE_URL", "DB_DRIVER", "DB_PATH", "DB_DSN", "DB_RESET_ON_START",
		"DB_MAX_IDLE", "DB_MAX_OPEN", "SESSION_SECRET", "SESSION_TTL",
		"SESSION_COOKIE_SECURE", "PASSWORD_ITERATIONS", "LOG_LEVEL", "LOG_FORMAT",
		"LOG_FILENAME", "GITHUB_CLIENT_ID", "GITHUB_CLIENT_SECRET",
		"GITHUB_CALLBACK_URL", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://localhost:8080", cfg.Server.BaseURL)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.False(t, cfg.Database.ResetOnStart, "data persists across restarts by default")
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 600000, cfg.Password.Iterations)
	assert.False(t, cfg.GitHub.Enabled())

	assert.True(t, cfg.Session.GeneratedSecret)
	assert.GreaterOrEqual(t, len(cfg.Session.Secret), minSecretLength)
}

func TestLoad_YAMLOverlaysDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
server:
  port: 9000
  baseURL: https://links.example.com/
database:
  path: /tmp/links.db
  resetOnStart: true
session:
  secret: yaml-secret-0123456789
  ttl: 2h
log:
  format: json
github:
  clientID: id
  clientSecret: secret
cors:
  allowedOrigins: ["https://app.example.com"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "https://links.example.com", cfg.Server.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "keys the file omits keep their default")
	assert.Equal(t, "/tmp/links.db", cfg.Database.Path)
	assert.True(t, cfg.Database.ResetOnStart)
	assert.Equal(t, "yaml-secret-0123456789", cfg.Session.Secret)
	assert.False(t, cfg.Session.GeneratedSecret)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.True(t, cfg.GitHub.Enabled())
	assert.Equal(t, "https://links.example.com/auth/github/callback", cfg.GitHub.CallbackURL)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "server:\n  port: 9000\n")

	t.Setenv("PORT", "7000")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "host=localhost user=links dbname=links")
	t.Setenv("DB_RESET_ON_START", "true")
	t.Setenv("SESSION_SECRET", "env-secret-0123456789")
	t.Setenv("SESSION_TTL", "30m")
	t.Setenv("SESSION_COOKIE_SECURE", "1")
	t.Setenv("PASSWORD_ITERATIONS", "1000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "host=localhost user=links dbname=links", cfg.Database.DSN)
	assert.True(t, cfg.Database.ResetOnStart)
	assert.Equal(t, "env-secret-0123456789", cfg.Session.Secret)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.True(t, cfg.Session.CookieSecure)
	assert.Equal(t, 1000, cfg.Password.Iterations)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "server: [not, a, map")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_BadEnvValue(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "eighty")
	t.Setenv("SESSION_TTL", "forever")

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "SESSION_TTL")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"unknown driver", func(c *Config) { c.Database.Driver = "oracle" }, true},
		{"mysql without dsn", func(c *Config) { c.Database.Driver = DriverMySQL }, true},
		{"mysql with dsn", func(c *Config) {
			c.Database.Driver = DriverMySQL
			c.Database.DSN = "user:pass@tcp(localhost:3306)/links?parseTime=true"
		}, false},
		{"sqlite without path", func(c *Config) { c.Database.Path = "" }, true},
		{"short secret", func(c *Config) { c.Session.Secret = "short" }, true},
		{"zero ttl", func(c *Config) { c.Session.TTL = 0 }, true},
		{"too few iterations", func(c *Config) { c.Password.Iterations = 10 }, true},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv("SENDLINKS_CONFIG", "")
	assert.Equal(t, DefaultPath, PathFromEnv())

	t.Setenv("SENDLINKS_CONFIG", "/etc/sendlinks.yaml")
	assert.Equal(t, "/etc/sendlinks.yaml", PathFromEnv())
}
