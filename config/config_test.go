package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 45*time.Minute, cfg.Orders.EstimatedDelivery)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("APP_SERVER_PORT", "9090")
	t.Setenv("APP_AUTH_ACCESS_TTL", "5m")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Auth.AccessTTL)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "server:\n  port: 7000\ncache:\n  ttl: 30s\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:   ServerConfig{Mode: "debug"},
			Database: DatabaseConfig{Driver: "sqlite"},
			Cache:    CacheConfig{Backend: "memory"},
			Auth:     AuthConfig{JWTSecret: devJWTSecret, AccessTTL: time.Minute, RefreshTTL: time.Hour},
		}
	}

	assert.NoError(t, base().Validate())

	c := base()
	c.Database.Driver = "oracle"
	assert.Error(t, c.Validate())

	c = base()
	c.Server.Mode = "release"
	assert.Error(t, c.Validate(), "dev secret must not be accepted in release mode")

	c = base()
	c.Cache.Backend = "redis"
	assert.Error(t, c.Validate())

	c = base()
	c.Auth.AccessTTL = 2 * time.Hour
	assert.Error(t, c.Validate())
}

func TestNewLogger_WritesToDir(t *testing.T) {
	dir := t.TempDir()
	log, err := NewLogger(LogConfig{Level: "debug", Encoding: "json", Dir: dir})
	require.NoError(t, err)
	log.Info("hello")
	_ = log.Sync()

	_, err = os.Stat(filepath.Join(dir, "app.log"))
	assert.NoError(t, err)
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, err := NewLogger(LogConfig{Level: "loud"})
	assert.Error(t, err)
}
