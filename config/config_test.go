package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndLegacyEnvNames(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MONGOURI", "mongodb://localhost:27017")
	t.Setenv("DB", "listings")
	t.Setenv("JWT_KEY", "s3cret")
	t.Setenv("REDIS_ADD", "redis:6379")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017", cfg.Mongo.URI)
	assert.Equal(t, "listings", cfg.Mongo.Database)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "9090", cfg.Server.Port)

	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 5, cfg.Auth.LoginLimit)
	assert.Equal(t, 15*time.Minute, cfg.Auth.LoginWindow)
	assert.Equal(t, "@every 24h", cfg.Sweep.Spec)
	assert.Equal(t, 24*time.Hour, cfg.Sweep.MaxAge)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, "log", cfg.Mail.Driver)
}

func TestLoad_DottedEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
mongo:
  uri: mongodb://file:27017
auth:
  jwt_secret: from-file
storage:
  driver: ftp
  ftp:
    host: ftp.example.com
sweep:
  spec: "0 3 * * *"
  max_age: 12h
`), 0o600))
	t.Setenv("CONFIG_FILE", file)
	t.Setenv("MONGOURI", "")
	t.Setenv("JWT_KEY", "")
	t.Setenv("STORAGE_FTP_USER", "uploader")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "mongodb://file:27017", cfg.Mongo.URI)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "ftp.example.com", cfg.Storage.FTP.Host)
	assert.Equal(t, "uploader", cfg.Storage.FTP.User)
	assert.Equal(t, "0 3 * * *", cfg.Sweep.Spec)
	assert.Equal(t, 12*time.Hour, cfg.Sweep.MaxAge)
}

func TestLoad_Validation(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MONGOURI", "")
	t.Setenv("JWT_KEY", "")
	t.Setenv("STORAGE_DRIVER", "s3")
	t.Setenv("ADMIN_SEED_EMAIL", "root@example.com")

	_, err := Load()
	require.Error(t, err)
	for _, want := range []string{"mongo.uri", "auth.jwt_secret", "storage.driver", "admin.seed_password"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestNewLogger(t *testing.T) {
	l := NewLogger("debug", "json")
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, l.Formatter)

	l = NewLogger("loud", "text")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}
