package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 8080, cfg.WebSocket.Port)
	assert.Equal(t, "memory", cfg.WebSocket.Backend)
	assert.Equal(t, 60, cfg.JWT.ExpiryMinutes)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestLoadFromYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := []byte(`
database:
  host: db.internal
  port: 5433
websocket:
  port: 9090
  backend: rabbitmq
jwt:
  secret: file_secret
log_level: DEBUG
`)
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 9090, cfg.WebSocket.Port)
	assert.Equal(t, "rabbitmq", cfg.WebSocket.Backend)
	assert.Equal(t, "file_secret", cfg.JWT.Secret)
	assert.Equal(t, "DEBUG", cfg.LogLevel)

	// незатронутые файлом секции остаются на defaults
	assert.Equal(t, "kwella_user", cfg.Database.User)
	assert.Equal(t, "guest", cfg.RabbitMQ.User)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt:\n  secret: file_secret\n"), 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("JWT_SECRET", "env_secret")
	t.Setenv("WS_PORT", "7070")
	t.Setenv("WS_BACKEND", "rabbitmq")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "env_secret", cfg.JWT.Secret)
	assert.Equal(t, 7070, cfg.WebSocket.Port)
	assert.Equal(t, "rabbitmq", cfg.WebSocket.Backend)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [not a mapping"), 0o600))
	t.Setenv("CONFIG_PATH", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", c.DSN())
}

func TestAMQPURL(t *testing.T) {
	c := MQConfig{Host: "mq", Port: 5672, User: "guest", Password: "guest", VHost: "/"}
	assert.Equal(t, "amqp://guest:guest@mq:5672/", c.AMQPURL())
}
