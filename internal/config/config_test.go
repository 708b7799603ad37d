package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
ebird:
  api_key: ebird-key
sms:
  api_key: sms-key
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.ebird.org/v2", cfg.EBird.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.EBird.Timeout)
	assert.Equal(t, 15*time.Second, cfg.SMS.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.Notify.Interval)
	assert.Equal(t, 60*time.Minute, cfg.Notify.MinNotifyInterval)
	assert.Equal(t, 5*time.Minute, cfg.Notify.CycleTimeout)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "bird_alerts", cfg.RabbitMQ.Exchange)
	assert.False(t, cfg.RabbitMQ.Enabled)
}

func TestLoad_ExplicitValuesKept(t *testing.T) {
	path := writeConfig(t, `
ebird:
  api_key: ebird-key
  timeout: 10s
sms:
  api_key: sms-key
notify:
  interval: 5m
  min_notify_interval: 2h
server:
  addr: ":9090"
log_level: debug
rabbitmq:
  enabled: true
  url: amqp://bird:seed@mq:5672/
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, cfg.EBird.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Notify.Interval)
	assert.Equal(t, 2*time.Hour, cfg.Notify.MinNotifyInterval)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.RabbitMQ.Enabled)
	assert.Equal(t, "amqp://bird:seed@mq:5672/", cfg.RabbitMQ.URL)
}

func TestLoad_ExpandsEnvPlaceholders(t *testing.T) {
	t.Setenv("TEST_EBIRD_KEY", "from-env")
	path := writeConfig(t, `
ebird:
  api_key: ${TEST_EBIRD_KEY}
sms:
  api_key: sms-key
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.EBird.APIKey)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing ebird key",
			content: "sms:\n  api_key: sms-key\n",
			wantErr: "ebird.api_key is required",
		},
		{
			name:    "missing sms key",
			content: "ebird:\n  api_key: ebird-key\n",
			wantErr: "sms.api_key is required",
		},
		{
			name:    "interval below minimum",
			content: "ebird:\n  api_key: k\nsms:\n  api_key: k\nnotify:\n  interval: 10s\n",
			wantErr: "below the 1m minimum",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "bird",
		Password: "seed",
		DBName:   "alerts",
		SSLMode:  "disable",
	}
	assert.Equal(t, "host=localhost port=5432 user=bird password=seed dbname=alerts sslmode=disable", d.DSN())
}
