package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CorsOrigins)
	assert.Equal(t, "nats", cfg.Push.Source)
	assert.Equal(t, "observations", cfg.Push.SubjectPrefix)
	assert.True(t, cfg.Dashboard.Dedupe)
	assert.Equal(t, 30*time.Second, cfg.Dashboard.FetchTimeout)

	loc, err := cfg.Dashboard.Location()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, loc)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SERVER_CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("PUSH_SOURCE", "postgres")
	t.Setenv("DASHBOARD_DEDUPE", "false")
	t.Setenv("DASHBOARD_TIMEZONE", "Europe/Malta")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("NATS_RECONNECT_WAIT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CorsOrigins)
	assert.Equal(t, "postgres", cfg.Push.Source)
	assert.False(t, cfg.Dashboard.Dedupe)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.NATS.ReconnectWait)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("DASHBOARD_FETCH_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Dashboard.FetchTimeout)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown push source", map[string]string{"PUSH_SOURCE": "kafka"}},
		{"unknown timezone", map[string]string{"DASHBOARD_TIMEZONE": "Mars/Olympus"}},
		{"port out of range", map[string]string{"SERVER_PORT": "70000"}},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}},
		{"default password in production", map[string]string{"APP_ENV": "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
