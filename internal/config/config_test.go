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
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
	assert.True(t, cfg.DB.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "ph", cfg.Maps.Region)
	assert.Equal(t, "streets", cfg.Map.DefaultStyle)
	assert.Equal(t, 10*time.Second, cfg.Map.LoadTimeout)
	assert.Equal(t, 121.5556, cfg.Map.CenterLng)
	assert.Equal(t, 14.1139, cfg.Map.CenterLat)
	assert.Equal(t, 24*time.Hour, cfg.Geocode.CacheTTL)
	assert.True(t, cfg.Geolocation.HighAccuracy)
	assert.Equal(t, 10*time.Second, cfg.Geolocation.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.Geolocation.MaximumAge)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	body := `{
		"http": { "addr": ":9090" },
		"map": { "defaultStyle": "dark", "zoom": 14.5 },
		"geocode": { "cacheTtl": "1h" }
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "dark", cfg.Map.DefaultStyle)
	assert.Equal(t, 14.5, cfg.Map.Zoom)
	assert.Equal(t, time.Hour, cfg.Geocode.CacheTTL)
	assert.Equal(t, 768, cfg.Map.Height)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("BANTAY_MAPS_APIKEY", "test-key")
	t.Setenv("BANTAY_REDIS_ENABLED", "false")
	t.Setenv("BANTAY_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.Maps.APIKey)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{not json`), 0o644))
	_, err := Load(dir)
	assert.Error(t, err)
}
