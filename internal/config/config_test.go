package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMapboxToken = "pk.test-token"

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("LOCATIONS_PATH", "testdata/locations.csv")
	t.Setenv("FLOWS_PATH", "testdata/flows.csv")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "testdata/locations.csv", cfg.LocationsPath)
	assert.Equal(t, "testdata/flows.csv", cfg.FlowsPath)
	assert.Empty(t, cfg.PropertiesPath)
	assert.Empty(t, cfg.InitialQuery)
	assert.Equal(t, 500*time.Millisecond, cfg.HoverDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.URLSyncDelay)
	assert.Equal(t, 16*time.Millisecond, cfg.AnimationTick)
	assert.Equal(t, 1280, cfg.ViewportWidth)
	assert.Equal(t, 800, cfg.ViewportHeight)
	assert.False(t, cfg.ClusterBackground)
	assert.Equal(t, 32, cfg.ClusterCacheSize)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.PublishingEnabled())
	assert.Equal(t, "flowmap-state", cfg.KafkaStateTopic)
	assert.False(t, cfg.MapboxEnabled)
	assert.Empty(t, cfg.MapboxToken)
	assert.Equal(t, 5*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 1000, cfg.MapboxCacheSize)
}

func TestLoad_CustomEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("PROPERTIES_PATH", "testdata/properties.csv")
	t.Setenv("INITIAL_QUERY", "v=1,2,3")
	t.Setenv("HOVER_DELAY", "300ms")
	t.Setenv("URL_SYNC_DELAY", "1s")
	t.Setenv("ANIMATION_TICK", "33ms")
	t.Setenv("VIEWPORT_WIDTH", "800")
	t.Setenv("VIEWPORT_HEIGHT", "600")
	t.Setenv("CLUSTER_BACKGROUND", "true")
	t.Setenv("CLUSTER_CACHE_SIZE", "8")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_STATE_TOPIC", "custom-state")
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_TIMEOUT", "10s")
	t.Setenv("MAPBOX_CACHE_SIZE", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "testdata/properties.csv", cfg.PropertiesPath)
	assert.Equal(t, "v=1,2,3", cfg.InitialQuery)
	assert.Equal(t, 300*time.Millisecond, cfg.HoverDelay)
	assert.Equal(t, time.Second, cfg.URLSyncDelay)
	assert.Equal(t, 33*time.Millisecond, cfg.AnimationTick)
	assert.Equal(t, 800, cfg.ViewportWidth)
	assert.Equal(t, 600, cfg.ViewportHeight)
	assert.True(t, cfg.ClusterBackground)
	assert.Equal(t, 8, cfg.ClusterCacheSize)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.True(t, cfg.PublishingEnabled())
	assert.Equal(t, "custom-state", cfg.KafkaStateTopic)
	assert.True(t, cfg.MapboxEnabled)
	assert.Equal(t, testMapboxToken, cfg.MapboxToken)
	assert.Equal(t, 10*time.Second, cfg.MapboxTimeout)
	assert.Equal(t, 500, cfg.MapboxCacheSize)
}

func TestLoad_MissingDatasetPaths(t *testing.T) {
	t.Setenv("LOCATIONS_PATH", "")
	t.Setenv("FLOWS_PATH", "testdata/flows.csv")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOCATIONS_PATH")

	t.Setenv("LOCATIONS_PATH", "testdata/locations.csv")
	t.Setenv("FLOWS_PATH", "")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FLOWS_PATH")
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	setRequired(t)
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidDurations(t *testing.T) {
	for _, key := range []string{"HOVER_DELAY", "URL_SYNC_DELAY", "ANIMATION_TICK", "MAPBOX_TIMEOUT"} {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "-1s")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_InvalidIntegers(t *testing.T) {
	for _, key := range []string{"VIEWPORT_WIDTH", "VIEWPORT_HEIGHT", "CLUSTER_CACHE_SIZE"} {
		t.Run(key, func(t *testing.T) {
			setRequired(t)
			t.Setenv(key, "0")
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_MapboxEnabledWithoutToken(t *testing.T) {
	setRequired(t)
	t.Setenv("MAPBOX_ENABLED", "true")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAPBOX_TOKEN")
}

func TestLoad_MapboxTokenImpliesEnabled(t *testing.T) {
	setRequired(t)
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.MapboxEnabled)
}

func TestLoad_MapboxExplicitlyDisabled(t *testing.T) {
	setRequired(t)
	t.Setenv("MAPBOX_TOKEN", testMapboxToken)
	t.Setenv("MAPBOX_ENABLED", "false")
	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.MapboxEnabled)
}
