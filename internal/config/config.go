package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dataset sources.
	LocationsPath  string
	FlowsPath      string
	PropertiesPath string
	InitialQuery   string

	// Interaction timing.
	HoverDelay    time.Duration
	URLSyncDelay  time.Duration
	AnimationTick time.Duration

	ViewportWidth  int
	ViewportHeight int

	ClusterBackground bool
	ClusterCacheSize  int

	// Shareable state publishing. Empty brokers disable it.
	KafkaBrokers    []string
	KafkaStateTopic string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		LocationsPath:  os.Getenv("LOCATIONS_PATH"),
		FlowsPath:      os.Getenv("FLOWS_PATH"),
		PropertiesPath: os.Getenv("PROPERTIES_PATH"),
		InitialQuery:   os.Getenv("INITIAL_QUERY"),

		ClusterBackground: os.Getenv("CLUSTER_BACKGROUND") == "true",

		KafkaBrokers:    sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaStateTopic: sharedcfg.EnvOrDefault("KAFKA_STATE_TOPIC", "flowmap-state"),

		MapboxToken: os.Getenv("MAPBOX_TOKEN"),
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"HOVER_DELAY", "500ms", &cfg.HoverDelay},
		{"URL_SYNC_DELAY", "250ms", &cfg.URLSyncDelay},
		{"ANIMATION_TICK", "16ms", &cfg.AnimationTick},
		{"MAPBOX_TIMEOUT", "5s", &cfg.MapboxTimeout},
	}
	for _, d := range durations {
		v, err := parsePositiveDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	ints := []struct {
		key string
		def int
		dst *int
	}{
		{"VIEWPORT_WIDTH", 1280, &cfg.ViewportWidth},
		{"VIEWPORT_HEIGHT", 800, &cfg.ViewportHeight},
		{"CLUSTER_CACHE_SIZE", 32, &cfg.ClusterCacheSize},
	}
	for _, i := range ints {
		v, err := parsePositiveInt(i.key, i.def)
		if err != nil {
			return nil, err
		}
		*i.dst = v
	}
	cfg.MapboxCacheSize = parseMapboxCacheSize()

	cfg.MapboxEnabled = cfg.MapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		cfg.MapboxEnabled = v == "true"
	}

	if cfg.LocationsPath == "" {
		return nil, errors.New("LOCATIONS_PATH is required")
	}
	if cfg.FlowsPath == "" {
		return nil, errors.New("FLOWS_PATH is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaStateTopic == "" {
		return nil, errors.New("KAFKA_STATE_TOPIC is required when KAFKA_BROKERS is set")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

// PublishingEnabled reports whether shareable state is published to Kafka.
func (c *Config) PublishingEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
