package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/flowmap-core/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/flowmap-core/internal/adapter/kafka"
	"github.com/couchcryptid/flowmap-core/internal/adapter/mapbox"
	"github.com/couchcryptid/flowmap-core/internal/cluster"
	"github.com/couchcryptid/flowmap-core/internal/config"
	"github.com/couchcryptid/flowmap-core/internal/dataset"
	"github.com/couchcryptid/flowmap-core/internal/domain"
	"github.com/couchcryptid/flowmap-core/internal/interaction"
	"github.com/couchcryptid/flowmap-core/internal/observability"
	"github.com/couchcryptid/flowmap-core/internal/pipeline"
	"github.com/couchcryptid/flowmap-core/internal/session"
	"github.com/couchcryptid/flowmap-core/internal/urlsync"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	sessionID := uuid.New()

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger)
		cached, err := mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create geocoder", "error", err)
			os.Exit(1)
		}
		geocoder = cached
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	// Shareable state publishing (enabled via KAFKA_BROKERS).
	var (
		publishers []urlsync.Publisher
		publisher  *kafkaadapter.Publisher
	)
	if cfg.PublishingEnabled() {
		publisher = kafkaadapter.NewPublisher(cfg, sessionID, logger)
		publishers = append(publishers, publisher)
		logger.Info("state publishing enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaStateTopic)
	}

	sess := session.New(sessionID, session.Options{
		Pipeline: pipeline.Options{
			Cluster:    cluster.DefaultOptions(),
			Background: cfg.ClusterBackground,
			CacheSize:  cfg.ClusterCacheSize,
		},
		Interaction: interaction.Options{
			HoverDelay:     cfg.HoverDelay,
			ViewportWidth:  float64(cfg.ViewportWidth),
			ViewportHeight: float64(cfg.ViewportHeight),
		},
		SyncDelay:     cfg.URLSyncDelay,
		AnimationTick: cfg.AnimationTick,
		InitialQuery:  cfg.InitialQuery,
	}, session.Deps{
		Clock:      clockwork.NewRealClock(),
		Publishers: publishers,
		Geocoder:   geocoder,
		Logger:     logger,
		Metrics:    metrics,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, sess, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Load the dataset; readiness reports not ready until it is in.
	go func() {
		ds, err := dataset.LoadFiles(cfg.LocationsPath, cfg.FlowsPath, cfg.PropertiesPath)
		if err != nil {
			logger.Error("failed to load dataset", "error", err)
			stop()
			return
		}
		sess.LoadData(ctx, ds)
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	sess.Close()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
