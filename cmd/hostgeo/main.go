package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/TomasB/hostgeo/internal/config"
	"github.com/TomasB/hostgeo/internal/geo"
	grpchandler "github.com/TomasB/hostgeo/internal/handler/grpc"
	"github.com/TomasB/hostgeo/internal/handler/health"
	"github.com/TomasB/hostgeo/internal/handler/lookup"
	"github.com/TomasB/hostgeo/internal/handler/tabs"
	"github.com/TomasB/hostgeo/internal/icon"
	"github.com/TomasB/hostgeo/internal/resolver"
	"github.com/TomasB/hostgeo/internal/session"
	"github.com/TomasB/hostgeo/internal/tab"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	cfg, err := config.Load(os.Getenv)

	// Initialize structured logging
	logLevel := config.ParseLogLevel(os.Getenv("LOG_LEVEL"))
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("service starting", "log_level", logLevel.String(), "geo_backend", cfg.GeoBackend)

	if err := run(cfg, logger); err != nil {
		slog.Error("service failed", "error", err)
		os.Exit(1)
	}

	slog.Info("service stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := &http.Client{Timeout: cfg.HTTPTimeout}

	lookupBackend, closeLookup, watch, err := newGeoLookup(cfg, client)
	if err != nil {
		return err
	}
	defer closeLookup()

	tabStore, err := tab.NewStore(cfg.MaxTabs)
	if err != nil {
		return err
	}

	google := resolver.NewGoogleStrategy(cfg.GoogleDoHURL, client)
	registry := resolver.NewRegistry(map[resolver.Source]resolver.Strategy{
		resolver.Local:  resolver.NewLocalStrategy(tabStore),
		resolver.AliDNS: resolver.NewAliDNSStrategy(cfg.AliDNSURL, client),
		resolver.Google: google,
	})

	board := session.NewBoard()
	orch := session.New(registry, lookupBackend, board)
	icons := icon.NewStore()
	iconPipeline := icon.NewPipeline(google, lookupBackend, icon.NewFlagFetcher(cfg.FlagBaseURL, client), icons)

	ready := func() error {
		if c, ok := lookupBackend.(geo.Checker); ok {
			return c.Ready()
		}
		return nil
	}

	// Set Gin mode based on log level
	if cfg.LogLevel == slog.LevelDebug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(ginLogger(logger))
	router.Use(gin.Recovery())

	healthHandler := health.NewHandler(map[string]health.Check{"geo": ready})
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.POST("/lookup", lookup.NewHandler(registry, lookupBackend).Lookup)
		tabs.NewHandler(tabStore, orch, board, icons, iconPipeline).Register(api)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	var grpcLis net.Listener
	if cfg.GRPCPort != "" {
		grpcLis, err = net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			return fmt.Errorf("failed to listen for gRPC: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("service started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if watch != nil {
		g.Go(func() error { return watch(gctx) })
	}

	var grpcSrv *grpc.Server
	if grpcLis != nil {
		grpcSrv = grpc.NewServer()
		grpchandler.RegisterTabGeoServer(grpcSrv, grpchandler.NewHandler(tabStore, orch, board, icons))
		hs := grpchealth.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, hs)
		reflection.Register(grpcSrv)

		g.Go(func() error {
			slog.Info("gRPC service started", "port", cfg.GRPCPort)
			return grpcSrv.Serve(grpcLis)
		})
		g.Go(func() error {
			syncHealth(gctx, hs, ready)
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("service shutting down")

		// Graceful shutdown with 30s timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if grpcSrv != nil {
			grpcSrv.GracefulStop()
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newGeoLookup builds the configured geo backend. watch is nil unless the
// backend needs a background goroutine.
func newGeoLookup(cfg *config.Config, client *http.Client) (geo.Lookup, func(), func(context.Context) error, error) {
	if cfg.GeoBackend != config.BackendMMDB {
		slog.Info("using geo API", "base", cfg.GeoAPIBase)
		return geo.NewAPIClient(cfg.GeoAPIBase, client), func() {}, nil, nil
	}

	reader, err := geo.NewReloadingReader(cfg.MMDBPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open MMDB %s: %w", cfg.MMDBPath, err)
	}
	slog.Info("MMDB loaded", "path", cfg.MMDBPath)

	closeFn := func() {
		if err := reader.Close(); err != nil {
			slog.Warn("failed to close MMDB", "error", err)
		}
	}
	return reader, closeFn, reader.Watch, nil
}

// syncHealth mirrors geo readiness into the gRPC health service.
func syncHealth(ctx context.Context, hs *grpchealth.Server, ready func() error) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		st := healthpb.HealthCheckResponse_SERVING
		if err := ready(); err != nil {
			st = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", st)
		hs.SetServingStatus(grpchandler.ServiceName, st)

		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
		}
	}
}

// ginLogger creates a Gin middleware that logs using slog
func ginLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		// Process request
		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		attrs := []any{
			"request_id", requestID,
			"method", method,
			"path", path,
			"status", statusCode,
			"duration_ms", duration.Milliseconds(),
		}

		if len(c.Errors) > 0 {
			logger.Error("request completed with errors", append(attrs, "errors", c.Errors.String())...)
		} else if statusCode >= 500 {
			logger.Error("request completed", attrs...)
		} else if statusCode >= 400 {
			logger.Warn("request completed", attrs...)
		} else {
			logger.Info("request completed", attrs...)
		}
	}
}
