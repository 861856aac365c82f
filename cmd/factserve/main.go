package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/factgrid/factserve/internal/backend/arith"
	cacheFetch "github.com/factgrid/factserve/internal/backend/cache"
	"github.com/factgrid/factserve/internal/backend/instrument"
	"github.com/factgrid/factserve/internal/backend/limit"
	"github.com/factgrid/factserve/internal/backend/movie"
	"github.com/factgrid/factserve/internal/backend/quote"
	"github.com/factgrid/factserve/internal/backend/weather"
	"github.com/factgrid/factserve/internal/config"
	"github.com/factgrid/factserve/internal/db"
	dbRedis "github.com/factgrid/factserve/internal/db/redis"
	"github.com/factgrid/factserve/internal/facts"
	logpkg "github.com/factgrid/factserve/internal/logger"
	"github.com/factgrid/factserve/internal/metrics"
	"github.com/factgrid/factserve/internal/transport/httpfs"
	healthuc "github.com/factgrid/factserve/internal/usecase/health"
	searchuc "github.com/factgrid/factserve/internal/usecase/search"
	"github.com/factgrid/factserve/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting factserve",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
	)

	// Record cache store (optional)
	var store db.Store
	if cfg.Cache.Enabled() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer store.Close()

		ctx := context.Background()
		readiness := time.Duration(cfg.Cache.ReadinessTimeoutSec) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			logger.Fatal("Cache store not ready", zap.Error(err))
		}
		logger.Info("Connected to record cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	// Register backend metrics explicitly (no init())
	metrics.RegisterBackendMetrics()

	// Shared outbound HTTP client, connection-pooled and safe for concurrent use.
	httpClient := &http.Client{Timeout: time.Duration(cfg.Backend.TimeoutSec) * time.Second}

	type factService struct {
		name   string
		port   int
		server *httpfs.Server
	}
	var services []factService

	register := func(name string, port int, schema facts.Schema, backend facts.Fetcher) {
		fetcher := buildFetcher(name, backend, store, cfg, logger)
		svc := searchuc.New(schema, fetcher).
			WithTimeout(time.Duration(cfg.Backend.TimeoutSec) * time.Second)
		services = append(services, factService{
			name:   name,
			port:   port,
			server: httpfs.NewServer(name, svc),
		})
	}

	if qc := cfg.Services.Quote; qc != nil {
		register("quote", qc.Port, quote.DomainSchema(), quote.New(quote.Config{
			BaseURL: qc.BaseURL,
			Client:  httpClient,
			Logger:  logger,
		}))
	}
	if wc := cfg.Services.Weather; wc != nil {
		register("weather", wc.Port, weather.DomainSchema(), weather.New(weather.Config{
			APIKey:  wc.APIKey,
			BaseURL: wc.BaseURL,
			Units:   wc.Units,
			Client:  httpClient,
			Logger:  logger,
		}))
	}
	if mc := cfg.Services.Movie; mc != nil {
		register("movie", mc.Port, movie.DomainSchema(), movie.New(movie.Config{
			BaseURL: mc.BaseURL,
			Client:  httpClient,
			Logger:  logger,
		}))
	}
	if ac := cfg.Services.Add; ac != nil {
		register("add", ac.Port, arith.DomainSchema(), arith.New())
	}

	var servers []*http.Server
	names := make([]string, 0, len(services))
	for _, fs := range services {
		names = append(names, fs.name)

		r := chi.NewRouter()
		r.Use(jsonRecoverer(logger))
		r.Use(chiMiddleware.RequestID)
		r.Use(wideEventMiddleware(logger, fs.name))
		r.Use(metrics.Middleware(fs.name))
		r.Mount("/", fs.server.Routes())

		servers = append(servers, &http.Server{
			Addr:         fmt.Sprintf(":%d", fs.port),
			Handler:      r,
			ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
			WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
		})
	}

	// Ops listener: /health and /metrics, separate from the fact protocol.
	if cfg.Ops.Port != 0 {
		var pinger healthuc.CachePinger
		if store != nil {
			pinger = store
		}
		healthSvc := healthuc.New(pinger, names)

		r := chi.NewRouter()
		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			report := healthSvc.Check(req.Context())
			status := http.StatusOK
			if report.Status != healthuc.Healthy {
				status = http.StatusServiceUnavailable
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(report)
		})
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())

		servers = append(servers, &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Ops.Port),
			Handler:      r,
			ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
			WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
		})
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	for _, srv := range servers {
		go func(srv *http.Server) {
			logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatal("HTTP server error", zap.String("addr", srv.Addr), zap.Error(err))
			}
		}(srv)
	}

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error during shutdown", zap.String("addr", srv.Addr), zap.Error(err))
		}
	}

	logger.Info("All servers stopped gracefully")
}

// buildFetcher assembles the decorator chain:
// backend -> rate limit -> record cache -> instrumentation.
// Cache hits bypass the limiter; instrumentation times the whole fetch.
func buildFetcher(
	name string,
	backend facts.Fetcher,
	store db.Store,
	cfg config.Config,
	logger *zap.Logger,
) facts.Fetcher {
	fetcher := backend

	if cfg.Backend.RateLimitRPS > 0 {
		fetcher = limit.New(fetcher, cfg.Backend.RateLimitRPS, cfg.Backend.RateLimitBurst)
	}

	if store != nil {
		ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
		fetcher = cacheFetch.New(fetcher, store, name, ttl, metrics.RecordCacheTotal, logger)
	}

	return instrument.New(fetcher, name, logger)
}

// jsonRecoverer converts a panic into the protocol's Error envelope instead
// of a plain text stacktrace. Status stays 200: callers of this protocol
// read the body shape, not the status.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusOK)
					_ = json.NewEncoder(w).Encode(facts.ErrorEnvelope{Error: "internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger, service string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(
				zap.String("request_id", requestID),
				zap.String("service", service),
			)
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line, one per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
