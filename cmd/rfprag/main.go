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
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rfprag/internal/config"
	"github.com/kailas-cloud/rfprag/internal/db"
	dbMemory "github.com/kailas-cloud/rfprag/internal/db/memory"
	dbPinecone "github.com/kailas-cloud/rfprag/internal/db/pinecone"
	dbPostgres "github.com/kailas-cloud/rfprag/internal/db/postgres"
	dbValkey "github.com/kailas-cloud/rfprag/internal/db/valkey"
	logpkg "github.com/kailas-cloud/rfprag/internal/logger"
	"github.com/kailas-cloud/rfprag/internal/metrics"
	chunkrepo "github.com/kailas-cloud/rfprag/internal/repository/chunk"
	"github.com/kailas-cloud/rfprag/internal/resilience"
	chiTransport "github.com/kailas-cloud/rfprag/internal/transport/chi"
	healthuc "github.com/kailas-cloud/rfprag/internal/usecase/health"
	retrievaluc "github.com/kailas-cloud/rfprag/internal/usecase/retrieval"
	"github.com/kailas-cloud/rfprag/internal/version"
)

func main() {
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

	logger.Info("Starting rfprag API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_driver", cfg.Index.Driver),
		zap.String("index_name", cfg.Index.Name),
	)

	store, err := buildStore(&cfg.Index, logger)
	if err != nil {
		logger.Fatal("Failed to create vector index store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, cfg.Index.ReadinessTimeoutDuration()); err != nil {
		logger.Fatal("Vector index not ready", zap.Error(err))
	}
	logger.Info("Connected to vector index")

	// Register metrics explicitly (no init())
	metrics.RegisterRetrievalMetrics()

	policy := policyFromConfig(&cfg.Retrieval)
	if err := policy.Validate(); err != nil {
		logger.Fatal("Invalid retrieval policy", zap.Error(err))
	}

	exec := resilience.NewExecutor(resilienceFromConfig(&cfg.Resilience), logger,
		resilience.WithStateObserver(func(op string, _, to gobreaker.State) {
			open := 0.0
			if to == gobreaker.StateOpen {
				open = 1
			}
			metrics.IndexBreakerOpen.WithLabelValues(op).Set(open)
		}),
	)
	index := chunkrepo.NewResilient(chunkrepo.New(store, cfg.Index.Name), exec)

	var retriever retrievaluc.Retriever = retrievaluc.New(index, policy, logger,
		retrievaluc.WithResponseFloor(time.Duration(cfg.Retrieval.ResponseFloorMS)*time.Millisecond),
		retrievaluc.WithDimensions(cfg.Index.Dimensions),
	)
	retriever = retrievaluc.NewInstrumentedRetriever(retriever, logger)

	healthSvc := healthuc.New(store, index)

	var serverOpts []chiTransport.ServerOption
	if cfg.RateLimit.RPS > 0 {
		limiter, err := chiTransport.NewTenantLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, cfg.RateLimit.MaxTenants)
		if err != nil {
			logger.Fatal("Failed to create rate limiter", zap.Error(err))
		}
		serverOpts = append(serverOpts, chiTransport.WithTenantLimiter(limiter))
	}
	server := chiTransport.NewServer(retriever, healthSvc, logger, serverOpts...)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildStore creates the vector index driver selected by index.driver.
func buildStore(ix *config.IndexConfig, logger *zap.Logger) (db.Store, error) {
	switch ix.Driver {
	case config.DriverValkey, config.DriverRedis:
		return dbValkey.NewStore(dbValkey.Config{
			Addrs:    ix.Addrs,
			Username: ix.Username,
			Password: ix.Password,
			DB:       ix.DB,
		})
	case config.DriverPinecone:
		return dbPinecone.NewStore(dbPinecone.Config{
			Host:    ix.Pinecone.Host,
			APIKey:  ix.Pinecone.APIKey,
			Timeout: time.Duration(ix.Pinecone.TimeoutSec) * time.Second,
		})
	case config.DriverPostgres:
		sqlDB, err := dbPostgres.OpenDB(dbPostgres.Config{
			DSN:             ix.Postgres.DSN,
			MaxOpenConns:    ix.Postgres.MaxOpenConns,
			ConnMaxLifetime: time.Duration(ix.Postgres.ConnMaxLifetimeSec) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return dbPostgres.NewStore(sqlDB), nil
	case config.DriverMemory:
		mem := dbMemory.NewStore(dbMemory.Config{
			M:         ix.Memory.M,
			EfSearch:  ix.Memory.EfSearch,
			Overfetch: ix.Memory.Overfetch,
		})
		if ix.Memory.SeedFile != "" {
			n, err := mem.LoadFile(ix.Name, ix.Memory.SeedFile)
			if err != nil {
				return nil, fmt.Errorf("load seed file: %w", err)
			}
			logger.Info("Loaded seed chunks", zap.Int("count", n))
		}
		return mem, nil
	default:
		return nil, fmt.Errorf("unknown index driver %q", ix.Driver)
	}
}

func policyFromConfig(rc *config.RetrievalConfig) retrievaluc.Policy {
	p := retrievaluc.DefaultPolicy()
	p.Weights = retrievaluc.Weights{
		Semantic: rc.Weights.Semantic,
		Outcome:  rc.Weights.Outcome,
		Recency:  rc.Weights.Recency,
		Quality:  rc.Weights.Quality,
	}
	p.SourceBoost = retrievaluc.SourceBoosts{
		Pinned:     rc.SourceBoost.Pinned,
		Support:    rc.SourceBoost.Support,
		Historical: rc.SourceBoost.Historical,
	}
	p.CategoryBoost = rc.CategoryBoost
	p.RecencyHalfLifeDays = rc.RecencyHalfLifeDays
	p.NeutralRecency = rc.NeutralRecency
	p.DefaultQuality = rc.DefaultQuality
	p.AvailabilityThreshold = rc.AvailabilityThreshold
	return p
}

func resilienceFromConfig(rc *config.ResilienceConfig) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:        rc.RetryMaxAttempts,
		RetryInitialBackoff:     time.Duration(rc.RetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:         time.Duration(rc.RetryMaxBackoffMS) * time.Millisecond,
		RetryMultiplier:         rc.RetryMultiplier,
		BreakerEnabled:          rc.BreakerEnabled != nil && *rc.BreakerEnabled,
		BreakerMinRequests:      rc.BreakerMinRequests,
		BreakerFailureRatio:     rc.BreakerFailureRatio,
		BreakerOpenTimeout:      time.Duration(rc.BreakerOpenTimeoutSec) * time.Second,
		BreakerHalfOpenMaxCalls: rc.BreakerHalfOpenCalls,
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
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
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
// The route pattern is logged instead of the path, which carries the tenant id.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			route := "unknown"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("route", route),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
