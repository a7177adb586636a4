package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/history"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-engine/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-engine/pkg/redis"
)

// Routes counted individually by the HTTP metrics middleware.
var routes = []string{
	"/",
	"/history/clear",
	"/api/v1/search",
	"/api/v1/history",
	"/api/v1/cache/stats",
	"/api/v1/analytics",
	"/health/live",
	"/health/ready",
	"/metrics",
}

// server is the search front end over a finished index. Optional backends
// that fail to connect are logged and left out.
type server struct {
	cfg     *config.Config
	handler http.Handler
	closers []func()
	logger  *slog.Logger
}

func newServer(ctx context.Context, cfg *config.Config, view index.View, m *metrics.Metrics) *server {
	s := &server{
		cfg:    cfg,
		logger: logger.WithComponent("server"),
	}

	var redisClient *pkgredis.Client
	var queryCache *cache.QueryCache
	if cfg.Redis.Addr != "" {
		rc, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			s.logger.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			redisClient = rc
			s.onClose(func() { rc.Close() })
			queryCache = cache.New(rc, cfg.Redis.CacheTTL, m)
			// Responses cached by an earlier run describe a different index.
			if err := queryCache.Invalidate(ctx); err != nil {
				s.logger.Warn("flushing stale search cache failed", "error", err)
			}
			s.logger.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var db *postgres.Client
	var store history.Store
	if cfg.Postgres.Enabled {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			s.logger.Warn("postgres unavailable, keeping history in memory", "error", err)
		} else {
			ps := history.NewPostgresStore(pg)
			if err := ps.EnsureSchema(ctx); err != nil {
				s.logger.Warn("creating history schema failed, keeping history in memory", "error", err)
				pg.Close()
			} else {
				db = pg
				store = ps
				s.onClose(func() { pg.Close() })
				s.logger.Info("search history persisted", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
			}
		}
	}

	aggregator := analytics.NewAggregator()
	var tracker analytics.Tracker = aggregator
	if len(cfg.Kafka.Brokers) > 0 {
		producer := kafka.NewProducer(cfg.Kafka)
		collector := analytics.NewCollector(producer, 10000, cfg.Kafka.BatchSize, cfg.Kafka.FlushEvery)
		collector.Start()
		// Registered first so it runs last: the collector flushes through the producer.
		s.onClose(func() {
			if err := producer.Close(); err != nil {
				s.logger.Error("closing kafka producer", "error", err)
			}
		})
		s.onClose(collector.Close)
		tracker = analytics.Multi(aggregator, collector)
	}

	h := handler.New(executor.New(view, m), queryCache, store, tracker, handler.Options{
		DefaultLimit: cfg.Search.DefaultLimit,
		MaxResults:   cfg.Search.MaxResults,
		HistorySize:  cfg.Search.HistorySize,
	})
	checker := newChecker(view, redisClient, db)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /", h.Page)
	mux.HandleFunc("POST /history/clear", h.ClearHistory)
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/history", h.History)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.Handle("GET /api/v1/analytics", aggregator)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", m.Handler())

	var limiter *ratelimit.Limiter
	if cfg.Search.RateLimit > 0 {
		limiter = ratelimit.New(cfg.Search.RateLimit, cfg.Search.RateWindow)
		s.onClose(limiter.Close)
	}

	s.handler = middleware.Chain(mux,
		middleware.RequestID,
		middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowOrigins...)),
		middleware.Timeout(cfg.Server.RequestTimeout),
		middleware.Metrics(m, routes...),
		middleware.RateLimit(limiter, "/api/"),
	)
	return s
}

func newChecker(view index.View, redisClient *pkgredis.Client, db *postgres.Client) *health.Checker {
	checker := health.NewChecker(5 * time.Second)
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d words", view.Size())}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusUp, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: redisClient.PoolStats()}
	})
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if db == nil {
			return health.ComponentHealth{Status: health.StatusUp, Message: "not configured"}
		}
		if err := db.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	return checker
}

func (s *server) onClose(fn func()) {
	s.closers = append(s.closers, fn)
}

// run listens on the configured port until ctx is done, then shuts down
// gracefully.
func (s *server) run(ctx context.Context) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Server.Port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", s.cfg.Server.Port, err)
	}
	srv := &http.Server{
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("search server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	s.logger.Info("search server stopped")
	return nil
}

// close releases backends in reverse order of acquisition.
func (s *server) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
