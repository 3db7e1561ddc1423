package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/ogas/wager-engine/internal/competition"
	"github.com/ogas/wager-engine/internal/forum"
	"github.com/ogas/wager-engine/internal/metrics"
	"github.com/ogas/wager-engine/internal/reward"
	"github.com/ogas/wager-engine/internal/snapshot"
	"github.com/ogas/wager-engine/internal/store"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// --- Balance snapshot file ---
	snapPath := os.Getenv("BALANCE_SNAPSHOT_PATH")
	if snapPath == "" {
		snapPath = "data/user_balance.json"
	}
	snap := snapshot.NewWriter(snapPath)

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store with snapshot restore")
		ms := store.NewMemoryStore()
		if n, err := snap.Restore(context.Background(), ms); err != nil {
			slog.Warn("balance snapshot restore failed", "err", err, "path", snapPath)
		} else if n > 0 {
			slog.Info("restored balances from snapshot", "participants", n, "path", snapPath)
		}
		st = ms
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Grant policy ---
	rules := reward.NewRules(
		envDecimal("UBI_AMOUNT", 100),
		envDecimal("AUTHOR_REWARD", 300),
		envInt("ARTICLE_THRESHOLD", 500),
	)

	// --- WebSocket hub ---
	wsHub := competition.NewWSHub()
	go wsHub.Run()

	// --- Competition service ---
	// The forum adapter is wired by the platform deployment; the engine
	// itself runs against the no-op gateway and the log notifier.
	svc := competition.NewService(st, rules, forum.NopGateway{}, forum.LogNotifier{}, snap, wsHub)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"wager-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time competition events.
		r.Get("/ws", wsHub.HandleWS)

		svc.Routes(r)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("wager-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down wager-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("wager-engine stopped")
}

func envDecimal(key string, fallback int64) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
		slog.Warn("invalid decimal env value, using default", "key", key, "value", v)
	}
	return decimal.NewFromInt(fallback)
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		slog.Warn("invalid integer env value, using default", "key", key, "value", v)
	}
	return fallback
}
