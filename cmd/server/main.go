package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/atmx/portfolio-engine/internal/chain"
	"github.com/atmx/portfolio-engine/internal/config"
	"github.com/atmx/portfolio-engine/internal/ledger"
	"github.com/atmx/portfolio-engine/internal/metrics"
	"github.com/atmx/portfolio-engine/internal/profile"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	// --- Initialize ledger source ---
	var src ledger.Source
	var cleanup []func()

	switch {
	case cfg.RPCURL != "":
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		eth, client, err := ledger.DialEthSource(ctx, cfg.RPCURL)
		cancel()
		if err != nil {
			slog.Error("rpc connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, client.Close)
		src = eth
		slog.Info("reading ledger over JSON-RPC")

	case cfg.DatabaseURL != "":
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		src = ledger.NewPostgresSource(pool)
		slog.Info("reading ledger from PostgreSQL index")

	default:
		slog.Warn("RPC_URL and DATABASE_URL not set, using empty in-memory ledger")
		src = ledger.NewMemorySource(0)
	}

	// Wrap with Redis read-through cache if configured, else an in-process one
	// for remote sources.
	switch {
	case cfg.RedisURL != "":
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "err", err)
			os.Exit(1)
		}
		rdb := redis.NewClient(opt)
		cleanup = append(cleanup, func() { rdb.Close() })
		src = ledger.NewCachedSource(src, rdb, cfg.CacheTTL, cfg.HeadTTL)
		slog.Info("Redis cache enabled", "ttl", cfg.CacheTTL.String(), "head_ttl", cfg.HeadTTL.String())

	case cfg.RPCURL != "" || cfg.DatabaseURL != "":
		src = ledger.NewLocalCachedSource(src, cfg.CacheTTL, cfg.HeadTTL)
		slog.Info("in-process cache enabled", "ttl", cfg.CacheTTL.String(), "head_ttl", cfg.HeadTTL.String())
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// --- Fetch window ---
	window, err := chain.WindowBlocks(cfg.Window(), cfg.BlockInterval)
	if err != nil {
		slog.Error("invalid fetch window", "err", err)
		os.Exit(1)
	}

	var contract string
	if cfg.ContractAddress != "" {
		contract, err = chain.ParseAddress(cfg.ContractAddress)
		if err != nil {
			slog.Error("invalid PREDICTION_MARKET_ADDRESS", "err", err)
			os.Exit(1)
		}
	} else {
		slog.Warn("PREDICTION_MARKET_ADDRESS not set, portfolios will be empty")
	}

	fetcher := ledger.NewFetcher(src, contract, window)
	slog.Info("fetch window configured",
		"contract", contract,
		"window_days", cfg.WindowDays,
		"window_blocks", window,
	)

	// --- WebSocket hub ---
	wsHub := profile.NewWSHub(fetcher)
	go wsHub.Run()

	// --- Profile service ---
	profileSvc := profile.NewService(fetcher, cfg.TokenDecimals, cfg.FetchTimeout)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"portfolio-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for live portfolio tracking. Long-lived, so it
		// sits outside the request timeout.
		r.Get("/ws", wsHub.HandleWS)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.FetchTimeout + 10*time.Second))

			r.Get("/portfolio/{address}", profileSvc.GetPortfolio)
			r.Get("/portfolio/{address}/transactions", profileSvc.GetTransactions)
			r.Get("/portfolio/{address}/positions", profileSvc.GetPositions)
			r.Get("/portfolio/{address}/stats", profileSvc.GetStats)
			r.Get("/portfolio/{address}/timeline", profileSvc.GetTimeline)
			r.Post("/portfolio/{address}/valuation", profileSvc.ValuePositions)
		})
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.FetchTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("portfolio-engine listening", "port", cfg.Port)
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

	slog.Info("shutting down portfolio-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("portfolio-engine stopped")
}
