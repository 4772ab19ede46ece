package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"financeplanner/internal/account"
	"financeplanner/internal/authz"
	"financeplanner/internal/config"
	"financeplanner/internal/database"
	"financeplanner/internal/handler"
	"financeplanner/internal/jwtauth"
	"financeplanner/internal/middleware"
	"financeplanner/internal/tenancy"
	"financeplanner/internal/tenant"
	"financeplanner/internal/transaction"
	"financeplanner/internal/user"
)

const (
	shutdownTimeout    = 30 * time.Second
	limiterSweepPeriod = time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("error closing database connection: %v", err)
		}
	}()
	log.Println("database connection established")

	// An empty path runs the migrations embedded in the binary.
	migrationsPath := cfg.Database.MigrationsPath
	if err := db.MigrateUp(migrationsPath); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	version, dirty, err := db.MigrateVersion(migrationsPath)
	if err != nil {
		log.Printf("WARNING: failed to get migration version: %v", err)
	} else if dirty {
		log.Printf("WARNING: database is in dirty state at version %d - a previous migration failed and manual intervention is required", version)
	} else {
		log.Printf("database migrations complete (version: %d)", version)
	}

	verifier, err := jwtauth.NewVerifier(jwtauth.Config{
		Secret: cfg.Auth.SecretKey,
		Leeway: cfg.Auth.Leeway,
	})
	if err != nil {
		log.Fatalf("failed to initialize token verifier: %v", err)
	}

	users := user.NewManager(user.NewDatastore(db))
	builder := authz.NewBuilder(verifier, users, tenant.NewDatastore(db))

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, cfg, handler.Deps{
		Auth:         builder,
		Tenants:      tenancy.NewManager(db, users),
		Accounts:     account.NewManager(account.NewDatastore(db)),
		Transactions: transaction.NewManager(db),
		DB:           db,
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	if limiter == nil {
		log.Println("rate limiting disabled")
	}

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: middleware.Chain(
			middleware.RequestID,
			middleware.Logging(log.New(os.Stderr, "http: ", log.LstdFlags)),
			middleware.Recover,
			middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)),
			middleware.RateLimit(limiter),
		)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("finance server starting on :%s (env: %s)", cfg.Port, cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Println("shutting down, waiting for in-flight requests to complete...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("graceful shutdown failed: %v, forcing shutdown", err)
			return server.Close()
		}
		return nil
	})

	if limiter != nil {
		g.Go(func() error {
			return limiter.Run(ctx, limiterSweepPeriod)
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("server error: %v", err)
		return
	}
	log.Println("server shutdown complete")
}
