package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"authgate.org/internal/auth"
	"authgate.org/internal/config"
	"authgate.org/internal/directory"
	"authgate.org/internal/httpapi"
	"authgate.org/internal/obs"
	"authgate.org/internal/session"
)

var version = "0.3.1"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("AUTHGATE_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	obs.InitLogger(obs.LogConfig{Env: cfg.App.Env, Level: cfg.App.LogLevel})
	defer obs.SyncLogger()
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("AUTHGATE_COMMIT"))

	logger := obs.Named("main")

	var db *sql.DB
	if cfg.Storage.DSN != "" {
		db, err = sql.Open("pgx", cfg.Storage.DSN)
		if err != nil {
			logger.Fatal("open db", zap.Error(err))
		}
		db.SetMaxOpenConns(cfg.Storage.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Storage.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.Storage.ConnMaxLifetime)
	}

	var (
		users    directory.Store
		sessions session.Store
	)
	if db != nil {
		users = directory.NewPGStore(db)
		sessions = session.NewPGStore(db)
	} else {
		logger.Warn("no DSN configured, using in-memory stores")
		users = directory.NewMemoryStore()
		sessions = session.NewMemoryStore()
	}

	issuer, err := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		Issuer:        cfg.JWT.Issuer,
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
	})
	if err != nil {
		logger.Fatal("token issuer", zap.Error(err))
	}

	sessionSvc := session.NewService(sessions, session.WithTTL(cfg.Session.TTL))
	authSvc := auth.NewService(users, sessionSvc, issuer)

	api := httpapi.New(authSvc, httpapi.ReadyProbe{DB: db}, version, httpapi.RateLimitConfig{
		Burst:     cfg.RateLimit.Burst,
		PerSecond: cfg.RateLimit.PerSecond,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	logger.Info("starting authgate", zap.String("version", version), zap.String("addr", srv.Addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(ctx)
	if db != nil {
		_ = db.Close()
	}
	logger.Info("stopped")
}
