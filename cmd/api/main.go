package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grantvault/internal/access"
	"grantvault/internal/audit"
	"grantvault/internal/auth"
	"grantvault/internal/bankvault"
	"grantvault/internal/config"
	"grantvault/internal/docvault"
	"grantvault/internal/httpapi"
	"grantvault/internal/migrate"
	"grantvault/internal/piivault"
	"grantvault/internal/vaultcrypto"
	"grantvault/pkg/logger"
	"grantvault/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	// Fail fast on a weak key: no request may be served under a KEK that
	// does not meet policy.
	engine, err := vaultcrypto.NewEngine([]byte(cfg.Vault.KEK))
	if err != nil {
		log.Error("vault key rejected", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	var dir access.Directory = access.NewPostgresDirectory(db)
	if cfg.CacheEnabled() {
		rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		dir = access.NewCachedDirectory(dir, rdb)
	}
	resolver := access.NewResolver(dir)

	blobs, err := docvault.NewS3BlobStore(rootCtx, docvault.S3Config{
		Bucket:    cfg.S3.Bucket,
		Region:    cfg.S3.Region,
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
	})
	if err != nil {
		log.Error("s3 init failed", "err", err)
		os.Exit(1)
	}

	recorder := audit.NewRecorder(audit.NewPostgresRepo(db))

	bankRepo := bankvault.NewPostgresRepo(db)
	docRepo := docvault.NewPostgresRepo(db)

	h := httpapi.Handlers{
		Auth:      authManager,
		Directory: dir,
		Bank:      bankvault.NewService(bankRepo, resolver, engine, recorder),
		PII:       piivault.NewService(piivault.NewPostgresRepo(db), resolver, engine, recorder),
		Gateway:   docvault.NewGateway(docRepo, blobs, resolver, engine, recorder),
		Verifier:  docvault.NewVerifier(docRepo, blobs, resolver, engine, recorder),
		Migrator:  migrate.NewRunner(bankRepo, engine, recorder),
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, h, auth.RequireAccessToken(authManager))

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
