package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"patorama/internal/metrics"
	"patorama/internal/ratelimit"
	"patorama/internal/security"
	"patorama/internal/util"
	"patorama/pkg/authz"
	"patorama/pkg/events"
	"patorama/pkg/storage"
	"patorama/pkg/store"
	"patorama/services/crm/internal/app"
	"patorama/services/crm/internal/config"
	"patorama/services/crm/internal/server"
)

var version = "1.0.0"

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	jwtTTL, err := config.ParseDuration("jwtTTL", cfg.JWTTTL)
	if err != nil {
		log.Fatalf("failed to parse jwt TTL: %v", err)
	}
	jwtLeeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		log.Fatalf("failed to parse jwt leeway: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.NewGormStore(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer st.Close()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
	} else {
		logger.Warn("redisAddr not set: logout revocation is per-instance, login throttling and event stream are disabled")
	}

	var revoker store.TokenRevoker = store.NewMemoryTokenRevoker()
	var publisher events.Publisher = events.Nop{}
	var loginLimiter *ratelimit.FixedWindowLimiter
	if rdb != nil {
		revoker = store.NewRedisTokenRevoker(rdb, "")
		stream, err := events.NewRedisStream(rdb, events.StreamConfig{Stream: cfg.EventStream})
		if err != nil {
			log.Fatalf("failed to init event stream: %v", err)
		}
		publisher = stream
		if cfg.LoginRateLimitPerMinute > 0 {
			loginLimiter, err = ratelimit.NewRedisFixedWindowLimiter(rdb, "patorama:ratelimit:login", cfg.LoginRateLimitPerMinute, time.Minute)
			if err != nil {
				log.Fatalf("failed to init login limiter: %v", err)
			}
		}
	}

	sessions, err := store.NewJWTSessionStore(cfg.JWTSecret, jwtTTL, revoker, store.JWTOptions{
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   jwtLeeway,
	})
	if err != nil {
		log.Fatalf("failed to init sessions: %v", err)
	}

	objects, err := newObjectStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to init object storage: %v", err)
	}

	appCore, err := app.New(app.Config{
		Store:    st,
		Sessions: sessions,
		Objects:  objects,
		Policy:   authz.DefaultPolicy(),
		Events:   publisher,
		Uploads: app.UploadLimits{
			MaxBytes:            cfg.MaxUploadBytes,
			MaxFiles:            cfg.MaxFilesPerUpload,
			AllowedExtensions:   cfg.AllowedExtensions,
			AllowedContentTypes: cfg.AllowedContentTypes,
		},
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}
	if _, err := appCore.BootstrapAdmin(ctx, cfg.BootstrapAdminName, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword); err != nil {
		log.Fatalf("failed to bootstrap admin: %v", err)
	}

	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		log.Fatalf("invalid trustedProxyCidrs: %v", err)
	}
	httpServer, err := server.New(server.Config{
		App:            appCore,
		LoginLimiter:   loginLimiter,
		Alerter:        security.NewAuditAlerter(rdb, ""),
		Metrics:        metrics.NewHTTPMetrics("crm"),
		TrustedProxies: trusted,
		CORSOrigins:    cfg.CORSOrigins,
		Version:        version,
		Environment:    cfg.Environment,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "err", err)
		}
	}()

	slog.Info("server listening", "addr", addr, "environment", cfg.Environment, "storage", cfg.StorageBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}
}

func newObjectStore(ctx context.Context, cfg config.FileConfig) (storage.ObjectStore, error) {
	if cfg.StorageBackend == "minio" {
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	return storage.NewFileStore(cfg.UploadDir)
}
