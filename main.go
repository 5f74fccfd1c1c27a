package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"fantasy12/auth"
	"fantasy12/config"
	"fantasy12/handlers"
	"fantasy12/ratelimit"
	"fantasy12/services"
	"fantasy12/store"
	"fantasy12/utils"
	"fantasy12/workers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := store.Open(cfg.DatabaseURL, store.OpenOptions{
		MaxOpenConns:  cfg.DBMaxOpenConns,
		MaxIdleConns:  cfg.DBMaxIdleConns,
		ConnLifetime:  cfg.DBConnLifetime,
		SlowThreshold: cfg.DBSlowThreshold,
	})
	if err != nil {
		log.Fatal("failed to open database: ", err)
	}
	st := store.NewGorm(db)

	jobs := workers.Config{RoundCloseInterval: cfg.RoundCloseInterval}

	var limiterStore ratelimit.Store
	switch cfg.RateLimitBackend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("failed to connect to redis: ", err)
		}
		defer rdb.Close()
		limiterStore = ratelimit.NewRedisStore(rdb, "fantasy12:rl:")
	default:
		mem := ratelimit.NewMemoryStore()
		jobs.Limiter = mem
		limiterStore = mem
	}
	limiter := ratelimit.New(limiterStore, ratelimit.DefaultRules()...)

	tokens := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	hasher := auth.NewBcryptHasher()
	audit := services.NewAuditService(st)
	rounds := services.NewRoundService(st, audit, cfg.PointsPerHit)

	deps := handlers.Deps{
		Store:    st,
		Tokens:   tokens,
		Limiter:  limiter,
		Audit:    audit,
		Auth:     services.NewAuthService(st, tokens, hasher, audit),
		Users:    services.NewUserService(st, hasher, audit),
		Rounds:   rounds,
		Tickets:  services.NewTicketService(st, audit, cfg.StakePerGame()),
		Pools:    services.NewPoolService(st, audit),
		Rankings: services.NewRankingService(st),
		Payments: services.NewPaymentService(st, audit),
		Shop:     services.NewShopService(st, audit),
	}

	jobs.Rounds = rounds
	if cfg.ArchiveEnabled() {
		archiver, err := utils.NewR2Archiver(ctx, utils.R2Config{
			AccountID:       cfg.ArchiveAccountID,
			AccessKeyID:     cfg.ArchiveAccessKey,
			AccessKeySecret: cfg.ArchiveAccessSecret,
			Bucket:          cfg.ArchiveBucket,
			Endpoint:        cfg.ArchiveEndpoint,
		})
		if err != nil {
			log.Fatal("failed to initialize R2 archiver: ", err)
		}
		jobs.Audit = audit
		jobs.Archiver = archiver
	}
	scheduler, err := workers.NewScheduler(jobs)
	if err != nil {
		log.Fatal("failed to create scheduler: ", err)
	}
	scheduler.Start()

	app := handlers.New(deps, handlers.Options{
		Production:     cfg.IsProduction(),
		BodyLimit:      cfg.BodyLimitMB * 1024 * 1024,
		AllowedOrigins: strings.Join(cfg.Origins(), ","),
		AccessLog:      true,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.WithError(err).Error("server error")
			stop()
		}
	}()
	log.WithFields(log.Fields{
		"port":       cfg.Port,
		"env":        cfg.AppEnv,
		"rate_limit": cfg.RateLimitBackend,
		"archive":    cfg.ArchiveEnabled(),
	}).Info("✅ Server running")

	<-ctx.Done()
	log.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(cfg.ShutdownGrace); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	if err := scheduler.Shutdown(); err != nil {
		log.WithError(err).Error("scheduler shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func setupLogging(cfg *config.Config) {
	if cfg.IsProduction() {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warnf("unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = log.InfoLevel
	}
	log.SetLevel(level)
}
