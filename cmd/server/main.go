// Command server runs the Issy broker assistant: the WhatsApp webhooks, the
// background conversation pipeline and the operator API.
//
//	@title			Issy Broker Assistant API
//	@version		1.0
//	@description	WhatsApp assistant for insurance brokers: gateway webhooks, health and the read-only operator API.
//	@BasePath		/
//
//	@securityDefinitions.apikey	OperatorToken
//	@in							header
//	@name						Authorization
//	@description				Bearer token from OPERATOR_API_TOKEN, sent as "Bearer <token>".
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/go-broker-assistant/internal/config"
	"github.com/tbourn/go-broker-assistant/internal/gateway"
	httpapi "github.com/tbourn/go-broker-assistant/internal/http"
	"github.com/tbourn/go-broker-assistant/internal/knowledge"
	"github.com/tbourn/go-broker-assistant/internal/llm"
	"github.com/tbourn/go-broker-assistant/internal/lock"
	"github.com/tbourn/go-broker-assistant/internal/observability"
	"github.com/tbourn/go-broker-assistant/internal/quote"
	"github.com/tbourn/go-broker-assistant/internal/repo"
	"github.com/tbourn/go-broker-assistant/internal/services"
	"github.com/tbourn/go-broker-assistant/internal/sysutil"
	"github.com/tbourn/go-broker-assistant/internal/worker"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout = 30 * time.Second
	purgeEvery      = time.Hour
)

func main() {
	// .env is optional; real deployments inject the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		sysutil.SetupLogger(sysutil.LogOptions{Level: "info"})
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	service := sysutil.FirstNonEmpty(cfg.OTEL.ServiceName, "issy-assistant")
	sysutil.SetupLogger(sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: service,
		Version: version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observability.Setup(ctx, cfg.OTEL, version,
		attribute.String("gateway.provider", cfg.GatewayProvider))
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	db, err := repo.Open(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DBDriver).Msg("database open failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	model, err := llm.New(cfg.OpenAI)
	if err != nil {
		log.Fatal().Err(err).Msg("model client setup failed")
	}

	sender, err := newSender(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("provider", cfg.GatewayProvider).Msg("gateway setup failed")
	}

	locker, redisClient, err := newLocker(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.LockBackend).Msg("lock setup failed")
	}
	if redisClient != nil {
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("redis unreachable")
		}
	}

	orch := newOrchestrator(cfg, db, model, sender, buildIndex(cfg))
	dispatcher := worker.New(orch, locker, cfg.EventTimeout)

	go purgeLoop(ctx, db, purgeEvery)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, dispatcher, cfg)
	if cfg.OperatorAPIToken == "" {
		log.Info().Msg("OPERATOR_API_TOKEN not set; operator API disabled")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().
			Str("port", cfg.Port).
			Str("gateway", cfg.GatewayProvider).
			Str("model", model.Model()).
			Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Stop taking webhooks first, then drain events that were acknowledged.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	if err := dispatcher.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("event drain incomplete")
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error().Err(err).Msg("redis close")
		}
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("shutdown complete")
}

func newSender(cfg config.Config) (gateway.Sender, error) {
	if cfg.GatewayProvider == "twilio" {
		return gateway.NewTwilioSender(cfg.Twilio)
	}
	return gateway.NewZAPISender(cfg.ZAPI, nil), nil
}

// newLocker returns the per-phone lock. The redis client is nil for the
// in-memory backend.
func newLocker(cfg config.Config) (lock.Locker, *redis.Client, error) {
	if cfg.LockBackend == "redis" {
		l, client, err := lock.NewRedisFromURL(cfg.RedisURL, cfg.LockTTL)
		if err != nil {
			return nil, nil, err
		}
		return l, client, nil
	}
	return lock.NewMemory(), nil, nil
}

// buildIndex indexes the built-in catalog plus the optional markdown file.
// A missing or unreadable file is logged and skipped.
func buildIndex(cfg config.Config) knowledge.Index {
	facts := knowledge.CatalogFacts()
	if cfg.KnowledgePath != "" {
		extra, err := knowledge.LoadMarkdown(cfg.KnowledgePath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.KnowledgePath).Msg("knowledge file skipped")
		} else {
			facts = append(facts, extra...)
		}
	}
	idx := knowledge.NewIndex(facts)
	log.Info().Int("facts", idx.Len()).Msg("knowledge index built")
	return idx
}

func newOrchestrator(cfg config.Config, db *gorm.DB, model *llm.Client, sender gateway.Sender, idx knowledge.Index) *services.Orchestrator {
	r := services.GormRepo{}
	sessions := services.NewSessionService(db, r, cfg.SessionTimeout)
	return &services.Orchestrator{
		DB:        db,
		Repo:      r,
		Sessions:  sessions,
		Admin:     services.NewAdminService(db, r, sessions, sender, cfg.IsAdmin),
		Handoff:   services.NewHandoffService(db, r, sessions, sender),
		Quotes:    services.NewQuoteService(db, r, quote.NewMachine(model), sender, cfg.HumanDelayMin, cfg.HumanDelayMax),
		Generator: model,
		Index:     idx,
		Sender:    sender,
		Opts: services.Options{
			HistoryLimit: cfg.HistoryLimit,
			FactsTopK:    cfg.FactsTopK,
			DelayMin:     cfg.HumanDelayMin,
			DelayMax:     cfg.HumanDelayMax,
			DedupeTTL:    cfg.DedupeTTL,
		},
	}
}

// purgeLoop drops expired deduplication records until ctx is done.
func purgeLoop(ctx context.Context, db *gorm.DB, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := repo.PurgeExpiredEvents(ctx, db, now)
			if err != nil {
				log.Warn().Err(err).Msg("purge processed events")
				continue
			}
			if n > 0 {
				log.Debug().Int64("rows", n).Msg("purged processed events")
			}
		}
	}
}
