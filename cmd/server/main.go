package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twmb/franz-go/pkg/kgo"

	"carelock/internal/audit"
	auditkafka "carelock/internal/audit/kafka"
	"carelock/internal/audit/notifier"
	auditpg "carelock/internal/audit/store/postgres"
	"carelock/internal/phi"
	"carelock/internal/platform/config"
	"carelock/internal/platform/httpserver"
	"carelock/internal/platform/logger"
	"carelock/internal/platform/middleware"
	platformredis "carelock/internal/platform/redis"
	"carelock/internal/policy"
	"carelock/internal/records"
	"carelock/internal/token"
	httptransport "carelock/internal/transport/http"
)

// main wires dependencies explicitly and keeps the server lifecycle small.
// Everything here is constructed once at startup and passed by reference; no
// lazily built singletons.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("configuration error", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	codec, err := phi.NewCodec(cfg.EncryptionSecret, cfg.HashSalt)
	if err != nil {
		log.Error("codec init failed", "error", err)
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("open postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := auditpg.EnsureSchema(ctx, db); err != nil {
		log.Error("audit schema", "error", err)
		os.Exit(1)
	}
	var auditStore audit.Store = auditpg.New(db)

	// Optional Kafka mirror of the audit stream.
	if len(cfg.KafkaBrokers) > 0 {
		client, err := kgo.NewClient(kgo.SeedBrokers(cfg.KafkaBrokers...))
		if err != nil {
			log.Error("kafka client", "error", err)
			os.Exit(1)
		}
		if err := auditkafka.EnsureTopic(ctx, client, cfg.KafkaTopic, 3); err != nil {
			log.Error("kafka topic", "error", err)
			os.Exit(1)
		}
		mirror := auditkafka.New(client, cfg.KafkaTopic, log)
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := mirror.Close(flushCtx); err != nil {
				log.Error("kafka mirror close", "error", err)
			}
		}()
		auditStore = auditkafka.NewMirroringStore(auditStore, mirror)
	}

	// Optional redis escalation channel; noop without it.
	var escalation audit.Notifier = notifier.Noop{}
	redisClient, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		log.Error("redis init", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		escalation = notifier.NewRedis(redisClient, "")
	}

	recorder := audit.NewRecorder(auditStore, log,
		audit.WithNotifier(escalation),
		audit.WithMetrics(audit.NewMetrics()),
	)
	engine := policy.NewEngine(recorder, policy.NewMetrics())
	registry := policy.NewRegistry(policy.DefaultOperations())

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		log.Error("open pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := records.EnsureSchema(ctx, pool); err != nil {
		log.Error("records schema", "error", err)
		os.Exit(1)
	}
	recordStore := records.NewStore(pool, codec, recorder)

	verifier := token.NewVerifier(cfg.JWTSigningKey)
	handler := httptransport.NewHandler(engine, registry, recorder, recordStore, log)
	router := httptransport.NewRouter(handler, middleware.Auth(verifier), middleware.Metadata)

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting carelock", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
