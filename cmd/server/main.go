// Command server runs the eligibility engine. main wires dependencies and
// the server lifecycle; business logic lives in the internal packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mosolo/internal/activation"
	"mosolo/internal/audit/relay"
	auditmemory "mosolo/internal/audit/store/memory"
	auditpostgres "mosolo/internal/audit/store/postgres"
	"mosolo/internal/eligibility"
	eligibilityhandler "mosolo/internal/eligibility/handler"
	"mosolo/internal/eligibility/metrics"
	"mosolo/internal/eligibility/store/catalog"
	"mosolo/internal/eligibility/store/status"
	"mosolo/internal/facts"
	httprouter "mosolo/internal/http"
	"mosolo/internal/notification"
	"mosolo/internal/notification/cooldown"
	notificationhandler "mosolo/internal/notification/handler"
	notificationstore "mosolo/internal/notification/store"
	"mosolo/internal/platform/config"
	"mosolo/internal/platform/httpserver"
	"mosolo/internal/platform/kafka"
	"mosolo/internal/platform/logger"
	"mosolo/internal/platform/postgres"
	platformredis "mosolo/internal/platform/redis"
)

func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	} else {
		log.Warn("no postgres configured, running with in-memory stores")
	}

	redisClient, err := platformredis.New(cfg.RedisURL, cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Notification dispatcher with distributed cooldown when Redis is up.
	var notifyStore notification.Store
	if db != nil {
		notifyStore = notificationstore.NewPostgres(db)
	} else {
		notifyStore = notificationstore.NewMemory()
	}
	throttle := cooldown.Cooldown(cooldown.NewMemory())
	if redisClient != nil {
		throttle = cooldown.NewRedis(redisClient.Client)
	}
	notifier, err := notification.New(notifyStore,
		notification.WithLogger(log),
		notification.WithCooldown(throttle, cfg.NotifyCooldown),
	)
	if err != nil {
		log.Error("notification service init failed", "error", err)
		os.Exit(1)
	}

	// Eligibility engine.
	var (
		conditionCatalog eligibility.Catalog
		factProvider     eligibility.FactProvider
		statusStore      eligibility.StatusStore
		auditLog         eligibility.AuditLog
	)
	if db != nil {
		conditionCatalog = catalog.NewPostgres(db)
		factProvider = facts.NewPostgres(db, log)
		statusStore = status.NewPostgres(db)
		auditLog = auditpostgres.New(db)
	} else {
		conditionCatalog = catalog.NewMemory()
		factProvider = facts.NewMemory()
		statusStore = status.NewMemory()
		auditLog = auditmemory.New()
	}

	activator := activation.NewClient(os.Getenv("MOSOLO_ACTIVATION_URL"), nil)

	engine, err := eligibility.New(conditionCatalog, factProvider, statusStore,
		eligibility.Config{
			AutoActivateDefault: cfg.AutoActivateDefault,
			ProgressMilestone:   cfg.ProgressMilestone,
			EvaluateTimeout:     cfg.EvaluateTimeout,
			BatchChunkSize:      cfg.BatchChunkSize,
			BatchWorkers:        cfg.BatchWorkers,
		},
		eligibility.WithLogger(log),
		eligibility.WithMetrics(metrics.New()),
		eligibility.WithActivator(activator),
		eligibility.WithNotifier(notifier),
		eligibility.WithAuditLog(auditLog),
	)
	if err != nil {
		log.Error("engine init failed", "error", err)
		os.Exit(1)
	}

	// Outbox relay to Kafka, only meaningful with Postgres behind it.
	if db != nil && len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(ctx, cfg.KafkaBrokers, cfg.KafkaAuditTopic)
		if err != nil {
			log.Error("kafka unavailable", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		outboxRelay := relay.New(db, producer, cfg.OutboxRelayInterval, cfg.OutboxRelayBatchSize, log)
		go func() {
			if err := outboxRelay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("outbox relay stopped", "error", err)
			}
		}()
	}

	// Periodic reconciliation of eligible-but-unactivated rows.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := engine.Reconcile(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Warn("reconciliation sweep failed", "error", err)
				}
			}
		}
	}()

	router := httprouter.NewRouter(httprouter.Deps{
		Eligibility:  eligibilityhandler.New(engine, log),
		Notification: notificationhandler.New(notifier, log),
		Health: func(r *http.Request) error {
			if db != nil {
				return db.PingContext(r.Context())
			}
			return nil
		},
	})

	srv := httpserver.New(cfg.Addr, router)
	log.Info("starting mosolo eligibility engine", "addr", cfg.Addr)

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
