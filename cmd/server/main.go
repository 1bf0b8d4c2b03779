// Command server runs the kyc-gateway: the verification API, the provider
// webhook endpoint, and the audit pipeline. Dependency wiring lives here;
// business logic stays in internal packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"kyc-gateway/internal/jwttoken"
	"kyc-gateway/internal/platform/config"
	"kyc-gateway/internal/platform/httpserver"
	"kyc-gateway/internal/platform/logger"
	platformredis "kyc-gateway/internal/platform/redis"
	"kyc-gateway/internal/provider"
	httptransport "kyc-gateway/internal/transport/http"
	"kyc-gateway/internal/verification"
	vmetrics "kyc-gateway/internal/verification/metrics"
	"kyc-gateway/internal/verification/monitor"
	"kyc-gateway/pkg/platform/audit"
	compliancepub "kyc-gateway/pkg/platform/audit/publishers/compliance"
	kafkapub "kyc-gateway/pkg/platform/audit/publishers/kafka"
	opspub "kyc-gateway/pkg/platform/audit/publishers/ops"
	auditmem "kyc-gateway/pkg/platform/audit/store/memory"
	auditpg "kyc-gateway/pkg/platform/audit/store/postgres"
	auditworker "kyc-gateway/pkg/platform/audit/worker"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Compliance trail: Postgres when configured, in-memory otherwise (dev).
	var complianceStore audit.Store
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Error("opening audit database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("audit database unreachable", "error", err)
			os.Exit(1)
		}
		complianceStore = auditpg.New(db)
	} else {
		log.Warn("audit postgres not configured, compliance events are in-memory only")
		complianceStore = auditmem.NewInMemoryStore()
	}

	// Ops trail: events are queued and drained asynchronously, into Kafka
	// when brokers are configured.
	inbox := audit.NewChannelStore(1024)
	var opsSink audit.Store = auditmem.NewInMemoryStore()
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := kafkapub.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("connecting to kafka", "error", err)
			os.Exit(1)
		}
		defer kp.Close()
		opsSink = kp
	}

	compliancePublisher, err := compliancepub.New(complianceStore, compliancepub.WithLogger(log))
	if err != nil {
		log.Error("building compliance publisher", "error", err)
		os.Exit(1)
	}
	sampler := opspub.NewSampler(1.0)
	sampler.SetRate(string(audit.EventStatusChanged), 0.25)
	opsPublisher := opspub.New(inbox,
		opspub.WithLogger(log),
		opspub.WithSampler(sampler),
	)

	// Redis backs the suspicious activity monitor when available; the
	// in-memory store keeps single-instance deployments working without it.
	var monitorStore monitor.Store = monitor.NewInMemoryStore()
	health := map[string]httptransport.HealthChecker{}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("connecting to redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		monitorStore = monitor.NewRedisStore(redisClient.Client)
		health["redis"] = redisClient
	}
	monitorSvc, err := monitor.New(monitorStore,
		monitor.WithThreshold(cfg.Verification.SuspiciousThreshold),
		monitor.WithLogger(log),
	)
	if err != nil {
		log.Error("building activity monitor", "error", err)
		os.Exit(1)
	}

	gateway := provider.NewClient(cfg.Provider.BaseURL, cfg.Provider.APIKey,
		provider.WithHTTPTimeout(cfg.Provider.HTTPTimeout),
		provider.WithLogger(log),
	)

	verificationSvc, err := verification.NewService(gateway, verification.Config{
		WorkflowID:        cfg.Provider.WorkflowID,
		CallbackURL:       cfg.Provider.CallbackURL,
		PollInterval:      cfg.Verification.PollInterval,
		SessionTimeout:    cfg.Verification.SessionTimeout,
		MaxRetries:        cfg.Verification.MaxRetries,
		MinScore:          cfg.Verification.MinComplianceScore,
		NotFoundThreshold: cfg.Verification.NotFoundThreshold,
		ErrorThreshold:    cfg.Verification.ErrorThreshold,
		BreakerThreshold:  cfg.Verification.BreakerThreshold,
		BreakerCooldown:   cfg.Verification.BreakerCooldown,
		CompletionDelay:   cfg.Verification.CompletionDelay,
	},
		verification.ServiceWithMonitor(monitorSvc),
		verification.ServiceWithPublishers(compliancePublisher, opsPublisher),
		verification.ServiceWithLogger(log),
		verification.ServiceWithMetrics(vmetrics.New()),
	)
	if err != nil {
		log.Error("building verification service", "error", err)
		os.Exit(1)
	}

	jwtSvc := jwttoken.NewJWTService(cfg.JWTSigningKey, "kyc-gateway", "kyc-gateway-clients")
	webhookVerifier := provider.NewWebhookVerifier(cfg.Provider.WebhookSecret)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Verification: httptransport.NewVerificationHandler(verificationSvc, log),
		Webhook:      httptransport.NewWebhookHandler(webhookVerifier, verificationSvc, opsPublisher, log),
		Tokens:       httptransport.NewAuthHandler(jwtSvc, cfg.Auth.ClientID, cfg.Auth.ClientSecretHash, cfg.Auth.TokenTTL, log),
		Auth:         jwtSvc,
		Logger:       log,
		Health:       health,
	})
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		worker := auditworker.New(opsSink, inbox.Inbox(), log)
		err := worker.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	group.Go(func() error {
		log.Info("kyc-gateway listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		verificationSvc.Shutdown(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("kyc-gateway stopped")
}
