// Server entrypoint. Wires configuration, stores, services, and the HTTP
// surface; business logic lives in the internal packages.
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

	attendancehandler "pramaan/internal/attendance/handler"
	attendancemetrics "pramaan/internal/attendance/metrics"
	attendanceservice "pramaan/internal/attendance/service"
	"pramaan/internal/attendance/store/nullifier"
	"pramaan/internal/attendance/store/proof"
	"pramaan/internal/audit"
	enrollmenthandler "pramaan/internal/enrollment/handler"
	enrollmentmetrics "pramaan/internal/enrollment/metrics"
	enrollmentservice "pramaan/internal/enrollment/service"
	"pramaan/internal/enrollment/store/commitment"
	"pramaan/internal/platform/config"
	"pramaan/internal/platform/httpserver"
	"pramaan/internal/platform/kafka"
	"pramaan/internal/platform/logger"
	"pramaan/internal/platform/metrics"
	platformredis "pramaan/internal/platform/redis"
	"pramaan/internal/proofbackend"
	"pramaan/internal/prooftoken"
	httptransport "pramaan/internal/transport/http"
	"pramaan/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := proofbackend.New(proofbackend.Config{Mode: cfg.ProofMode})
	if err != nil {
		log.Error("proof backend init failed", "error", err)
		os.Exit(1)
	}

	// Stores: postgres when a DSN is configured, in-memory otherwise.
	var (
		commitments commitment.Store
		proofs      proof.Store
		nullifiers  proof.ConsumedNullifierStore
		auditStore  audit.Store
		txRunner    tx.Runner = tx.Passthrough{}
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("postgres open failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("postgres ping failed", "error", err)
			os.Exit(1)
		}
		commitments = commitment.NewPostgres(db)
		proofs = proof.NewPostgres(db)
		nullifiers = proof.NewPostgresNullifiers(db)
		auditStore = audit.NewPostgresStore(db)
		txRunner = tx.NewRunner(db)
	} else {
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
		commitments = commitment.NewInMemory()
		proofs = proof.NewInMemory()
		nullifiers = proof.NewInMemoryNullifiers()
		auditStore = audit.NewMemoryStore()
	}

	// Fast-path nullifier guard; the storage transaction stays authoritative
	// when redis is absent or down.
	var guard attendanceservice.NullifierGuard
	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connect failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		guard = nullifier.NewRedisGuard(redisClient.Client, cfg.ProofTTL)
	}

	group, ctx := errgroup.WithContext(ctx)

	// Audit fan-out: every event is persisted synchronously; the kafka sink
	// gets a best-effort copy through the worker.
	auditOpts := []audit.Option{audit.WithLogger(log)}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(ctx, cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			log.Error("kafka producer init failed", "error", err)
			os.Exit(1)
		}
		defer producer.Close()

		inbox := make(chan audit.Event, 256)
		auditOpts = append(auditOpts, audit.WithSink(inbox))
		worker := audit.NewWorker(audit.NewKafkaSink(producer), inbox, log)
		group.Go(func() error { return worker.Run(ctx) })
	}
	publisher := audit.NewPublisher(auditStore, auditOpts...)

	codec := prooftoken.NewCodec(cfg.TokenSigningKey, "pramaan")
	processMetrics := metrics.New()

	enrollSvc := enrollmentservice.New(commitments, backend,
		enrollmentservice.WithLogger(log),
		enrollmentservice.WithAuditPublisher(publisher),
		enrollmentservice.WithMetrics(enrollmentmetrics.New()),
		enrollmentservice.WithTxRunner(txRunner),
	)

	attendanceMetrics := attendancemetrics.New()
	issuer := attendanceservice.NewIssuer(proofs, commitments, backend, codec, cfg.ProofTTL,
		attendanceservice.WithIssuerLogger(log),
		attendanceservice.WithIssuerAudit(publisher),
		attendanceservice.WithIssuerMetrics(attendanceMetrics),
		attendanceservice.WithIssuerTxRunner(txRunner),
	)
	verifierOpts := []attendanceservice.VerifierOption{
		attendanceservice.WithVerifierLogger(log),
		attendanceservice.WithVerifierAudit(publisher),
		attendanceservice.WithVerifierMetrics(attendanceMetrics),
		attendanceservice.WithVerifierTxRunner(txRunner),
	}
	if guard != nil {
		verifierOpts = append(verifierOpts, attendanceservice.WithVerifierGuard(guard))
	}
	verifier := attendanceservice.NewVerifier(proofs, nullifiers, commitments, backend, codec, verifierOpts...)

	router := httptransport.NewRouter(httptransport.Deps{
		Enrollment: enrollmenthandler.New(enrollSvc, log, cfg.AdminToken),
		Attendance: attendancehandler.New(issuer, verifier, log, cfg.AdminToken),
		Metrics:    processMetrics,
		Logger:     log,
	})

	srv := httpserver.New(cfg.Addr, router)

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
