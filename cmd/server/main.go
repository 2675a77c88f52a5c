package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	certmetrics "credreg/internal/cert/metrics"
	certservice "credreg/internal/cert/service"
	"credreg/internal/cert/store/certtype"
	"credreg/internal/cert/store/credential"
	"credreg/internal/cert/store/expiry"
	"credreg/internal/chain"
	didmetrics "credreg/internal/did/metrics"
	didservice "credreg/internal/did/service"
	"credreg/internal/did/store/identity"
	"credreg/internal/events"
	orgmetrics "credreg/internal/org/metrics"
	orgservice "credreg/internal/org/service"
	orgstore "credreg/internal/org/store/org"
	"credreg/internal/platform/config"
	"credreg/internal/platform/httpserver"
	"credreg/internal/platform/logger"
	platformmetrics "credreg/internal/platform/metrics"
	"credreg/internal/platform/postgres"
	platformredis "credreg/internal/platform/redis"
	httptransport "credreg/internal/transport/http"
	"credreg/pkg/chainctx"
	"credreg/pkg/domain"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New(logger.ParseLevel(cfg.LogLevel))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores: postgres when configured, in-memory otherwise.
	var (
		orgs   orgservice.OrgStore
		types  certservice.CertTypeStore
		creds  certservice.CredentialStore
		index  certservice.ExpiryIndex
		idents didservice.IdentityStore
	)
	if cfg.PostgresURL != "" {
		db, err := sql.Open("postgres", cfg.PostgresURL)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		if err := postgres.Ensure(ctx, db); err != nil {
			return err
		}

		var credOpts []credential.PostgresOption
		if cfg.AllowReissueAfterSweep {
			credOpts = append(credOpts, credential.WithPostgresReissueAfterSweep())
		}
		pgCreds := credential.NewPostgres(db, credOpts...)
		orgs = orgstore.NewPostgres(db)
		types = certtype.NewPostgres(db)
		creds = pgCreds
		index = pgCreds
		idents = identity.NewPostgres(db)
		log.Info("using postgres stores")
	} else {
		var credOpts []credential.Option
		if cfg.AllowReissueAfterSweep {
			credOpts = append(credOpts, credential.WithReissueAfterSweep())
		}
		orgs = orgstore.NewInMemory()
		types = certtype.NewInMemory()
		creds = credential.NewInMemory(credOpts...)
		index = expiry.NewInMemory()
		idents = identity.NewInMemory()
		log.Info("using in-memory stores")
	}

	// Redis, when configured, replaces the expiry index so sweeps survive
	// process restarts even with in-memory stores.
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		index = expiry.NewRedisIndex(redisClient.Client, "credreg")
		log.Info("using redis expiry index")
	}

	var publisher events.Publisher = events.Discard{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			return err
		}
		defer kafka.Close()
		publisher = kafka
		log.Info("publishing events to kafka", "topic", cfg.Kafka.Topic)
	}

	clock := chain.NewCounter()

	orgSvc := orgservice.New(orgs,
		orgservice.WithLogger(log),
		orgservice.WithPublisher(publisher),
		orgservice.WithMetrics(orgmetrics.New()),
	)
	certSvc := certservice.New(types, creds, index, orgSvc,
		certservice.WithLogger(log),
		certservice.WithPublisher(publisher),
		certservice.WithMetrics(certmetrics.New()),
	)
	didSvc := didservice.New(idents,
		didservice.WithLogger(log),
		didservice.WithPublisher(publisher),
		didservice.WithMetrics(didmetrics.New()),
	)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Orgs:       orgSvc,
		Certs:      certSvc,
		DIDs:       didSvc,
		Clock:      clock,
		SigningKey: []byte(cfg.JWTSigningKey),
		Logger:     log,
		Metrics:    platformmetrics.NewHTTP(),
	})
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// Block scheduler: advance the local height every interval and run the
	// expiry sweep against the new ledger time.
	g.Go(func() error {
		ticker := time.NewTicker(cfg.BlockInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case t := <-ticker.C:
				now := domain.MomentFromTime(t)
				block := clock.Advance(now)
				sweepCtx := chainctx.WithBlock(ctx, block)
				sweepCtx = chainctx.WithMoment(sweepCtx, now)
				if _, err := certSvc.Sweep(sweepCtx, now); err != nil {
					log.Error("expiry sweep failed", "block", block, "err", err)
				}
			}
		}
	})

	return g.Wait()
}
