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

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"pharmledger/internal/audit"
	"pharmledger/internal/batch"
	"pharmledger/internal/blobstore"
	"pharmledger/internal/credential"
	ledgerhttp "pharmledger/internal/http"
	"pharmledger/internal/platform/config"
	"pharmledger/internal/platform/httpserver"
	"pharmledger/internal/platform/logger"
	"pharmledger/internal/platform/metrics"
	"pharmledger/internal/platform/redis"
	"pharmledger/internal/prescription"
	"pharmledger/internal/roles"
	"pharmledger/internal/transfer"
	id "pharmledger/pkg/domain"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal services.
func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()
	slog.SetDefault(log)

	admin, err := id.ParseAccount(cfg.AdminAddr)
	if err != nil {
		return fmt.Errorf("PHARMLEDGER_ADMIN_ADDR: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	auditor := audit.NewPublisher(cfg.AuditBuffer, log)
	producer, err := audit.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	if err != nil {
		return fmt.Errorf("audit producer: %w", err)
	}

	cache, err := redis.New(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	if cache != nil {
		defer cache.Close()
	}

	stores, db, err := openStores(ctx, cfg.PostgresDSN)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	roleSvc := roles.NewService(stores.roles, admin, auditor, m, log)
	batchSvc := batch.NewService(stores.batches, roleSvc, auditor, m, log)
	prescriptionSvc := prescription.NewService(stores.prescriptions, roleSvc, batchSvc, auditor, m, log)
	transferSvc := transfer.NewService(stores.transfers, roleSvc, batchSvc, auditor, m, log)
	credentialSvc := credential.NewService(stores.credentials, roleSvc, auditor, m, log)
	blobs := blobstore.New(cfg.PinataBaseURL, cfg.PinataJWT, cfg.GatewayURL, cache, log)

	router := ledgerhttp.New(ledgerhttp.Deps{
		Logger:        log,
		JWTSigningKey: cfg.JWTSigningKey,
		Roles:         roles.NewHandler(roleSvc, log),
		Batches:       batch.NewHandler(batchSvc, log),
		Prescriptions: prescription.NewHandler(prescriptionSvc, log),
		Transfers:     transfer.NewHandler(transferSvc, log),
		Credentials:   credential.NewHandler(credentialSvc, log),
		Files:         blobstore.NewHandler(blobs, log),
		Health:        healthHandler(db, cache),
	})
	srv := httpserver.New(cfg.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting pharmledger", "addr", cfg.Addr, "durable", db != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if producer != nil {
		defer producer.Close()
		worker := audit.NewWorker(producer, auditor.Inbox(), log)
		group.Go(func() error {
			if err := worker.Run(groupCtx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("audit worker: %w", err)
			}
			return nil
		})
	}

	return group.Wait()
}

// storeSet bundles one store per registry so run() wires either the durable
// or the in-memory variants as a unit.
type storeSet struct {
	roles         roles.Store
	batches       batch.Store
	prescriptions prescription.Store
	transfers     transfer.Store
	credentials   credential.Store
}

func openStores(ctx context.Context, dsn string) (storeSet, *sql.DB, error) {
	if dsn == "" {
		return storeSet{
			roles:         roles.NewInMemory(),
			batches:       batch.NewInMemory(),
			prescriptions: prescription.NewInMemory(),
			transfers:     transfer.NewInMemory(),
			credentials:   credential.NewInMemory(),
		}, nil, nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return storeSet{}, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return storeSet{}, nil, fmt.Errorf("ping postgres: %w", err)
	}

	roleStore := roles.NewPostgres(db)
	batchStore := batch.NewPostgres(db)
	prescriptionStore := prescription.NewPostgres(db)
	transferStore := transfer.NewPostgres(db)
	credentialStore := credential.NewPostgres(db)
	for _, ensure := range []func(context.Context) error{
		roleStore.EnsureSchema,
		batchStore.EnsureSchema,
		prescriptionStore.EnsureSchema,
		transferStore.EnsureSchema,
		credentialStore.EnsureSchema,
	} {
		if err := ensure(ctx); err != nil {
			db.Close()
			return storeSet{}, nil, err
		}
	}
	return storeSet{
		roles:         roleStore,
		batches:       batchStore,
		prescriptions: prescriptionStore,
		transfers:     transferStore,
		credentials:   credentialStore,
	}, db, nil
}

func healthHandler(db *sql.DB, cache *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := db.PingContext(r.Context()); err != nil {
				http.Error(w, `{"status":"degraded"}`, http.StatusServiceUnavailable)
				return
			}
		}
		if cache != nil {
			if err := cache.Health(r.Context()); err != nil {
				http.Error(w, `{"status":"degraded"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}
