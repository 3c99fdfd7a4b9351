package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/ordersource/internal/health"
	"github.com/vladislavdragonenkov/ordersource/internal/metrics"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/cache"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/instrumented"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/memory"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/postgres"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/remote"
	"github.com/vladislavdragonenkov/ordersource/internal/version"
)

const storageInitTimeout = 10 * time.Second

// runtimeDependencies — собранный стек хранилища и его служебные хуки.
type runtimeDependencies struct {
	source  domain.OrderSource
	checks  map[string]healthcheck.Checker
	closers []func() error
}

// initRuntimeDependencies собирает хранилище по конфигурации:
// бэкенд → метрики → кэш (если задан Redis).
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry, m *metrics.SourceMetrics) (*runtimeDependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	deps := &runtimeDependencies{checks: make(map[string]healthcheck.Checker)}

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		deps.source = memory.NewOrderSource()
		deps.checks["storage"] = healthcheck.NewSimpleChecker("storage", func(context.Context) error { return nil })
		logger.Info("using in-memory storage")

	case StorageDriverPostgres:
		dsn := strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			return nil, errors.New("postgres storage requires dsn")
		}

		initCtx, cancel := context.WithTimeout(ctx, storageInitTimeout)
		defer cancel()

		store, err := postgres.Open(initCtx, dsn, postgres.WithMaxConns(cfg.PostgresMaxConns))
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(initCtx, 0); err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("migrate postgres: %w", err)
			}
		}
		deps.source = postgres.NewOrderSource(store)
		deps.checks["storage"] = healthcheck.NewSimpleChecker("storage", store.Ping)
		deps.closers = append(deps.closers, store.Close)
		logger.WithField("auto_migrate", cfg.PostgresAutoMigrate).Info("using postgres storage")

	case StorageDriverRemote:
		target := strings.TrimSpace(cfg.RemoteTarget)
		if target == "" {
			return nil, errors.New("remote storage requires target")
		}

		client, err := remote.Dial(target, []grpc.DialOption{
			grpc.WithUserAgent(version.UserAgent("order-source")),
		})
		if err != nil {
			return nil, err
		}
		deps.source = client
		deps.checks["storage"] = healthcheck.NewSimpleChecker("storage", client.Ping)
		deps.closers = append(deps.closers, client.Close)
		logger.WithField("target", target).Info("using remote storage")

	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}

	if m != nil {
		deps.source = instrumented.New(deps.source, string(cfg.StorageDriver), m)
	}

	if cfg.RedisAddr != "" {
		client := cache.NewClient(cfg.RedisAddr)
		deps.source = cache.New(deps.source, client, cfg.CacheTTL, logger.WithField("layer", "cache"))
		deps.checks["cache"] = healthcheck.NewOptionalChecker("cache", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		deps.closers = append(deps.closers, client.Close)
		logger.WithFields(log.Fields{
			"addr": cfg.RedisAddr,
			"ttl":  cfg.CacheTTL,
		}).Info("redis cache enabled")
	}

	return deps, nil
}

// Close освобождает ресурсы в обратном порядке.
func (d *runtimeDependencies) Close(logger *log.Entry) {
	if d == nil {
		return
	}
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil && logger != nil {
			logger.WithError(err).Warn("failed to close dependency")
		}
	}
	d.closers = nil
}
