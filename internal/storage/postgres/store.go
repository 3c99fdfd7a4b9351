package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultMaxConns        = 25
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute
	defaultApplicationName = "ordersource"
)

var errStoreNotInitialized = errors.New("postgres store is not initialized")

// poolOptions задаёт параметры пула database/sql.
type poolOptions struct {
	maxConns        int
	connMaxLifetime time.Duration
	connMaxIdleTime time.Duration
}

// StoreOption настраивает подключение Store.
type StoreOption func(*poolOptions)

// WithMaxConns ограничивает число открытых и простаивающих соединений. Значения <= 0 игнорируются.
func WithMaxConns(n int) StoreOption {
	return func(o *poolOptions) {
		if n > 0 {
			o.maxConns = n
		}
	}
}

// WithConnLifetime задаёт время жизни соединения и допустимый простой.
func WithConnLifetime(lifetime, idle time.Duration) StoreOption {
	return func(o *poolOptions) {
		if lifetime > 0 {
			o.connMaxLifetime = lifetime
		}
		if idle > 0 {
			o.connMaxIdleTime = idle
		}
	}
}

// Store держит пул соединений с PostgreSQL и применяет миграции схемы заказов.
type Store struct {
	db     *sql.DB
	logger *log.Entry
}

// Open разбирает DSN, открывает пул через pgx и проверяет доступность базы.
func Open(ctx context.Context, dsn string, opts ...StoreOption) (*Store, error) {
	connConfig, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if connConfig.RuntimeParams["application_name"] == "" {
		connConfig.RuntimeParams["application_name"] = defaultApplicationName
	}

	pool := poolOptions{
		maxConns:        defaultMaxConns,
		connMaxLifetime: defaultConnMaxLifetime,
		connMaxIdleTime: defaultConnMaxIdleTime,
	}
	for _, opt := range opts {
		opt(&pool)
	}

	db := stdlib.OpenDB(*connConfig)
	db.SetMaxOpenConns(pool.maxConns)
	db.SetMaxIdleConns(pool.maxConns)
	db.SetConnMaxLifetime(pool.connMaxLifetime)
	db.SetConnMaxIdleTime(pool.connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres %s:%d: %w", connConfig.Host, connConfig.Port, err)
	}

	logger := log.WithFields(log.Fields{
		"component": "postgres-store",
		"host":      connConfig.Host,
		"database":  connConfig.Database,
	})
	logger.WithField("max_conns", pool.maxConns).Debug("postgres pool opened")

	return &Store{db: db, logger: logger}, nil
}

// DB отдаёт пул для хранилища заказов и тестов.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping используется health-проверкой storage.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// Close закрывает пул; nil-безопасен.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
