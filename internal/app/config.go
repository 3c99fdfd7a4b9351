package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	log "github.com/sirupsen/logrus"
)

// EnvPrefix — общий префикс переменных окружения сервиса.
const EnvPrefix = "ORDERSOURCE_"

// StorageDriver задаёт бэкенд хранилища заказов.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
	StorageDriverRemote   StorageDriver = "remote"
)

// Config описывает настройки запуска приложения.
type Config struct {
	GRPCAddr    string `env:"GRPC_ADDR" envDefault:":50051"`
	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9090"`

	StorageDriver       StorageDriver `env:"STORAGE_DRIVER" envDefault:"memory"`
	PostgresDSN         string        `env:"POSTGRES_DSN"`
	PostgresAutoMigrate bool          `env:"POSTGRES_AUTO_MIGRATE" envDefault:"true"`
	PostgresMaxConns    int           `env:"POSTGRES_MAX_CONNS" envDefault:"25"`
	RemoteTarget        string        `env:"REMOTE_TARGET"`

	// Пустой адрес отключает кэш.
	RedisAddr string        `env:"REDIS_ADDR"`
	CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	// Пустой список отключает публикацию событий.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"ordersource.order.events"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// DefaultConfig возвращает значения по умолчанию, совпадающие с envDefault.
func DefaultConfig() Config {
	return Config{
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		PostgresMaxConns:    25,
		CacheTTL:            5 * time.Minute,
		KafkaTopic:          "ordersource.order.events",
		LogLevel:            "info",
	}
}

// LoadConfig читает конфигурацию из набора переменных окружения.
// Nil-карта трактуется как пустое окружение.
func LoadConfig(environ map[string]string) (Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{
		Environment: environ,
		Prefix:      EnvPrefix,
	}); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.KafkaBrokers = normalizeBrokers(cfg.KafkaBrokers)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("postgres storage requires POSTGRES_DSN"))
		}
		if c.PostgresMaxConns <= 0 {
			errs = append(errs, errors.New("postgres max conns must be positive"))
		}
	case StorageDriverRemote:
		if strings.TrimSpace(c.RemoteTarget) == "" {
			errs = append(errs, errors.New("remote storage requires REMOTE_TARGET"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	if c.RedisAddr != "" && c.CacheTTL <= 0 {
		errs = append(errs, errors.New("cache ttl must be positive"))
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}

	return errors.Join(errs...)
}

// ConfigureLogging настраивает глобальный logrus по конфигурации.
func ConfigureLogging(cfg Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return nil
}

func normalizeBrokers(brokers []string) []string {
	var out []string
	for _, broker := range brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			out = append(out, broker)
		}
	}
	return out
}
