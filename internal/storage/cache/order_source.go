// Package cache добавляет к любому OrderSource слой кэширования в Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
)

const (
	keyPrefix  = "ordersource:order:"
	defaultTTL = 5 * time.Minute
)

// cachedOrder — представление заказа в Redis.
type cachedOrder struct {
	ID         string        `json:"id"`
	CustomerID string        `json:"customer_id"`
	Currency   string        `json:"currency"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
	Items      []domain.Item `json:"items"`
}

// OrderSource кэширует результаты Load вложенного хранилища.
// Ошибки Redis только логируются: источником истины остаётся вложенное хранилище.
type OrderSource struct {
	inner  domain.OrderSource
	client redis.Cmdable
	ttl    time.Duration
	logger *log.Entry
}

// New оборачивает inner кэшем. ttl<=0 заменяется значением по умолчанию.
func New(inner domain.OrderSource, client redis.Cmdable, ttl time.Duration, logger *log.Entry) *OrderSource {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = log.WithField("component", "order-cache")
	}
	return &OrderSource{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// NewClient создаёт Redis-клиента с таймаутами, подходящими для кэша.
func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		MaxRetries:   1,
	})
}

func (s *OrderSource) Load(ctx context.Context, id string) (*domain.Order, error) {
	if order, ok := s.get(ctx, id); ok {
		return order, nil
	}

	order, err := s.inner.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	s.put(ctx, order)
	return order, nil
}

func (s *OrderSource) Save(ctx context.Context, order *domain.Order) (string, error) {
	id, err := s.inner.Save(ctx, order)
	if err != nil {
		return "", err
	}
	s.put(ctx, order)
	return id, nil
}

func (s *OrderSource) Update(ctx context.Context, order *domain.Order) error {
	if err := s.inner.Update(ctx, order); err != nil {
		return err
	}
	s.invalidate(ctx, order.ID)
	return nil
}

func (s *OrderSource) Delete(ctx context.Context, order *domain.Order) error {
	if err := s.inner.Delete(ctx, order); err != nil {
		return err
	}
	s.invalidate(ctx, order.ID)
	return nil
}

func (s *OrderSource) get(ctx context.Context, id string) (*domain.Order, bool) {
	data, err := s.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		s.logger.WithError(err).WithField("order_id", id).Warn("redis get failed")
		return nil, false
	}

	var cached cachedOrder
	if err := json.Unmarshal(data, &cached); err != nil {
		s.logger.WithError(err).WithField("order_id", id).Warn("drop malformed cache entry")
		s.invalidate(ctx, id)
		return nil, false
	}
	return domain.RestoreOrder(cached.ID, cached.CustomerID, cached.Currency, cached.CreatedAt, cached.UpdatedAt, cached.Items), true
}

func (s *OrderSource) put(ctx context.Context, order *domain.Order) {
	data, err := json.Marshal(cachedOrder{
		ID:         order.ID,
		CustomerID: order.CustomerID,
		Currency:   order.Currency,
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  order.UpdatedAt,
		Items:      order.Items(),
	})
	if err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("marshal order for cache")
		return
	}
	if err := s.client.Set(ctx, cacheKey(order.ID), data, s.ttl).Err(); err != nil {
		s.logger.WithError(err).WithField("order_id", order.ID).Warn("redis set failed")
	}
}

func (s *OrderSource) invalidate(ctx context.Context, id string) {
	if err := s.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		s.logger.WithError(err).WithField("order_id", id).Warn("redis del failed")
	}
}

func cacheKey(id string) string {
	return keyPrefix + id
}

var _ domain.OrderSource = (*OrderSource)(nil)
