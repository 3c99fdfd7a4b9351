// Package remote реализует OrderSource поверх удалённого gRPC-сервиса ordersource.v1.OrderSource.
package remote

import (
	"context"
	"fmt"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
	ordersourcev1 "github.com/vladislavdragonenkov/ordersource/proto/ordersource/v1"
)

const defaultCallTimeout = 5 * time.Second

// OrderSource — клиент удалённого хранилища заказов.
type OrderSource struct {
	client  ordersourcev1.OrderSourceClient
	health  healthpb.HealthClient
	conn    *grpc.ClientConn
	timeout time.Duration
}

// Option настраивает клиента.
type Option func(*OrderSource)

// WithCallTimeout задаёт таймаут одного вызова.
func WithCallTimeout(timeout time.Duration) Option {
	return func(s *OrderSource) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// New создаёт клиента поверх готового соединения. Соединением владеет вызывающий.
func New(cc grpc.ClientConnInterface, opts ...Option) *OrderSource {
	s := &OrderSource{
		client:  ordersourcev1.NewOrderSourceClient(cc),
		health:  healthpb.NewHealthClient(cc),
		timeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial открывает соединение с сервисом по адресу target.
// Без дополнительных опций используется незашифрованный транспорт.
func Dial(target string, dialOpts []grpc.DialOption, opts ...Option) (*OrderSource, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(grpc_prometheus.UnaryClientInterceptor),
	}
	conn, err := grpc.NewClient(target, append(base, dialOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", domain.ErrTransportFailure, target, err)
	}

	s := New(conn, opts...)
	s.conn = conn
	return s, nil
}

// Close закрывает соединение, если клиент создан через Dial.
func (s *OrderSource) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Ping запрашивает gRPC health-статус удалённого сервиса.
func (s *OrderSource) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("%w: health check: %v", domain.ErrTransportFailure, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("%w: remote status %s", domain.ErrTransportFailure, resp.GetStatus())
	}
	return nil
}

func (s *OrderSource) Load(ctx context.Context, id string) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.load(ctx, id)
}

func (s *OrderSource) load(ctx context.Context, id string) (*domain.Order, error) {
	resp, err := s.client.Load(ctx, wrapperspb.String(id))
	if err != nil {
		return nil, mapError("load order", err)
	}

	order, err := ordersourcev1.OrderFromStruct(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: decode order: %v", domain.ErrTransportFailure, err)
	}
	return order, nil
}

// syncTimestamps переносит в order время создания и изменения, выставленные сервером.
// Save и Update возвращают только id/Empty, поэтому состояние перечитывается.
func (s *OrderSource) syncTimestamps(ctx context.Context, order *domain.Order, operation string) error {
	stored, err := s.load(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("%s: reload %s: %w", operation, order.ID, err)
	}
	order.CreatedAt = stored.CreatedAt
	order.UpdatedAt = stored.UpdatedAt
	return nil
}

func (s *OrderSource) Save(ctx context.Context, order *domain.Order) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Save(ctx, ordersourcev1.OrderToStruct(order))
	if err != nil {
		return "", mapError("save order", err)
	}
	if resp.GetValue() == "" {
		return "", fmt.Errorf("%w: save order: empty id in response", domain.ErrTransportFailure)
	}

	order.ID = resp.GetValue()
	if err := s.syncTimestamps(ctx, order, "save order"); err != nil {
		return order.ID, err
	}
	return order.ID, nil
}

func (s *OrderSource) Update(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.client.Update(ctx, ordersourcev1.OrderToStruct(order)); err != nil {
		return mapError("update order", err)
	}
	return s.syncTimestamps(ctx, order, "update order")
}

func (s *OrderSource) Delete(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.client.Delete(ctx, ordersourcev1.OrderToStruct(order)); err != nil {
		return mapError("delete order", err)
	}
	return nil
}

// mapError переводит gRPC-статус в доменную ошибку.
// NotFound — единственный код, который не считается сбоем транспорта.
func mapError(operation string, err error) error {
	st, _ := status.FromError(err)
	if st.Code() == codes.NotFound {
		return domain.ErrOrderNotFound
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrTransportFailure, operation, st.Err())
}

var _ domain.OrderSource = (*OrderSource)(nil)
