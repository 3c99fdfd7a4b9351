package app

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
	"github.com/vladislavdragonenkov/ordersource/internal/metrics"
	"github.com/vladislavdragonenkov/ordersource/internal/repository"
	grpcsvc "github.com/vladislavdragonenkov/ordersource/internal/service/grpc"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/instrumented"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/memory"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/publishing"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/remote"
	ordersourcev1 "github.com/vladislavdragonenkov/ordersource/proto/ordersource/v1"
)

type lifecycleEvents struct {
	mu     sync.Mutex
	events []domain.OrderEvent
}

func (p *lifecycleEvents) PublishOrderEvent(_ context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *lifecycleEvents) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]domain.EventType, 0, len(p.events))
	for _, event := range p.events {
		types = append(types, event.EventType)
	}
	return types
}

// OrderLifecycleTestSuite прогоняет заказ через репозиторий клиента, gRPC и серверный стек декораторов.
type OrderLifecycleTestSuite struct {
	suite.Suite
	registry  *prometheus.Registry
	publisher *lifecycleEvents
	server    *grpc.Server
	client    *remote.OrderSource
	repo      *repository.OrderRepository
}

func (s *OrderLifecycleTestSuite) SetupTest() {
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "lifecycle-test")

	s.registry = prometheus.NewRegistry()
	s.publisher = &lifecycleEvents{}
	m := metrics.NewSourceMetricsWithRegisterer(s.registry)

	var source domain.OrderSource = memory.NewOrderSource()
	source = instrumented.New(source, string(StorageDriverMemory), m)
	source = publishing.New(source, s.publisher, m, logger)

	listener := bufconn.Listen(1024 * 1024)
	s.server = grpc.NewServer()
	ordersourcev1.RegisterOrderSourceServer(s.server, grpcsvc.NewOrderSourceService(source, logger))
	go func() {
		_ = s.server.Serve(listener)
	}()

	dialer := func(context.Context, string) (net.Conn, error) { return listener.Dial() }
	//nolint:staticcheck // grpc.Dial is required for bufconn testing
	conn, err := grpc.Dial("bufnet", grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	s.Require().NoError(err)

	s.client = remote.New(conn)
	s.repo = repository.NewOrderRepository(s.client)
}

func (s *OrderLifecycleTestSuite) TearDownTest() {
	_ = s.client.Close()
	s.server.Stop()
}

func (s *OrderLifecycleTestSuite) TestSaveUpdateDelete() {
	ctx := context.Background()

	order := domain.NewOrder("customer-42", "USD")
	order.AddItem(domain.Item{SKU: "laptop-pro", Title: "Laptop", PriceMinor: 199900})
	order.AddItem(domain.Item{SKU: "mouse", Title: "Mouse", PriceMinor: 2500})

	id, err := s.repo.Save(ctx, order)
	s.Require().NoError(err)
	s.Require().NotEmpty(id)
	s.Equal(id, order.ID)

	loaded, err := s.repo.Load(ctx, id)
	s.Require().NoError(err)
	s.Equal(int64(202400), loaded.CalculateTotalSum())
	s.Equal(order.Items(), loaded.Items())

	s.Require().True(loaded.DeleteItem(domain.Item{SKU: "mouse", Title: "Mouse", PriceMinor: 2500}))
	s.Require().NoError(s.repo.Update(ctx, loaded))

	updated, err := s.repo.Load(ctx, id)
	s.Require().NoError(err)
	s.Equal(1, updated.ItemCount())
	s.Equal(int64(199900), updated.CalculateTotalSum())

	s.Require().NoError(s.repo.Delete(ctx, updated))
	_, err = s.repo.Load(ctx, id)
	s.Require().ErrorIs(err, domain.ErrOrderNotFound)

	s.Equal([]domain.EventType{
		domain.EventTypeOrderSaved,
		domain.EventTypeOrderUpdated,
		domain.EventTypeOrderDeleted,
	}, s.publisher.types())

	count, err := testutil.GatherAndCount(s.registry, "ordersource_events_published_total")
	s.Require().NoError(err)
	s.Equal(3, count)
}

func (s *OrderLifecycleTestSuite) TestUpdateUnknownOrder() {
	ghost := domain.RestoreOrder("missing", "customer-1", "USD", time.Time{}, time.Time{}, nil)

	err := s.repo.Update(context.Background(), ghost)
	s.Require().ErrorIs(err, domain.ErrOrderNotFound)
	s.Empty(s.publisher.types())
}

func (s *OrderLifecycleTestSuite) TestDeleteIsIdempotent() {
	ctx := context.Background()

	order := domain.NewOrder("customer-7", "EUR")
	order.AddItem(domain.Item{SKU: "book", Title: "Book", PriceMinor: 1250})
	id, err := s.repo.Save(ctx, order)
	s.Require().NoError(err)

	s.Require().NoError(s.repo.Delete(ctx, order))
	s.Require().NoError(s.repo.Delete(ctx, order))

	_, err = s.repo.Load(ctx, id)
	s.Require().ErrorIs(err, domain.ErrOrderNotFound)
}

func TestOrderLifecycleSuite(t *testing.T) {
	suite.Run(t, new(OrderLifecycleTestSuite))
}

func TestOrderLifecycleSuite_OperationsCounted(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.NewSourceMetricsWithRegisterer(registry)
	source := instrumented.New(memory.NewOrderSource(), string(StorageDriverMemory), m)

	_, err := source.Load(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	count, err := testutil.GatherAndCount(registry, "ordersource_operations_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
