package grpcsvc_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/ordersource/internal/service/grpc"
	"github.com/vladislavdragonenkov/ordersource/internal/storage/memory"
	ordersourcev1 "github.com/vladislavdragonenkov/ordersource/proto/ordersource/v1"
)

const bufSize = 1024 * 1024

func newTestServer(t *testing.T, source domain.OrderSource) ordersourcev1.OrderSourceClient {
	t.Helper()

	listener := bufconn.Listen(bufSize)
	logger := loggerForTests()
	service := grpcsvc.NewOrderSourceService(source, logger)

	server := grpc.NewServer()
	ordersourcev1.RegisterOrderSourceServer(server, service)

	go func() {
		if err := server.Serve(listener); err != nil {
			logger.WithError(err).Error("grpc serve failed")
		}
	}()

	dialer := func(context.Context, string) (net.Conn, error) {
		return listener.Dial()
	}

	//nolint:staticcheck // grpc.Dial is required for bufconn testing
	conn, err := grpc.Dial("bufnet", grpc.WithContextDialer(dialer), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		server.Stop()
	})

	return ordersourcev1.NewOrderSourceClient(conn)
}

func loggerForTests() *logrus.Entry {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: false, DisableTimestamp: true})
	logger.SetLevel(logrus.DebugLevel)
	return logger.WithField("component", "test")
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func sampleOrder() *domain.Order {
	order := domain.NewOrder("customer-1", "USD")
	order.AddItem(domain.Item{SKU: "sku-1", Title: "Widget", PriceMinor: 1000})
	order.AddItem(domain.Item{SKU: "sku-2", Title: "Gadget", PriceMinor: 550})
	return order
}

type failingSource struct {
	err error
}

func (f failingSource) Load(context.Context, string) (*domain.Order, error) { return nil, f.err }

func (f failingSource) Save(context.Context, *domain.Order) (string, error) { return "", f.err }

func (f failingSource) Update(context.Context, *domain.Order) error { return f.err }

func (f failingSource) Delete(context.Context, *domain.Order) error { return f.err }

func TestOrderSourceService_SaveAndLoad(t *testing.T) {
	client := newTestServer(t, memory.NewOrderSource())
	ctx := testContext(t)

	saved, err := client.Save(ctx, ordersourcev1.OrderToStruct(sampleOrder()))
	require.NoError(t, err)
	require.NotEmpty(t, saved.GetValue())

	loaded, err := client.Load(ctx, wrapperspb.String(saved.GetValue()))
	require.NoError(t, err)

	order, err := ordersourcev1.OrderFromStruct(loaded)
	require.NoError(t, err)
	require.Equal(t, saved.GetValue(), order.ID)
	require.Equal(t, "customer-1", order.CustomerID)
	require.Equal(t, 2, order.ItemCount())
	require.Equal(t, int64(1550), order.CalculateTotalSum())
	require.False(t, order.CreatedAt.IsZero())
}

func TestOrderSourceService_UpdateAndDelete(t *testing.T) {
	client := newTestServer(t, memory.NewOrderSource())
	ctx := testContext(t)

	order := sampleOrder()
	saved, err := client.Save(ctx, ordersourcev1.OrderToStruct(order))
	require.NoError(t, err)
	order.ID = saved.GetValue()

	order.AddItem(domain.Item{SKU: "sku-3", PriceMinor: 1})
	_, err = client.Update(ctx, ordersourcev1.OrderToStruct(order))
	require.NoError(t, err)

	loaded, err := client.Load(ctx, wrapperspb.String(order.ID))
	require.NoError(t, err)
	updated, err := ordersourcev1.OrderFromStruct(loaded)
	require.NoError(t, err)
	require.Equal(t, int64(1551), updated.CalculateTotalSum())

	_, err = client.Delete(ctx, ordersourcev1.OrderToStruct(order))
	require.NoError(t, err)
	_, err = client.Delete(ctx, ordersourcev1.OrderToStruct(order))
	require.NoError(t, err)

	_, err = client.Load(ctx, wrapperspb.String(order.ID))
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestOrderSourceService_NotFound(t *testing.T) {
	client := newTestServer(t, memory.NewOrderSource())
	ctx := testContext(t)

	_, err := client.Load(ctx, wrapperspb.String("missing"))
	require.Equal(t, codes.NotFound, status.Code(err))

	missing := sampleOrder()
	missing.ID = "missing"
	_, err = client.Update(ctx, ordersourcev1.OrderToStruct(missing))
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestOrderSourceService_InvalidPayload(t *testing.T) {
	client := newTestServer(t, memory.NewOrderSource())
	ctx := testContext(t)

	bad := &structpb.Struct{Fields: map[string]*structpb.Value{
		"id": structpb.NewNumberValue(42),
	}}

	_, err := client.Save(ctx, bad)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	_, err = client.Update(ctx, bad)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	_, err = client.Delete(ctx, bad)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestOrderSourceService_InternalErrorsAreMasked(t *testing.T) {
	client := newTestServer(t, failingSource{err: errors.New("disk on fire")})
	ctx := testContext(t)

	_, err := client.Load(ctx, wrapperspb.String("order-1"))
	require.Equal(t, codes.Internal, status.Code(err))
	require.NotContains(t, err.Error(), "disk on fire")

	_, err = client.Save(ctx, ordersourcev1.OrderToStruct(sampleOrder()))
	require.Equal(t, codes.Internal, status.Code(err))
}

func TestOrderSourceService_DeadlineExceeded(t *testing.T) {
	client := newTestServer(t, failingSource{err: context.DeadlineExceeded})
	ctx := testContext(t)

	_, err := client.Load(ctx, wrapperspb.String("order-1"))
	require.Equal(t, codes.DeadlineExceeded, status.Code(err))
}
