package grpcsvc

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/vladislavdragonenkov/ordersource/internal/domain"
	ordersourcev1 "github.com/vladislavdragonenkov/ordersource/proto/ordersource/v1"
)

// OrderSourceService публикует любое хранилище заказов как gRPC-сервис ordersource.v1.OrderSource.
type OrderSourceService struct {
	ordersourcev1.UnimplementedOrderSourceServer

	source domain.OrderSource
	logger *log.Entry
}

// NewOrderSourceService конструирует сервис поверх хранилища.
func NewOrderSourceService(source domain.OrderSource, logger *log.Entry) *OrderSourceService {
	if logger == nil {
		logger = log.New().WithField("component", "order-source-service")
	}
	return &OrderSourceService{
		source: source,
		logger: logger,
	}
}

// Load возвращает заказ по идентификатору.
func (s *OrderSourceService) Load(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	id := req.GetValue()
	order, err := s.source.Load(ctx, id)
	if err != nil {
		return nil, s.toStatus(err, "load", id)
	}
	return ordersourcev1.OrderToStruct(order), nil
}

// Save сохраняет заказ и возвращает выданный идентификатор.
func (s *OrderSourceService) Save(ctx context.Context, req *structpb.Struct) (*wrapperspb.StringValue, error) {
	order, err := ordersourcev1.OrderFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	id, err := s.source.Save(ctx, order)
	if err != nil {
		return nil, s.toStatus(err, "save", "")
	}
	s.logger.WithFields(log.Fields{
		"order_id":   id,
		"item_count": order.ItemCount(),
	}).Debug("order saved")
	return wrapperspb.String(id), nil
}

// Update перезаписывает заказ.
func (s *OrderSourceService) Update(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	order, err := ordersourcev1.OrderFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err := s.source.Update(ctx, order); err != nil {
		return nil, s.toStatus(err, "update", order.ID)
	}
	return &emptypb.Empty{}, nil
}

// Delete удаляет заказ. Отсутствующий заказ не считается ошибкой.
func (s *OrderSourceService) Delete(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	order, err := ordersourcev1.OrderFromStruct(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if err := s.source.Delete(ctx, order); err != nil {
		return nil, s.toStatus(err, "delete", order.ID)
	}
	return &emptypb.Empty{}, nil
}

func (s *OrderSourceService) toStatus(err error, operation, orderID string) error {
	entry := s.logger.WithError(err).WithFields(log.Fields{
		"operation": operation,
		"order_id":  orderID,
	})

	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		entry.Debug("order not found")
		return status.Error(codes.NotFound, domain.ErrOrderNotFound.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		entry.Warn("order source timed out")
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		entry.Error("order source failed")
		return status.Error(codes.Internal, "order source failed")
	}
}

var _ ordersourcev1.OrderSourceServer = (*OrderSourceService)(nil)
