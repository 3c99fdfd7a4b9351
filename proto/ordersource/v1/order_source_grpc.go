// Package ordersourcev1 описывает gRPC-контракт ordersource.v1.OrderSource
// (см. order_source.proto). Сообщения — только well-known типы protobuf,
// поэтому клиент и сервер описаны вручную без protoc-генерации.
package ordersourcev1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	OrderSource_ServiceName = "ordersource.v1.OrderSource"

	OrderSource_Load_FullMethodName   = "/ordersource.v1.OrderSource/Load"
	OrderSource_Save_FullMethodName   = "/ordersource.v1.OrderSource/Save"
	OrderSource_Update_FullMethodName = "/ordersource.v1.OrderSource/Update"
	OrderSource_Delete_FullMethodName = "/ordersource.v1.OrderSource/Delete"
)

// OrderSourceClient — клиентская часть сервиса OrderSource.
type OrderSourceClient interface {
	Load(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error)
	Save(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error)
	Update(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
	Delete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type orderSourceClient struct {
	cc grpc.ClientConnInterface
}

// NewOrderSourceClient создаёт клиента поверх готового соединения.
func NewOrderSourceClient(cc grpc.ClientConnInterface) OrderSourceClient {
	return &orderSourceClient{cc: cc}
}

func (c *orderSourceClient) Load(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, OrderSource_Load_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orderSourceClient) Save(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.StringValue, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, OrderSource_Save_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orderSourceClient) Update(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, OrderSource_Update_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orderSourceClient) Delete(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, OrderSource_Delete_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// OrderSourceServer — серверная часть сервиса OrderSource.
// Реализации должны встраивать UnimplementedOrderSourceServer.
type OrderSourceServer interface {
	Load(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	Save(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error)
	Update(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Delete(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	mustEmbedUnimplementedOrderSourceServer()
}

// UnimplementedOrderSourceServer отвечает Unimplemented на все методы.
type UnimplementedOrderSourceServer struct{}

func (UnimplementedOrderSourceServer) Load(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Load not implemented")
}

func (UnimplementedOrderSourceServer) Save(context.Context, *structpb.Struct) (*wrapperspb.StringValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Save not implemented")
}

func (UnimplementedOrderSourceServer) Update(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Update not implemented")
}

func (UnimplementedOrderSourceServer) Delete(context.Context, *structpb.Struct) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method Delete not implemented")
}

func (UnimplementedOrderSourceServer) mustEmbedUnimplementedOrderSourceServer() {}

// RegisterOrderSourceServer регистрирует реализацию на gRPC-сервере.
func RegisterOrderSourceServer(s grpc.ServiceRegistrar, srv OrderSourceServer) {
	s.RegisterService(&OrderSource_ServiceDesc, srv)
}

func _OrderSource_Load_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderSourceServer).Load(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: OrderSource_Load_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderSourceServer).Load(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func _OrderSource_Save_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderSourceServer).Save(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: OrderSource_Save_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderSourceServer).Save(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _OrderSource_Update_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderSourceServer).Update(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: OrderSource_Update_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderSourceServer).Update(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func _OrderSource_Delete_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderSourceServer).Delete(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: OrderSource_Delete_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OrderSourceServer).Delete(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// OrderSource_ServiceDesc — описание сервиса для grpc.ServiceRegistrar.
var OrderSource_ServiceDesc = grpc.ServiceDesc{
	ServiceName: OrderSource_ServiceName,
	HandlerType: (*OrderSourceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Load", Handler: _OrderSource_Load_Handler},
		{MethodName: "Save", Handler: _OrderSource_Save_Handler},
		{MethodName: "Update", Handler: _OrderSource_Update_Handler},
		{MethodName: "Delete", Handler: _OrderSource_Delete_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ordersource/v1/order_source.proto",
}
