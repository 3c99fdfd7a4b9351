package ordersourcev1

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// File_ordersource_v1_order_source_proto — дескриптор order_source.proto,
// зарегистрированный в protoregistry.GlobalFiles для gRPC reflection.
var File_ordersource_v1_order_source_proto protoreflect.FileDescriptor

func init() {
	fd, err := newFileDescriptor(protoregistry.GlobalFiles)
	if err != nil {
		panic(err)
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("register %s: %v", fd.Path(), err))
	}
	File_ordersource_v1_order_source_proto = fd
}

// newFileDescriptor собирает то же описание, что лежит в order_source.proto.
func newFileDescriptor(resolver protodesc.Resolver) (protoreflect.FileDescriptor, error) {
	stringValue := typeName(&wrapperspb.StringValue{})
	orderStruct := typeName(&structpb.Struct{})
	empty := typeName(&emptypb.Empty{})

	method := func(name, input, output string) *descriptorpb.MethodDescriptorProto {
		return &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(name),
			InputType:  proto.String(input),
			OutputType: proto.String(output),
		}
	}

	file := &descriptorpb.FileDescriptorProto{
		Name:    proto.String(OrderSource_ServiceDesc.Metadata.(string)),
		Package: proto.String("ordersource.v1"),
		Syntax:  proto.String("proto3"),
		Dependency: []string{
			emptypb.File_google_protobuf_empty_proto.Path(),
			structpb.File_google_protobuf_struct_proto.Path(),
			wrapperspb.File_google_protobuf_wrappers_proto.Path(),
		},
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/vladislavdragonenkov/ordersource/proto/ordersource/v1;ordersourcev1"),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("OrderSource"),
			Method: []*descriptorpb.MethodDescriptorProto{
				method("Load", stringValue, orderStruct),
				method("Save", orderStruct, stringValue),
				method("Update", orderStruct, empty),
				method("Delete", orderStruct, empty),
			},
		}},
	}

	fd, err := protodesc.NewFile(file, resolver)
	if err != nil {
		return nil, fmt.Errorf("build %s descriptor: %w", file.GetName(), err)
	}
	return fd, nil
}

func typeName(m proto.Message) string {
	return "." + string(m.ProtoReflect().Descriptor().FullName())
}
