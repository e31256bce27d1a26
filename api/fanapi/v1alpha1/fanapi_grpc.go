package fanapiv1alpha1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The service only carries well-known types, so the descriptor is maintained by hand.
// Keep it in sync with fanapi.proto.

const ServiceName = "gboxfan.fanapi.v1alpha1.FanService"

const (
	FanService_GetMode_FullMethodName       = "/gboxfan.fanapi.v1alpha1.FanService/GetMode"
	FanService_SetMode_FullMethodName       = "/gboxfan.fanapi.v1alpha1.FanService/SetMode"
	FanService_GetStatus_FullMethodName     = "/gboxfan.fanapi.v1alpha1.FanService/GetStatus"
	FanService_WaitForUpdate_FullMethodName = "/gboxfan.fanapi.v1alpha1.FanService/WaitForUpdate"
)

// FanServiceClient is the client API for FanService.
type FanServiceClient interface {
	GetMode(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.Int32Value, error)
	SetMode(ctx context.Context, in *wrapperspb.Int32Value, opts ...grpc.CallOption) (*emptypb.Empty, error)
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	WaitForUpdate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
}

type fanServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewFanServiceClient(cc grpc.ClientConnInterface) FanServiceClient {
	return &fanServiceClient{cc}
}

func (c *fanServiceClient) GetMode(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*wrapperspb.Int32Value, error) {
	out := new(wrapperspb.Int32Value)
	if err := c.cc.Invoke(ctx, FanService_GetMode_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *fanServiceClient) SetMode(ctx context.Context, in *wrapperspb.Int32Value, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	out := new(emptypb.Empty)
	if err := c.cc.Invoke(ctx, FanService_SetMode_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *fanServiceClient) GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FanService_GetStatus_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *fanServiceClient) WaitForUpdate(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FanService_WaitForUpdate_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// FanServiceServer is the server API for FanService.
// All implementations must embed UnimplementedFanServiceServer for forward compatibility.
type FanServiceServer interface {
	GetMode(context.Context, *emptypb.Empty) (*wrapperspb.Int32Value, error)
	SetMode(context.Context, *wrapperspb.Int32Value) (*emptypb.Empty, error)
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	WaitForUpdate(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	mustEmbedUnimplementedFanServiceServer()
}

// UnimplementedFanServiceServer must be embedded to have forward compatible implementations.
type UnimplementedFanServiceServer struct{}

func (UnimplementedFanServiceServer) GetMode(context.Context, *emptypb.Empty) (*wrapperspb.Int32Value, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetMode not implemented")
}

func (UnimplementedFanServiceServer) SetMode(context.Context, *wrapperspb.Int32Value) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SetMode not implemented")
}

func (UnimplementedFanServiceServer) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetStatus not implemented")
}

func (UnimplementedFanServiceServer) WaitForUpdate(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Errorf(codes.Unimplemented, "method WaitForUpdate not implemented")
}

func (UnimplementedFanServiceServer) mustEmbedUnimplementedFanServiceServer() {}

func RegisterFanServiceServer(s grpc.ServiceRegistrar, srv FanServiceServer) {
	s.RegisterService(&FanService_ServiceDesc, srv)
}

func _FanService_GetMode_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FanServiceServer).GetMode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FanService_GetMode_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FanServiceServer).GetMode(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _FanService_SetMode_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.Int32Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FanServiceServer).SetMode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FanService_SetMode_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FanServiceServer).SetMode(ctx, req.(*wrapperspb.Int32Value))
	}
	return interceptor(ctx, in, info, handler)
}

func _FanService_GetStatus_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FanServiceServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FanService_GetStatus_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FanServiceServer).GetStatus(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _FanService_WaitForUpdate_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(FanServiceServer).WaitForUpdate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: FanService_WaitForUpdate_FullMethodName,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(FanServiceServer).WaitForUpdate(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// FanService_ServiceDesc is the grpc.ServiceDesc for FanService.
var FanService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FanServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetMode",
			Handler:    _FanService_GetMode_Handler,
		},
		{
			MethodName: "SetMode",
			Handler:    _FanService_SetMode_Handler,
		},
		{
			MethodName: "GetStatus",
			Handler:    _FanService_GetStatus_Handler,
		},
		{
			MethodName: "WaitForUpdate",
			Handler:    _FanService_WaitForUpdate_Handler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/fanapi/v1alpha1/fanapi.proto",
}
