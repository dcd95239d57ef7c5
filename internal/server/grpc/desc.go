package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Fully qualified names of the profile service.
const (
	ServiceName    = "profiled.v1.Profile"
	UpdateMeMethod = "/" + ServiceName + "/UpdateMe"
	GetMeMethod    = "/" + ServiceName + "/GetMe"
)

// ProfileServer is the server API of profiled.v1.Profile. Messages are
// well-known protobuf types, so no generated code is involved.
type ProfileServer interface {
	UpdateMe(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	GetMe(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// RegisterProfileServer registers srv on s.
func RegisterProfileServer(s grpc.ServiceRegistrar, srv ProfileServer) {
	s.RegisterService(&profileServiceDesc, srv)
}

var profileServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ProfileServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "UpdateMe", Handler: updateMeHandler},
		{MethodName: "GetMe", Handler: getMeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "profiled/v1/profile.proto",
}

func updateMeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProfileServer).UpdateMe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: UpdateMeMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ProfileServer).UpdateMe(ctx, req.(*structpb.Struct))
	})
}

func getMeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ProfileServer).GetMe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetMeMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ProfileServer).GetMe(ctx, req.(*emptypb.Empty))
	})
}

// ProfileClient calls profiled.v1.Profile over a client connection.
type ProfileClient struct {
	cc grpc.ClientConnInterface
}

// NewProfileClient wraps cc.
func NewProfileClient(cc grpc.ClientConnInterface) *ProfileClient {
	return &ProfileClient{cc: cc}
}

// UpdateMe sends a profile mutation.
func (c *ProfileClient) UpdateMe(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, UpdateMeMethod, in, new(emptypb.Empty), opts...)
}

// GetMe fetches the caller's profile.
func (c *ProfileClient) GetMe(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetMeMethod, new(emptypb.Empty), out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
