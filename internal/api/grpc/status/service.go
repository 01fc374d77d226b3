package status

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "alarms.v1.StatusService"

	// GetStatusMethod is the full method name of GetStatus.
	GetStatusMethod = "/" + ServiceName + "/GetStatus"

	// RequesterHeader is the metadata key naming who asked for the status.
	RequesterHeader = "x-requested-by"
)

// StatusServer is the server API of the status service.
type StatusServer interface {
	GetStatus(ctx context.Context, req *emptypb.Empty) (*structpb.Struct, error)
}

// ServiceDesc describes the status service for grpc.Server.RegisterService.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StatusServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler:    getStatusHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "alarms/v1/status.proto",
}

// RegisterStatusServer registers srv on s.
func RegisterStatusServer(s grpc.ServiceRegistrar, srv StatusServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func getStatusHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(StatusServer).GetStatus(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetStatusMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(StatusServer).GetStatus(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}

// StatusClient is the client API of the status service.
type StatusClient struct {
	cc grpc.ClientConnInterface
}

// NewStatusClient creates a client on top of cc.
func NewStatusClient(cc grpc.ClientConnInterface) *StatusClient {
	return &StatusClient{cc: cc}
}

// GetStatus fetches the latest alarm snapshot.
func (c *StatusClient) GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetStatusMethod, in, out, opts...); err != nil {
		return nil, err
	}

	return out, nil
}
