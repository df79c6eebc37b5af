package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = "recurring.v1.SchedulerService"

// Method names of SchedulerService
const (
	MethodGetDashboard         = "GetDashboard"
	MethodListMissedExecutions = "ListMissedExecutions"
	MethodRunDueSeries         = "RunDueSeries"
	MethodLinkTransactions     = "LinkTransactions"
	MethodUnlinkTransaction    = "UnlinkTransaction"
	MethodStartBudgetPeriod    = "StartBudgetPeriod"
	MethodCloseBudgetPeriod    = "CloseBudgetPeriod"
)

// SchedulerServiceServer is the server API of SchedulerService.
// Requests and responses are google.protobuf.Struct messages.
type SchedulerServiceServer interface {
	GetDashboard(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListMissedExecutions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	RunDueSeries(context.Context, *structpb.Struct) (*structpb.Struct, error)
	LinkTransactions(context.Context, *structpb.Struct) (*structpb.Struct, error)
	UnlinkTransaction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	StartBudgetPeriod(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CloseBudgetPeriod(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryMethod func(SchedulerServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, call unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			server := srv.(SchedulerServiceServer)
			if interceptor == nil {
				return call(server, ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(name),
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(server, ctx, req.(*structpb.Struct))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// FullMethod returns the "/service/method" path of a SchedulerService method
func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// SchedulerServiceDesc describes SchedulerService for grpc.ServiceRegistrar
var SchedulerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SchedulerServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler(MethodGetDashboard, SchedulerServiceServer.GetDashboard),
		unaryHandler(MethodListMissedExecutions, SchedulerServiceServer.ListMissedExecutions),
		unaryHandler(MethodRunDueSeries, SchedulerServiceServer.RunDueSeries),
		unaryHandler(MethodLinkTransactions, SchedulerServiceServer.LinkTransactions),
		unaryHandler(MethodUnlinkTransaction, SchedulerServiceServer.UnlinkTransaction),
		unaryHandler(MethodStartBudgetPeriod, SchedulerServiceServer.StartBudgetPeriod),
		unaryHandler(MethodCloseBudgetPeriod, SchedulerServiceServer.CloseBudgetPeriod),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "recurring/v1/scheduler.proto",
}

// RegisterSchedulerServiceServer registers srv on the registrar
func RegisterSchedulerServiceServer(s grpc.ServiceRegistrar, srv SchedulerServiceServer) {
	s.RegisterService(&SchedulerServiceDesc, srv)
}

// Client calls SchedulerService methods over an existing connection
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a new Client instance
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Call invokes method with a request built from fields
func (c *Client) Call(ctx context.Context, method string, fields map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, FullMethod(method), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
