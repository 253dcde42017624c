package oddsserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "wargame.odds.v1.OddsService"

const (
	calculateMethod       = "/" + ServiceName + "/Calculate"
	calculateStreamMethod = "/" + ServiceName + "/CalculateStream"
	getRulesMethod        = "/" + ServiceName + "/GetRules"
	getStatsMethod        = "/" + ServiceName + "/GetStats"
)

// OddsServiceServer is the server API of the odds service. Messages are
// google.protobuf.Struct documents carrying the JSON form of the calculator
// request and response types.
type OddsServiceServer interface {
	Calculate(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CalculateStream(*structpb.Struct, OddsService_CalculateStreamServer) error
	GetRules(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetStats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

// OddsService_CalculateStreamServer sends progress snapshots and the final
// response of a streamed calculation.
type OddsService_CalculateStreamServer interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type calculateStreamServer struct {
	grpc.ServerStream
}

func (x *calculateStreamServer) Send(m *structpb.Struct) error {
	return x.ServerStream.SendMsg(m)
}

// ServiceDesc describes the odds service for grpc.Server registration.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OddsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Calculate", Handler: calculateHandler},
		{MethodName: "GetRules", Handler: getRulesHandler},
		{MethodName: "GetStats", Handler: getStatsHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "CalculateStream", Handler: calculateStreamHandler, ServerStreams: true},
	},
	Metadata: "wargame/odds/v1/odds.proto",
}

// RegisterOddsServiceServer registers srv on s.
func RegisterOddsServiceServer(s grpc.ServiceRegistrar, srv OddsServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func calculateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OddsServiceServer).Calculate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: calculateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OddsServiceServer).Calculate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getRulesHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OddsServiceServer).GetRules(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getRulesMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OddsServiceServer).GetRules(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getStatsHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OddsServiceServer).GetStats(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: getStatsMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(OddsServiceServer).GetStats(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func calculateStreamHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(OddsServiceServer).CalculateStream(in, &calculateStreamServer{stream})
}
