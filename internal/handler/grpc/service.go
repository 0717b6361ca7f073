package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the full name of the TabGeo service.
const ServiceName = "hostgeo.v1.TabGeo"

// TabGeoServer is the server API of the TabGeo service. Messages are
// google.protobuf.Struct so clients need no generated code.
type TabGeoServer interface {
	Open(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SwitchSource(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CaptureResponse(context.Context, *structpb.Struct) (*structpb.Struct, error)
	CloseTab(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var _ TabGeoServer = (*Handler)(nil)

type unaryMethod func(TabGeoServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(name string, m unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return m(srv.(TabGeoServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + name,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return m(srv.(TabGeoServer), ctx, req.(*structpb.Struct))
			})
		},
	}
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TabGeoServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("Open", TabGeoServer.Open),
		unaryHandler("SwitchSource", TabGeoServer.SwitchSource),
		unaryHandler("GetState", TabGeoServer.GetState),
		unaryHandler("CaptureResponse", TabGeoServer.CaptureResponse),
		unaryHandler("CloseTab", TabGeoServer.CloseTab),
	},
	Metadata: "hostgeo/v1/tabgeo.proto",
}

// RegisterTabGeoServer registers srv on s.
func RegisterTabGeoServer(s grpc.ServiceRegistrar, srv TabGeoServer) {
	s.RegisterService(&serviceDesc, srv)
}

// Invoke calls method on the TabGeo service through conn.
func Invoke(ctx context.Context, conn grpc.ClientConnInterface, method string, in *structpb.Struct) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, "/"+ServiceName+"/"+method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}
