package grpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified name of the registry service.
const ServiceName = "skillhub.registry.v1.Registry"

// RegistryServer is implemented by GRPCServer.
type RegistryServer interface {
	Publish(context.Context, *PublishRequest) (*PublishResponse, error)
	UpdateTags(context.Context, *UpdateTagsRequest) (*UpdateTagsResponse, error)
	SetApproved(context.Context, *SetApprovedRequest) (*Empty, error)
	SetSoftDeleted(context.Context, *SetSoftDeletedRequest) (*Empty, error)
	ResolveVersionByHash(context.Context, *ResolveRequest) (*ResolveResponse, error)
	Restore(context.Context, *RestoreRequest) (*RestoreResponse, error)
}

var registryServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Publish", RegistryServer.Publish),
		unary("UpdateTags", RegistryServer.UpdateTags),
		unary("SetApproved", RegistryServer.SetApproved),
		unary("SetSoftDeleted", RegistryServer.SetSoftDeleted),
		unary("ResolveVersionByHash", RegistryServer.ResolveVersionByHash),
		unary("Restore", RegistryServer.Restore),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "skillhub/registry/v1/registry",
}

func fullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// unary adapts a typed RegistryServer method to a grpc.MethodDesc.
func unary[Req, Resp any](method string, call func(RegistryServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(RegistryServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(method)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}
