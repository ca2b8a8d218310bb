// Package grpc exposes the registry services over gRPC. Registry messages
// use a JSON codec; the standard health service is served alongside.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/skillhub/internal/logging"
	"github.com/dmitrijs2005/skillhub/internal/server/models"
	"github.com/dmitrijs2005/skillhub/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type publishSvc interface {
	Publish(ctx context.Context, actorID string, in services.PublishInput) (*services.PublishResult, error)
}

type tagSvc interface {
	UpdateTags(ctx context.Context, actorID, packageID string, updates []services.TagUpdate) (models.Tags, error)
}

type moderationSvc interface {
	SetApproved(ctx context.Context, actorID, packageID string, approved bool) error
	SetSoftDeleted(ctx context.Context, actorID, packageID string, deleted bool) error
}

type resolveSvc interface {
	ResolveVersionByHash(ctx context.Context, slug, hash string) (*services.ResolveResult, error)
}

type restoreSvc interface {
	Restore(ctx context.Context, actorID string, in services.RestoreInput) (*services.RestoreResult, error)
}

// Services groups the business services the server dispatches to.
type Services struct {
	Publish    publishSvc
	Tags       tagSvc
	Moderation moderationSvc
	Resolve    resolveSvc
	Restore    restoreSvc
}

type GRPCServer struct {
	address    string
	publish    publishSvc
	tags       tagSvc
	moderation moderationSvc
	resolve    resolveSvc
	restore    restoreSvc
	logger     logging.Logger
	jwtSecret  []byte
}

func NewGRPCServer(a string, l logging.Logger, svc Services, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		publish:    svc.Publish,
		tags:       svc.Tags,
		moderation: svc.Moderation,
		resolve:    svc.Resolve,
		restore:    svc.Restore,
		jwtSecret:  []byte(secretKey),
	}
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve serves on lis until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor))

	srv.RegisterService(&registryServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}
