package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/skillhub/internal/common"
	"github.com/dmitrijs2005/skillhub/internal/dbx"
	"github.com/dmitrijs2005/skillhub/internal/server/metadata"
	"github.com/dmitrijs2005/skillhub/internal/server/storage"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var errorCodes = []struct {
	err  error
	code codes.Code
}{
	{common.ErrorNotFound, codes.NotFound},
	{common.ErrVersionNotFound, codes.NotFound},
	{common.ErrUpstreamNotFound, codes.NotFound},
	{common.ErrForbidden, codes.PermissionDenied},
	{common.ErrNotOwner, codes.PermissionDenied},
	{common.ErrActorNotFound, codes.PermissionDenied},
	{common.ErrVersionExists, codes.AlreadyExists},
	{common.ErrSlugTaken, codes.AlreadyExists},
	{common.ErrSlugReserved, codes.FailedPrecondition},
	{common.ErrInvalidSlug, codes.InvalidArgument},
	{common.ErrInvalidVersion, codes.InvalidArgument},
	{common.ErrInvalidPath, codes.InvalidArgument},
	{common.ErrInvalidTag, codes.InvalidArgument},
	{common.ErrInvalidHash, codes.InvalidArgument},
	{metadata.ErrFrontmatterTooLarge, codes.InvalidArgument},
	{common.ErrInvalidToken, codes.Unauthenticated},
	{common.ErrTokenExpired, codes.Unauthenticated},
	{storage.ErrUnavailable, codes.Unavailable},
}

// toStatus maps service errors onto gRPC status codes. Unknown errors are
// reported as Internal without their text.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	if dbx.IsSerializationFailure(err) {
		return status.Error(codes.Aborted, "concurrent update, retry the request")
	}
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return status.Error(e.code, err.Error())
		}
	}
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}

// fail converts err for the wire, logging the cause of internal failures.
func (s *GRPCServer) fail(ctx context.Context, method string, err error) error {
	st := toStatus(err)
	if status.Code(st) == codes.Internal {
		s.logger.Error(ctx, "internal error", "method", method, "error", err)
	}
	return st
}
