package grpc

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/skillhub/internal/common"
	"github.com/dmitrijs2005/skillhub/internal/server/auth"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

// UserIDKey holds the authenticated actor id in the request context.
const UserIDKey ctxKey = "userID"

const requestIDHeader = "x-request-id"

// publicMethods may be called without an access token.
var publicMethods = map[string]struct{}{
	fullMethod("ResolveVersionByHash"): {},
}

func requiresToken(method string) bool {
	if _, ok := publicMethods[method]; ok {
		return false
	}
	return strings.HasPrefix(method, "/"+ServiceName+"/")
}

func firstMetadata(ctx context.Context, key string) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(key); len(values) > 0 {
			return values[0]
		}
	}
	return ""
}

// accessTokenInterceptor authenticates registry calls and stores the actor
// id under UserIDKey. Health checks and public reads pass through.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {

	if requiresToken(info.FullMethod) {

		accessToken := firstMetadata(ctx, common.AccessTokenHeaderName)
		if len(accessToken) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing token")
		}

		userID, err := auth.GetUserIDFromToken(accessToken, s.jwtSecret)
		if err != nil {
			if errors.Is(err, common.ErrTokenExpired) {
				return nil, status.Error(codes.Unauthenticated, "token expired")
			}
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		ctx = context.WithValue(ctx, UserIDKey, userID)
	}

	return handler(ctx, req)
}

// loggingInterceptor tags every call with a request id, echoes it in the
// response header and logs the outcome.
func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	requestID := firstMetadata(ctx, requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, requestID))

	start := time.Now()
	resp, err := handler(ctx, req)

	code := status.Code(err)
	args := []any{"method", info.FullMethod, "request_id", requestID, "code", code.String(), "duration", time.Since(start)}
	if code == codes.Internal || code == codes.Unknown {
		s.logger.Error(ctx, "request failed", append(args, "error", err)...)
	} else {
		s.logger.Info(ctx, "request", args...)
	}

	return resp, err
}

func actorFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(UserIDKey).(string)
	if !ok || id == "" {
		return "", status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return id, nil
}
