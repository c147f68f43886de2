package grpc

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/townsquare/internal/common"
	pb "github.com/dmitrijs2005/townsquare/internal/proto"
)

type ctxKey string

const userIDKey ctxKey = "userID"

// protectedMethods need a valid session token.
var protectedMethods = map[string]struct{}{
	pb.SessionService_ValidateSession_FullMethodName: {},
}

// UserIDFromContext returns the user id put there by the session interceptor.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func (s *GRPCServer) sessionInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	if _, ok := protectedMethods[info.FullMethod]; !ok {
		return handler(ctx, req)
	}

	var token string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.SessionTokenMetadataKey); len(values) > 0 {
			token = strings.TrimSpace(values[0])
		}
	}
	if token == "" {
		return nil, status.Error(codes.Unauthenticated, "missing session token")
	}

	userID, err := s.validator.Validate(ctx, token)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}

	return handler(context.WithValue(ctx, userIDKey, userID), req)
}

func (s *GRPCServer) observeInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	resp, err := handler(ctx, req)
	if s.observer != nil {
		s.observer.ObserveGRPC(info.FullMethod, status.Code(err).String())
	}
	return resp, err
}

// toStatus converts a service error to a gRPC status. Internal details are
// logged, never returned.
func (s *GRPCServer) toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, common.ErrorConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrorInvalidSession):
		return status.Error(codes.Unauthenticated, common.ErrorInvalidSession.Error())
	case errors.Is(err, common.ErrorForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, common.ErrorNotFound.Error())
	case errors.Is(err, common.ErrorTooManyAttempts):
		return status.Error(codes.ResourceExhausted, err.Error())
	}
	if !errors.Is(err, common.ErrorInternal) {
		s.logger.Error(ctx, "session validation failed", "error", err)
	}
	return status.Error(codes.Internal, common.ErrorInternal.Error())
}
