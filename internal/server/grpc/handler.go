package grpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/dmitrijs2005/townsquare/internal/common"
)

// ValidateSession returns the user id the interceptor resolved from the
// call's session token.
func (s *GRPCServer) ValidateSession(ctx context.Context, _ *emptypb.Empty) (*wrapperspb.StringValue, error) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, common.ErrorInvalidSession.Error())
	}
	return wrapperspb.String(userID), nil
}
