// Package sessionclient validates townsquare session tokens over the internal
// gRPC SessionService. Collaborating services plug *Client in wherever a
// Validator is expected, for example httpapi.RequireSession.
package sessionclient

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/dmitrijs2005/townsquare/internal/common"
	pb "github.com/dmitrijs2005/townsquare/internal/proto"
)

const defaultTimeout = 5 * time.Second

type Client struct {
	conn    *grpc.ClientConn
	rpc     pb.SessionServiceClient
	timeout time.Duration
}

// New dials address with plaintext credentials unless opts override them.
func New(address string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("session client: %w", err)
	}
	return &Client{conn: conn, rpc: pb.NewSessionServiceClient(conn), timeout: defaultTimeout}, nil
}

// WithTimeout bounds each Validate call. Zero disables the bound.
func (c *Client) WithTimeout(d time.Duration) *Client {
	c.timeout = d
	return c
}

// Validate returns the user id owning token. Rejected tokens yield
// common.ErrorInvalidSession; transport failures wrap common.ErrorInternal.
func (c *Client) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", common.ErrorInvalidSession
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	ctx = metadata.AppendToOutgoingContext(ctx, common.SessionTokenMetadataKey, token)
	resp, err := c.rpc.ValidateSession(ctx, &emptypb.Empty{})
	if err != nil {
		return "", mapError(err)
	}
	return resp.GetValue(), nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	switch st.Code() {
	case codes.Unauthenticated:
		return common.ErrorInvalidSession
	case codes.PermissionDenied:
		return &common.ForbiddenError{Message: st.Message()}
	case codes.ResourceExhausted:
		return common.ErrorTooManyAttempts
	default:
		return fmt.Errorf("%w: %s", common.ErrorInternal, st.Message())
	}
}
