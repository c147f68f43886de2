// Package grpc serves the internal SessionService that collaborating
// services use to validate session tokens.
package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"

	"github.com/dmitrijs2005/townsquare/internal/logging"
	pb "github.com/dmitrijs2005/townsquare/internal/proto"
)

// Validator resolves a session token to its owning user id.
type Validator interface {
	Validate(ctx context.Context, token string) (string, error)
}

// Observer records one finished call. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveGRPC(method, code string)
}

type GRPCServer struct {
	address   string
	validator Validator
	observer  Observer
	logger    logging.Logger
}

// NewGRPCServer builds a server listening on address. observer may be nil.
func NewGRPCServer(address string, l logging.Logger, v Validator, observer Observer) *GRPCServer {
	return &GRPCServer{
		address:   address,
		validator: v,
		observer:  observer,
		logger:    l.With("module", "grpc_server"),
	}
}

// Run listens on the configured address and serves until ctx is done.
func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done, then stops gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(s.observeInterceptor, s.sessionInterceptor))
	pb.RegisterSessionServiceServer(srv, s)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	return srv.Serve(lis)
}
