package server

import (
	"net"

	"google.golang.org/grpc"

	"github.com/libreassistant/poco/pkg/logger"
)

// GRPCAPIServer runs the loopback gRPC listener. Only reflection is
// registered today; it serves as the house debug surface.
type GRPCAPIServer struct {
	*grpc.Server
	address string
}

// NewGRPCAPIServer wraps the given grpc server with its serving address.
func NewGRPCAPIServer(server *grpc.Server, address string) *GRPCAPIServer {
	return &GRPCAPIServer{
		Server:  server,
		address: address,
	}
}

// Run starts serving. Listen failures are logged, never fatal to the daemon.
func (s *GRPCAPIServer) Run() {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		logger.Error("[Server] grpc listen on %s failed: %v", s.address, err)

		return
	}

	logger.Info("[Server] start grpc server at %s", s.address)

	if err := s.Serve(listen); err != nil {
		logger.Error("[Server] grpc serve: %v", err)
	}
}

// Stop gracefully stops the gRPC server.
func (s *GRPCAPIServer) Stop() {
	s.GracefulStop()
	logger.Info("[Server] grpc server on %s stopped", s.address)
}
