package server

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthService is the service name reported alongside the overall ("")
// status.
const HealthService = "hands.v1.Hands"

// NewGRPCServer creates a gRPC server, registers the health service and
// reflection, and returns both. Unary and streaming calls pass through the
// same recovery, logging and bearer-token checks; only Health/Check is open
// without a token. The health status starts from the cache's current state;
// keep it current with WatchHealth.
func (s *HandsServer) NewGRPCServer(authToken string) (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryRecovery, UnaryLogging, UnaryAuth(authToken)),
		grpc.ChainStreamInterceptor(StreamRecovery, StreamLogging, StreamAuth(authToken)),
	)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)
	s.setHealth(hs)

	return srv, hs
}

// WatchHealth re-evaluates the cache every interval and updates hs until ctx
// is done. On return every service is marked NOT_SERVING.
func (s *HandsServer) WatchHealth(ctx context.Context, hs *health.Server, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-ticker.C:
			s.setHealth(hs)
		}
	}
}

func (s *HandsServer) setHealth(hs *health.Server) {
	st := healthpb.HealthCheckResponse_SERVING
	if !s.cache.Enabled() || !s.cache.Healthy() {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	hs.SetServingStatus("", st)
	hs.SetServingStatus(HealthService, st)
}
