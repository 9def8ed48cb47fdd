package server

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	reflectionpb "google.golang.org/grpc/reflection/grpc_reflection_v1"
	"google.golang.org/grpc/status"

	"github.com/alfredjeanlab/hands/internal/cache"
)

func checkHealth(t *testing.T, srv healthpb.HealthServer, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := srv.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestGRPCHealth_Serving(t *testing.T) {
	s, _, _ := newTestServer(t)
	srv, hs := s.NewGRPCServer("")
	defer srv.Stop()

	for _, svc := range []string{"", HealthService} {
		if got := checkHealth(t, hs, svc); got != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("%q status = %v, want SERVING", svc, got)
		}
	}
}

func TestGRPCHealth_DisabledCache(t *testing.T) {
	s, _, _ := newServerOn(cache.Disabled{}, nil)
	srv, hs := s.NewGRPCServer("secret")
	defer srv.Stop()

	if got := checkHealth(t, hs, HealthService); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status = %v, want NOT_SERVING", got)
	}
}

func TestWatchHealth_ShutsDownOnCancel(t *testing.T) {
	s, _, _ := newTestServer(t)
	srv, hs := s.NewGRPCServer("")
	defer srv.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.WatchHealth(ctx, hs, 10*time.Millisecond)
	}()
	cancel()
	<-done

	if got := checkHealth(t, hs, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("status after shutdown = %v, want NOT_SERVING", got)
	}
}

// dialGRPC serves s over a loopback listener with authToken and returns a
// client connection to it.
func dialGRPC(t *testing.T, s *HandsServer, authToken string) *grpc.ClientConn {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv, _ := s.NewGRPCServer(authToken)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func listServices(ctx context.Context, conn *grpc.ClientConn) ([]string, error) {
	stream, err := reflectionpb.NewServerReflectionClient(conn).ServerReflectionInfo(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stream.CloseSend() }()
	// A rejected stream surfaces io.EOF on Send; the status arrives on Recv.
	if err := stream.Send(&reflectionpb.ServerReflectionRequest{
		MessageRequest: &reflectionpb.ServerReflectionRequest_ListServices{},
	}); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	resp, err := stream.Recv()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, svc := range resp.GetListServicesResponse().GetService() {
		names = append(names, svc.GetName())
	}
	return names, nil
}

func TestGRPC_StreamsRequireToken(t *testing.T) {
	s, _, _ := newTestServer(t)
	conn := dialGRPC(t, s, "secret")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := listServices(ctx, conn); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("reflection without token: %v, want Unauthenticated", err)
	}
	bad := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer wrong")
	if _, err := listServices(bad, conn); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("reflection with wrong token: %v, want Unauthenticated", err)
	}

	authed := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer secret")
	names, err := listServices(authed, conn)
	if err != nil {
		t.Fatalf("reflection with token: %v", err)
	}
	found := false
	for _, n := range names {
		if n == "grpc.health.v1.Health" {
			found = true
		}
	}
	if !found {
		t.Fatalf("health service not listed: %v", names)
	}

	health := healthpb.NewHealthClient(conn)
	watch, err := health.Watch(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
	if err == nil {
		_, err = watch.Recv()
	}
	if status.Code(err) != codes.Unauthenticated {
		t.Fatalf("health watch without token: %v, want Unauthenticated", err)
	}

	resp, err := health.Check(ctx, &healthpb.HealthCheckRequest{Service: HealthService})
	if err != nil {
		t.Fatalf("health check must stay open: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", resp.GetStatus())
	}
}

func TestGRPC_NoTokenConfigured(t *testing.T) {
	s, _, _ := newTestServer(t)
	conn := dialGRPC(t, s, "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := listServices(ctx, conn); err != nil {
		t.Fatalf("reflection with auth disabled: %v", err)
	}
}
