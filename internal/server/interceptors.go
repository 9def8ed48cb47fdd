package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// healthCheckMethod is the only RPC reachable without a token, so load
// balancers can check the server. Health/Watch and reflection are guarded.
const healthCheckMethod = "/grpc.health.v1.Health/Check"

var (
	errNoAuthHeader = errors.New("missing authorization header")
	errAuthScheme   = errors.New("invalid authorization scheme")
	errBadToken     = errors.New("invalid token")
)

// checkBearer compares an Authorization header value against token.
func checkBearer(header, token string) error {
	if header == "" {
		return errNoAuthHeader
	}
	provided, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return errAuthScheme
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
		return errBadToken
	}
	return nil
}

// authorizeRPC checks the "authorization" metadata of an incoming call. An
// empty token disables auth.
func authorizeRPC(ctx context.Context, token, method string) error {
	if token == "" || method == healthCheckMethod {
		return nil
	}
	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = vals[0]
		}
	}
	if err := checkBearer(header, token); err != nil {
		return status.Error(codes.Unauthenticated, err.Error())
	}
	return nil
}

// recoverRPC turns a handler panic into codes.Internal. It must be deferred
// directly by the interceptor.
func recoverRPC(method string, err *error) {
	if r := recover(); r != nil {
		slog.Error("panic recovered in gRPC handler",
			"method", method,
			"panic", fmt.Sprintf("%v", r),
			"stack", string(debug.Stack()),
		)
		*err = status.Error(codes.Internal, "internal server error")
	}
}

// logRPC records a finished call. Successful health checks are too frequent
// to log, and a stream the client hung up on is not an error.
func logRPC(method string, start time.Time, err error) {
	duration := time.Since(start)
	switch {
	case err == nil:
		if method != healthCheckMethod {
			slog.Info("rpc completed", "method", method, "duration", duration)
		}
	case status.Code(err) == codes.Canceled:
		slog.Debug("rpc canceled", "method", method, "duration", duration)
	default:
		slog.Error("rpc completed", "method", method, "duration", duration, "error", err)
	}
}

// UnaryRecovery catches panics in unary handlers.
func UnaryRecovery(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer recoverRPC(info.FullMethod, &err)
	return handler(ctx, req)
}

// StreamRecovery catches panics in streaming handlers such as reflection
// and Health/Watch.
func StreamRecovery(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
	defer recoverRPC(info.FullMethod, &err)
	return handler(srv, ss)
}

func UnaryLogging(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	logRPC(info.FullMethod, start, err)
	return resp, err
}

func StreamLogging(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	start := time.Now()
	err := handler(srv, ss)
	logRPC(info.FullMethod, start, err)
	return err
}

// UnaryAuth rejects unary calls without a valid Bearer token.
func UnaryAuth(token string) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if err := authorizeRPC(ctx, token, info.FullMethod); err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuth rejects streams without a valid Bearer token before the
// handler sees the first message.
func StreamAuth(token string) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if err := authorizeRPC(ss.Context(), token, info.FullMethod); err != nil {
			return err
		}
		return handler(srv, ss)
	}
}

// AuthMiddleware wraps an http.Handler and checks the Authorization header for
// a valid Bearer token. When token is empty, auth is disabled and all requests
// pass through. GET /v1/health is always exempt.
func AuthMiddleware(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet && r.URL.Path == "/v1/health" {
			next.ServeHTTP(w, r)
			return
		}
		if err := checkBearer(r.Header.Get("Authorization"), token); err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
