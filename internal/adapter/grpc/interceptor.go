package grpc

import (
	"context"
	"crypto/subtle"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/simaogato/recurring-ledger/internal/logging"
)

// AuthInterceptor returns a gRPC unary server interceptor that validates
// the authorization token from request metadata.
// The token may be sent bare or with a "Bearer " prefix.
// If the token is missing or invalid, it returns status.Unauthenticated.
func AuthInterceptor(validToken string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}

		authHeaders := md.Get("authorization")
		if len(authHeaders) == 0 {
			return nil, status.Error(codes.Unauthenticated, "missing authorization header")
		}

		token := strings.TrimPrefix(authHeaders[0], "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(validToken)) != 1 {
			return nil, status.Error(codes.Unauthenticated, "invalid token")
		}

		return handler(ctx, req)
	}
}

// LoggingInterceptor logs one entry per unary call with its method, status code and duration
func LoggingInterceptor(logger logrus.FieldLogger) grpc.UnaryServerInterceptor {
	logger = logging.OrDiscard(logger)

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		callLog := logging.NewRunLog(logger)
		callLog.AddData("method", info.FullMethod)
		endTimer := callLog.AddTiming("duration_ms")

		resp, err := handler(ctx, req)

		endTimer()
		code := status.Code(err)
		callLog.AddData("code", code.String())

		entry := callLog.Log()
		switch code {
		case codes.OK:
			entry.Info("GRPC.Call.Complete")
		case codes.Internal, codes.Unknown:
			entry.WithError(err).Error("GRPC.Call.Failed")
		default:
			entry.WithError(err).Warn("GRPC.Call.Rejected")
		}

		return resp, err
	}
}
