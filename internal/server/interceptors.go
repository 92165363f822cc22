package server

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/foundry/internal/metrics"
)

// LoggingInterceptor logs every unary call with its resource and status code
// and records it in the gRPC metrics. Client mistakes (not found, bad input)
// log at warn; anything else that failed logs at error.
func LoggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	duration := time.Since(start)

	method := path.Base(info.FullMethod)
	code := status.Code(err)
	metrics.ObserveRPC(method, code.String(), duration)

	attrs := []any{"method", method, "code", code.String(), "duration", duration}
	if st, ok := req.(*structpb.Struct); ok {
		if res := st.GetFields()["resource"].GetStringValue(); res != "" {
			attrs = append(attrs, "resource", res)
		}
	}

	switch code {
	case codes.OK:
		slog.Info("rpc completed", attrs...)
	case codes.NotFound, codes.InvalidArgument, codes.Canceled:
		slog.Warn("rpc completed", append(attrs, "error", err)...)
	default:
		slog.Error("rpc failed", append(attrs, "error", err)...)
	}
	return resp, err
}

// RecoveryInterceptor turns a handler panic into codes.Internal.
func RecoveryInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in gRPC handler",
				"method", info.FullMethod,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			err = status.Error(codes.Internal, "Internal Server Error")
		}
	}()
	return handler(ctx, req)
}
