// Package observability provides gRPC interceptors and the metrics HTTP server.
package observability

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"call-transcript-service/internal/observability/metrics"
)

// UnaryServerInterceptor records RPC metrics, logs each call with its call
// ID when the request carries one, and turns handler panics into
// codes.Internal.
func UnaryServerInterceptor(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		start := time.Now()
		logger := rpcLogger(info.FullMethod, req)

		defer func() {
			if p := recover(); p != nil {
				logger.Error().
					Interface("panic", p).
					Bytes("stack", debug.Stack()).
					Msg("gRPC handler panicked")
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}

			st, _ := status.FromError(err)
			m.RecordRPC(info.FullMethod, st.Code().String())

			event := logger.Info()
			if err != nil {
				event = logger.Warn().Str("error", st.Message())
			}
			event.
				Str("code", st.Code().String()).
				Dur("duration", time.Since(start)).
				Msg("gRPC unary call")
		}()

		return handler(ctx, req)
	}
}

// StreamServerInterceptor records RPC metrics for streams. The only streams
// served are health watches, so they are logged at debug level.
func StreamServerInterceptor(m *metrics.Metrics) grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		start := time.Now()
		err := handler(srv, ss)

		st, _ := status.FromError(err)
		m.RecordRPC(info.FullMethod, st.Code().String())

		logger := rpcLogger(info.FullMethod, nil)
		logger.Debug().
			Str("code", st.Code().String()).
			Dur("duration", time.Since(start)).
			Msg("gRPC stream completed")

		return err
	}
}

func rpcLogger(method string, req interface{}) zerolog.Logger {
	ctx := log.With().
		Str("component", "grpc").
		Str("method", method)
	if s, ok := req.(*structpb.Struct); ok {
		if v, ok := s.GetFields()["callId"]; ok && v.GetStringValue() != "" {
			ctx = ctx.Str("callId", v.GetStringValue())
		}
	}
	return ctx.Logger()
}
