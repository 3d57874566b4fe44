// Package interceptors содержит unary-перехватчики gRPC health-сервера трекера.
package interceptors

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/piyushmaurya04/expense-tracker/internal/pkg/log"
)

// metadataRequestID — ключ metadata с идентификатором запроса,
// gRPC-аналог заголовка X-Request-Id.
const metadataRequestID = "x-request-id"

// UnaryLogging кладёт в контекст логгер с request_id, method и peer и после
// вызова пишет одну строку msg="grpc" с кодом статуса и длительностью.
// request_id берётся из metadata, иначе генерируется UUID.
func UnaryLogging(base *slog.Logger) grpc.UnaryServerInterceptor {
	if base == nil {
		base = slog.Default()
	}

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()

		l := base.With(
			slog.String("request_id", requestID(ctx)),
			slog.String("method", info.FullMethod),
			slog.String("peer", peerAddr(ctx)),
		)

		resp, err := handler(log.Into(ctx, l), req)

		code := status.Code(err)
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
		}
		l.Log(ctx, level, "grpc",
			slog.String("code", code.String()),
			slog.Duration("dur", time.Since(start)),
		)

		return resp, err
	}
}

func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(metadataRequestID); len(v) > 0 && v[0] != "" {
			return v[0]
		}
	}
	return uuid.NewString()
}

func peerAddr(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return "-"
}
