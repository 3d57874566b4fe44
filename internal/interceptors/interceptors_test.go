package interceptors

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/piyushmaurya04/expense-tracker/internal/pkg/log"
)

const healthCheck = "/grpc.health.v1.Health/Check"

// capHandler запоминает последнюю запись лога вместе с атрибутами With.
type capHandler struct {
	mu      sync.Mutex
	base    []slog.Attr
	shared  *capHandler
	lastMsg string
	lastLvl slog.Level
	attrs   map[string]any
}

func newCap() *capHandler {
	h := &capHandler{}
	h.shared = h
	return h
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	out := make(map[string]any, len(h.base)+4)
	for _, a := range h.base {
		out[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		out[a.Key] = a.Value.Any()
		return true
	})

	s := h.shared
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastMsg, s.lastLvl, s.attrs = r.Message, r.Level, out
	return nil
}

func (h *capHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	base := append(append([]slog.Attr{}, h.base...), attrs...)
	return &capHandler{base: base, shared: h.shared}
}

func (h *capHandler) WithGroup(string) slog.Handler { return h }

func (h *capHandler) last() (string, slog.Level, map[string]any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastMsg, h.lastLvl, h.attrs
}

func TestUnaryLogging_UsesIncomingRequestID(t *testing.T) {
	h := newCap()

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "rid-123"))
	ctx = peer.NewContext(ctx, &peer.Peer{Addr: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50051}})

	var inner *slog.Logger
	resp, err := UnaryLogging(slog.New(h))(ctx, "req", &grpc.UnaryServerInfo{FullMethod: healthCheck},
		func(ctx context.Context, _ any) (any, error) {
			inner = log.From(ctx)
			return "ok", nil
		})
	require.NoError(t, err)
	require.Equal(t, "ok", resp)
	require.NotSame(t, slog.Default(), inner)

	msg, lvl, attrs := h.last()
	require.Equal(t, "grpc", msg)
	require.Equal(t, slog.LevelInfo, lvl)
	require.Equal(t, "rid-123", attrs["request_id"])
	require.Equal(t, healthCheck, attrs["method"])
	require.Equal(t, "127.0.0.1:50051", attrs["peer"])
	require.Equal(t, "OK", attrs["code"])
}

func TestUnaryLogging_GeneratesRequestID_WarnsOnError(t *testing.T) {
	h := newCap()

	_, err := UnaryLogging(slog.New(h))(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: healthCheck},
		func(context.Context, any) (any, error) {
			return nil, status.Error(codes.NotFound, "unknown service")
		})
	require.Error(t, err)

	_, lvl, attrs := h.last()
	require.Equal(t, slog.LevelWarn, lvl)
	require.Equal(t, "NotFound", attrs["code"])
	require.Equal(t, "-", attrs["peer"])

	rid, _ := attrs["request_id"].(string)
	_, parseErr := uuid.Parse(rid)
	require.NoError(t, parseErr)
}

func TestRecover_PanicBecomesInternal(t *testing.T) {
	h := newCap()

	resp, err := Recover(slog.New(h))(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: healthCheck},
		func(context.Context, any) (any, error) {
			panic("boom")
		})

	require.Nil(t, resp)
	require.Equal(t, codes.Internal, status.Code(err))
	require.Equal(t, "internal server error", status.Convert(err).Message())

	msg, lvl, attrs := h.last()
	require.Equal(t, "panic_recovered", msg)
	require.Equal(t, slog.LevelError, lvl)
	require.Equal(t, healthCheck, attrs["method"])
	require.NotEmpty(t, attrs["stack"])
}

func TestRecover_NoPanic_NoLog(t *testing.T) {
	h := newCap()

	resp, err := Recover(slog.New(h))(context.Background(), "req", &grpc.UnaryServerInfo{FullMethod: healthCheck},
		func(context.Context, any) (any, error) { return "ok", nil })

	require.NoError(t, err)
	require.Equal(t, "ok", resp)

	msg, _, _ := h.last()
	require.Empty(t, msg)
}

func TestWithTimeout(t *testing.T) {
	info := &grpc.UnaryServerInfo{FullMethod: healthCheck}

	t.Run("sets deadline", func(t *testing.T) {
		const d = 30 * time.Millisecond
		start := time.Now()

		_, err := WithTimeout(d)(context.Background(), "req", info, func(ctx context.Context, _ any) (any, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})

		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.GreaterOrEqual(t, time.Since(start), d)
	})

	t.Run("keeps caller deadline", func(t *testing.T) {
		parent, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
		defer cancel()
		want, _ := parent.Deadline()

		_, err := WithTimeout(time.Second)(parent, "req", info, func(ctx context.Context, _ any) (any, error) {
			got, ok := ctx.Deadline()
			require.True(t, ok)
			require.WithinDuration(t, want, got, time.Millisecond)
			return "ok", nil
		})
		require.NoError(t, err)
	})

	t.Run("zero disables", func(t *testing.T) {
		_, err := WithTimeout(0)(context.Background(), "req", info, func(ctx context.Context, _ any) (any, error) {
			_, ok := ctx.Deadline()
			require.False(t, ok)
			return "ok", nil
		})
		require.NoError(t, err)
	})
}

// TestChain_HealthServer прогоняет цепочку перехватчиков на настоящем
// health-сервере через bufconn.
func TestChain_HealthServer(t *testing.T) {
	h := newCap()
	logger := slog.New(h)

	srv := grpc.NewServer(grpc.ChainUnaryInterceptor(
		Recover(logger),
		UnaryLogging(logger),
		WithTimeout(time.Second),
	))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	lis := bufconn.Listen(1 << 16)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	client := healthpb.NewHealthClient(conn)
	ctx := metadata.AppendToOutgoingContext(context.Background(), "x-request-id", "rid-chain")

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	msg, _, attrs := h.last()
	require.Equal(t, "grpc", msg)
	require.Equal(t, "rid-chain", attrs["request_id"])
	require.Equal(t, healthCheck, attrs["method"])

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	_, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: "expense.v1.Unknown"})
	require.Equal(t, codes.NotFound, status.Code(err))
}
