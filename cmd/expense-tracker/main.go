package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	grpc_prometheus "github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	health "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/piyushmaurya04/expense-tracker/internal/config"
	httpapi "github.com/piyushmaurya04/expense-tracker/internal/http"
	"github.com/piyushmaurya04/expense-tracker/internal/http/middleware"
	"github.com/piyushmaurya04/expense-tracker/internal/interceptors"
	"github.com/piyushmaurya04/expense-tracker/internal/service"
	"github.com/piyushmaurya04/expense-tracker/internal/storage"
	"github.com/piyushmaurya04/expense-tracker/internal/storage/postgres"
	"github.com/piyushmaurya04/expense-tracker/internal/storage/sqlite"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// janitorPeriod — период фоновой очистки просроченных refresh-токенов.
const janitorPeriod = 30 * time.Minute

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application",
		slog.String("env", cfg.Env),
		slog.String("db_driver", cfg.DB.Driver),
	)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	str, err := openStorage(rootCtx, log, cfg.DB)
	if err != nil {
		log.Error("storage_open_failed",
			slog.String("driver", cfg.DB.Driver),
			slog.String("err", err.Error()),
		)
		os.Exit(1)
	}
	defer str.Close()
	log.Info("storage_opened", slog.String("driver", cfg.DB.Driver))

	// Сервис.
	srvc, err := service.New(str, cfg.Auth)
	if err != nil {
		log.Error("service_init_failed", slog.String("err", err.Error()))
		str.Close()
		os.Exit(1)
	}
	log.Info("service_initialized")

	// Метрики: HTTP-middleware и gRPC-перехватчики пишут в общий реестр по умолчанию.
	metrics := middleware.NewMetrics(prometheus.DefaultRegisterer)

	var ready atomic.Bool

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if ready.Load() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		http.Error(w, "not ready", http.StatusServiceUnavailable)
	})
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/api/", httpapi.NewRouter(srvc, httpapi.Options{
		Logger:         log,
		Timeout:        cfg.HTTP.RequestTimeout,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		CORSMaxAge:     cfg.CORS.MaxAge,
		DBDriver:       strings.ToLower(cfg.DB.Driver),
		Metrics:        metrics,
	}))

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	// gRPC health-сервер (опционально).
	var (
		grpcServer *grpc.Server
		hs         *health.Server
	)
	if cfg.GRPC.Enabled() {
		grpc_prometheus.EnableHandlingTimeHistogram()

		grpcServer = grpc.NewServer(
			grpc.ChainUnaryInterceptor(
				interceptors.Recover(log),
				interceptors.UnaryLogging(log),
				interceptors.WithTimeout(cfg.HTTP.RequestTimeout),
				grpc_prometheus.UnaryServerInterceptor,
			),
			grpc.ChainStreamInterceptor(
				grpc_prometheus.StreamServerInterceptor,
			),
		)

		hs = health.NewServer()
		healthpb.RegisterHealthServer(grpcServer, hs)

		// Рефлексия — только в local/dev.
		if cfg.Env == envLocal || cfg.Env == envDev {
			reflection.Register(grpcServer)
		}

		grpc_prometheus.Register(grpcServer)
	}

	g, gctx := errgroup.WithContext(rootCtx)

	g.Go(func() error {
		log.Info("http_listen_start", slog.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http serve: %w", err)
		}
		return nil
	})

	if grpcServer != nil {
		addr := cfg.GRPC.Addr()
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			log.Error("grpc_listen_failed",
				slog.String("addr", addr),
				slog.String("err", err.Error()),
			)
			str.Close()
			os.Exit(1)
		}
		log.Info("grpc_listen_start", slog.String("addr", addr))

		g.Go(func() error {
			if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc serve: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		runRefreshJanitor(gctx, srvc, log, janitorPeriod)
		return nil
	})

	// Сервис готов: health -> SERVING и readiness.
	if hs != nil {
		hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	}
	ready.Store(true)

	// Ожидание сигнала или падения одного из серверов.
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown_requested")

		if hs != nil {
			hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		}
		ready.Store(false)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()

		if grpcServer != nil {
			stopGRPC(shutdownCtx, grpcServer, log)
		}

		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http_force_stop", slog.String("err", err.Error()))
			_ = httpSrv.Close()
		}
		log.Info("http_stopped")

		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error("server_failed", slog.String("err", err.Error()))
		str.Close()
		os.Exit(1)
	}

	log.Info("service_stopped")
}

// openStorage открывает хранилище выбранного драйвера.
func openStorage(ctx context.Context, log *slog.Logger, cfg config.DBConfig) (storage.Storage, error) {
	// Подключение к БД c таймаутом.
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	switch strings.ToLower(cfg.Driver) {
	case config.DriverPostgres:
		return postgres.New(ctx, cfg.DatabaseURL)
	case config.DriverSQLite:
		return sqlite.New(ctx, log, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

// stopGRPC останавливает gRPC-сервер gracefully, а по истечении ctx принудительно.
func stopGRPC(ctx context.Context, srv *grpc.Server, log *slog.Logger) {
	done := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(done)
	}()

	select {
	case <-done:
		log.Info("grpc_stopped")
	case <-ctx.Done():
		log.Warn("grpc_force_stop")
		srv.Stop()
	}
}

// runRefreshJanitor периодически удаляет просроченные refresh-токены до отмены ctx.
func runRefreshJanitor(ctx context.Context, svc *service.Service, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	t := time.NewTicker(period)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := svc.PurgeExpiredRefreshTokens(ctx)
			if err != nil {
				log.Error("refresh_janitor_failed", slog.String("err", err.Error()))
				continue
			}
			if n > 0 {
				log.Info("refresh_janitor_purged", slog.Int64("deleted", n))
			}
		}
	}
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}
