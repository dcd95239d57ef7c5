// Command profiled serves profile updates over gRPC and HTTP and fans out the
// changes over pub/sub.
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/profiled/internal/auth"
	"github.com/and161185/profiled/internal/broadcast"
	"github.com/and161185/profiled/internal/config"
	"github.com/and161185/profiled/internal/metrics"
	"github.com/and161185/profiled/internal/migrate"
	"github.com/and161185/profiled/internal/pubsub/memory"
	"github.com/and161185/profiled/internal/pubsub/natspub"
	"github.com/and161185/profiled/internal/repository/postgres"
	grpcserver "github.com/and161185/profiled/internal/server/grpc"
	httpserver "github.com/and161185/profiled/internal/server/http"
	"github.com/and161185/profiled/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("grpcAddr", cfg.GRPCAddr),
		zap.String("httpAddr", cfg.HTTPAddr),
	)

	creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
	if err != nil {
		logger.Fatal("failed to load TLS cert/key", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DSN, cfg.MaxConns)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer db.Close()

	// Pub/sub
	var pub broadcast.Publisher
	if cfg.NATSURL != "" {
		np, err := natspub.Connect(cfg.NATSURL, "profiled")
		if err != nil {
			logger.Fatal("nats connect", zap.Error(err))
		}
		defer func() {
			if err := np.Close(); err != nil {
				logger.Warn("nats drain", zap.Error(err))
			}
		}()
		pub = np
	} else {
		logger.Warn("no NATS url configured; broadcasts stay in process")
		pub = memory.New()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	profiles := service.NewProfileService(
		postgres.NewProfileRepo(db),
		postgres.NewRelationRepo(db),
		broadcast.NewDispatcher(pub, logger, m, cfg.FanoutLimit),
		logger,
		m,
	)
	verifier := auth.NewVerifier([]byte(cfg.JWTKey))

	// gRPC
	s := grpc.NewServer(
		grpc.Creds(creds),
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			grpcserver.AuthUnary(verifier),
		),
	)
	grpcserver.RegisterProfileServer(s, grpcserver.New(profiles, logger))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	// HTTP
	hsrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpserver.New(profiles, verifier, logger, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("grpc listening (TLS)", zap.String("addr", cfg.GRPCAddr))
		errCh <- s.Serve(lis)
	}()
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := hsrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := hsrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			s.Stop()
		}
		if err := profiles.Drain(shutdownCtx); err != nil {
			logger.Warn("broadcasts still in flight at shutdown", zap.Error(err))
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
