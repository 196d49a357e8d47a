package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"product-store/internal/config"
	"product-store/internal/database"
	grpcHandler "product-store/internal/handler/grpc"
	httpHandler "product-store/internal/handler/http"
	"product-store/internal/logger"
	middleware_grpc "product-store/internal/middleware/grpc"
	"product-store/internal/repository"
	"product-store/internal/service"
	"product-store/internal/tracer"
	"product-store/internal/version"
)

func main() {
	// Cancelled on SIGINT/SIGTERM
	globalCtx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Instance()
	cfg := config.Instance()

	logger.Info(globalCtx, cfg.AppName,
		slog.String("version", version.Version),
		slog.String("commit", version.Commit),
		slog.String("buildTime", version.BuildTime),
	)

	// Initialize telemetry (OpenTelemetry + Pyroscope)
	shutdown, err := tracer.Instance(globalCtx)
	if err != nil {
		logger.Warn(globalCtx, "Telemetry disabled", logger.Err(err))
	}
	defer shutdown()

	// Connect to MongoDB
	db, err := database.Instance(globalCtx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		logger.Error(globalCtx, "Failed to connect to MongoDB", logger.Err(err))
		os.Exit(1)
	}

	// Wiring
	productRepo := repository.NewProductRepository(db.Database)
	if err := productRepo.EnsureIndexes(globalCtx); err != nil {
		logger.Error(globalCtx, "Failed to create indexes", logger.Err(err))
		os.Exit(1)
	}
	productService := service.NewProductService(productRepo)
	healthService := service.NewHealthService(db.Client)

	router := httpHandler.NewRouter(
		httpHandler.NewProductHandler(productService),
		httpHandler.NewHealthHandler(healthService),
	)
	httpServer := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return globalCtx },
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(middleware_grpc.UnaryTracingInterceptor()),
	)
	healthpb.RegisterHealthServer(grpcServer, grpcHandler.NewHealthGRPCHandler(healthService))
	reflection.Register(grpcServer)

	g, gCtx := errgroup.WithContext(globalCtx)

	g.Go(func() error {
		logger.Info(gCtx, "HTTP server running", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		lis, err := net.Listen("tcp", ":"+cfg.GrpcPort)
		if err != nil {
			return err
		}
		logger.Info(gCtx, "gRPC server running", slog.String("port", cfg.GrpcPort))
		return grpcServer.Serve(lis)
	})

	// Wait for a signal or for either server to fail
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info(globalCtx, "Shutting down servers")

		stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(globalCtx), time.Duration(cfg.ShutdownTimeoutMs)*time.Millisecond)
		defer stopCancel()

		err := httpServer.Shutdown(stopCtx)
		grpcServer.GracefulStop()
		if closeErr := db.Close(stopCtx); closeErr != nil {
			err = errors.Join(err, closeErr)
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error(globalCtx, "Server exited with error", logger.Err(err))
		shutdown()
		os.Exit(1)
	}
	logger.Info(globalCtx, "Servers exited cleanly")
}
