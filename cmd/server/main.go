package main

import (
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/recurring-ledger/internal/adapter/grpc"
	"github.com/simaogato/recurring-ledger/internal/app"
	"github.com/simaogato/recurring-ledger/internal/config"
	"github.com/simaogato/recurring-ledger/internal/domain"
	"github.com/simaogato/recurring-ledger/internal/logging"
)

func main() {
	// 1. Configuration and logging
	cfg := config.Load()

	logger, err := logging.Setup(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to set up logging")
	}

	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Configuration validation failed")
	}

	// 2. Setup Database
	stores, err := app.OpenStores(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open store")
	}
	defer stores.Close()

	// 3. Initialize Services (Use Cases)
	clock := domain.SystemClock{}
	services := app.NewServices(cfg, stores, clock, logger)

	// 4. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(logger),
			grpcadapter.AuthInterceptor(cfg.APIToken),
		),
	)

	grpcAdapter := grpcadapter.NewServer(services.Dashboard, services.Engine, services.Links, services.Periods, clock)
	grpcAdapter.MaxDaysOverdue = app.Window(cfg).MaxDaysOverdue
	grpcadapter.RegisterSchedulerServiceServer(grpcServer, grpcAdapter)

	reflection.Register(grpcServer)

	addr := ":" + cfg.GRPCPort
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		logger.WithError(err).WithField("addr", addr).Fatal("Failed to listen")
	}

	// Start server in a goroutine
	go func() {
		logger.WithFields(logrus.Fields{"addr": addr, "driver": cfg.DBDriver}).Info("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			logger.WithError(err).Fatal("Failed to serve gRPC server")
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, logger)
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server, logger logrus.FieldLogger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.WithField("signal", sig.String()).Info("Shutting down gracefully")

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")
}
