package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/BrandonDHaskell/Portunus/gate/internal/httpapi"
	"github.com/BrandonDHaskell/Portunus/gate/internal/metrics"
	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/service"
	"github.com/BrandonDHaskell/Portunus/gate/internal/provider"
	"github.com/BrandonDHaskell/Portunus/gate/internal/webhook"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the scan endpoint",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	b, err := openBackend(ctx, appConfig)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Close(context.Background()); err != nil {
			logger.Warn("storage close failed", slog.String("error", err.Error()))
		}
	}()

	reg := metrics.NewRegistry()

	deps := service.Dependencies{
		Logger:         logger,
		Directory:      b.directory,
		Events:         b.events,
		Stats:          b.stats,
		Notifier:       webhook.New(webhook.Config{Timeout: appConfig.Webhook.Timeout}),
		Metrics:        metrics.New(reg),
		EventRetention: appConfig.ScanEvents.Retention,
	}
	if appConfig.Provider.BaseURL != "" {
		deps.Roles = provider.New(provider.Config{
			BaseURL: appConfig.Provider.BaseURL,
			Timeout: appConfig.Provider.Timeout,
		})
	} else {
		logger.Info("group role lookups disabled (provider.base_url is empty)")
	}
	accessSvc := service.NewAccessService(deps)

	pruner := service.NewScanEventPruner(b.events, service.PrunerConfig{
		Retention: appConfig.ScanEvents.Retention,
		Interval:  appConfig.ScanEvents.PruneInterval,
	}, logger)
	pruner.Start(ctx)
	defer pruner.Stop()

	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:         logger,
		Addr:           appConfig.HTTPAddr,
		AccessService:  accessSvc,
		MetricsHandler: metrics.Handler(reg),
		MetricsPath:    appConfig.Metrics.Path,
	})

	var lis net.Listener
	if appConfig.GRPCAddr != "" {
		if lis, err = net.Listen("tcp", appConfig.GRPCAddr); err != nil {
			return err
		}
	}

	errCh := make(chan error, 2)
	go func() { errCh <- srv.Start() }()

	var healthSrv *health.Server
	var grpcSrv *grpc.Server
	if lis != nil {
		healthSrv = health.NewServer()
		grpcSrv = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcSrv, healthSrv)

		logger.Info("starting grpc health", slog.String("addr", appConfig.GRPCAddr))
		go func() {
			if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errCh <- err
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		if runErr != nil {
			logger.Error("server error", slog.String("error", runErr.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if healthSrv != nil {
		healthSrv.Shutdown()
		grpcSrv.GracefulStop()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.String("error", err.Error()))
	}
	accessSvc.Wait()
	logger.Info("server stopped")

	return runErr
}
