package cli

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/riccamini/shipper/pkg/cli/config"
	githubctrl "github.com/riccamini/shipper/pkg/controller/github"
	controller "github.com/riccamini/shipper/pkg/controller/http"
	githubinfra "github.com/riccamini/shipper/pkg/infra/github"
	"github.com/riccamini/shipper/pkg/infra/registry"
	"github.com/riccamini/shipper/pkg/usecase"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var (
		serverCfg   config.Server
		githubCfg   config.GitHub
		registryCfg config.Registry
		appCfg      config.App
		sentryCfg   config.Sentry
	)

	flags := append(serverCfg.Flags(), githubCfg.Flags()...)
	flags = append(flags, registryCfg.Flags()...)
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, sentryCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			// Configuration errors are fatal before any publish attempt
			// can start
			if err := appCfg.Load(); err != nil {
				return err
			}
			if err := registryCfg.Validate(); err != nil {
				return err
			}
			privateKey, err := githubCfg.PrivateKey()
			if err != nil {
				return err
			}
			if err := sentryCfg.Configure(); err != nil {
				return err
			}
			defer sentry.Flush(2 * time.Second)

			logger.Info("Starting shipper server",
				slog.String("addr", serverCfg.Addr),
				slog.String("app", appCfg.Name),
				slog.String("artifact", appCfg.ArtifactName),
				slog.String("distribution_url", appCfg.DistributionURL),
				slog.String("registry", registryCfg.Endpoint),
			)

			// Wire infra, gate and use case
			artifacts, err := githubinfra.NewClient(githubCfg.AppID, githubCfg.InstallationID, privateKey)
			if err != nil {
				return goerr.Wrap(err, "failed to create GitHub client")
			}
			publisher := registry.NewClient(registryCfg.Endpoint, registryCfg.Username, registryCfg.Token)

			gate := usecase.NewGate()
			releaseUC := usecase.NewPublisher(gate, artifacts, publisher, appCfg.Name, appCfg.ArtifactName)
			processor := githubctrl.NewEventProcessor(releaseUC, artifacts)

			server, err := controller.NewServer(
				ctx,
				processor,
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookSecret(githubCfg.WebhookSecret),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// Start server in goroutine
			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			// Wait for interrupt signal
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			// Graceful shutdown
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
