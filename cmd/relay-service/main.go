package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"hookrelay/internal/config"
	"hookrelay/internal/constants"
	"hookrelay/internal/logger"
	"hookrelay/pkg/logging"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "relay-service",
		Short: "Webhook relay service",
		Long:  "Receives page webhook events, classifies and persists them, and forwards them to the processing backend",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook relay service",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog()

			// Local development keeps secrets in a .env file; absence is
			// normal in deployed environments.
			if err := godotenv.Load(); err == nil {
				earlyLog.Info("Loaded environment from .env file")
			}

			if configFile == "" {
				configFile = os.Getenv("CONFIG_FILE")
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				earlyLog.Error("Failed to load config: %v", err)
				return err
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				earlyLog.Error("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting webhook relay service")

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.Fatalf("Failed to initialize application: %v", err)
			}

			log.InfowCtx(ctx, "Webhook relay service running", "port", cfg.Server.Port)
			runErr := app.Run(ctx)

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer shutdownCancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				log.ErrorwCtx(shutdownCtx, "Shutdown error", "error", err)
			}

			if runErr != nil && runErr != context.Canceled {
				log.ErrorwCtx(ctx, "Service stopped with error", "error", runErr)
				return runErr
			}
			log.InfowCtx(ctx, "Shutdown complete")
			return nil
		},
	}
}
