package app

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	syncapp "github.com/voyagedesk/inventory-sync/internal/app"
	"github.com/voyagedesk/inventory-sync/internal/config"
	"github.com/voyagedesk/inventory-sync/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the inventory sync API server",
	Long: `Start the inventory sync API server together with the sync scheduler.

The server requires a configuration file (--config) that specifies:
- the suppliers, their connectors and initial sync schedules
- the storage backend (memory, file or database) and the supplier lock
- sync tuning, CORS origins and telemetry

See the examples/ directory for sample configurations.`,
	RunE: runServe,
}

const defaultGracefulTimeout = 30 * time.Second

func init() {
	serveCmd.Flags().String("address", ":8080", "Address to listen on")
	serveCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")

	if err := viper.BindPFlag("address", serveCmd.Flags().Lookup("address")); err != nil {
		logger.Fatalf("Failed to bind address flag: %v", err)
	}
	if err := viper.BindPFlag("config", serveCmd.Flags().Lookup("config")); err != nil {
		logger.Fatalf("Failed to bind config flag: %v", err)
	}

	if err := serveCmd.MarkFlagRequired("config"); err != nil {
		logger.Fatalf("Failed to mark config flag as required: %v", err)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	address := viper.GetString("address")
	configPath := viper.GetString("config")

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Infof("Loaded configuration from %s (tenant: %s, suppliers: %d, storage: %s)",
		configPath, cfg.GetTenant(), len(cfg.Suppliers), cfg.GetStorageType())

	app, err := syncapp.NewSyncApp(ctx,
		syncapp.WithConfig(cfg),
		syncapp.WithAddress(address),
	)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Start()
	}()

	select {
	case err := <-errChan:
		stopErr := app.Stop(defaultGracefulTimeout)
		if err != nil {
			return err
		}
		return stopErr
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	if err := app.Stop(defaultGracefulTimeout); err != nil {
		logger.Errorf("Shutdown completed with errors: %v", err)
		return err
	}
	if err := <-errChan; err != nil {
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}
