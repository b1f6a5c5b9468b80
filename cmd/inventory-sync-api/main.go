// Package main is the entry point for the inventory sync API server.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/voyagedesk/inventory-sync/cmd/inventory-sync-api/app"
	"github.com/voyagedesk/inventory-sync/internal/config"
	"github.com/voyagedesk/inventory-sync/internal/logger"
)

// getLogLevel reads INVSYNC_LOG_LEVEL, falling back to LOG_LEVEL
func getLogLevel() string {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	level := v.GetString("LOG_LEVEL")
	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	return level
}

func main() {
	var opts []logger.Option
	if os.Getenv("INVSYNC_LOG_FORMAT") == "console" {
		opts = append(opts, logger.WithDevelopment())
	}
	if err := logger.Initialize(getLogLevel(), opts...); err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting inventory sync API server")

	if err := app.NewRootCmd().Execute(); err != nil {
		logger.Sync()
		os.Exit(1)
	}
}
