// main.go
// Senegal Excursion API
// Serves the public site, the gallery admin and the travel assistant.

package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"excursion/config"
	"excursion/logging"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "excursion",
		Short:         "Senegal Excursion site and admin API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(seedCmd())
	return cmd
}

// bootstrap loads .env, the configuration and the logger shared by every command.
func bootstrap() (*config.Config, *zap.Logger, error) {
	envErr := godotenv.Load()

	cfg := config.Load()
	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, nil, err
	}
	if envErr != nil {
		logger.Debug("no .env file found, using system environment variables")
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return nil, nil, err
	}
	return cfg, logger, nil
}
