package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jafarshop/storefront/internal/config"
)

var (
	verbose bool
	timeout time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "storefrontctl",
	Short: "Operator tools for the storefront server",
	Long: `storefrontctl runs one-off operator tasks against the storefront
configuration: hashing the admin key, looking up products in the backend
catalog and inspecting browser sessions in Redis.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Operation timeout")

	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionFlushCmd)

	rootCmd.AddCommand(hashKeyCmd)
	rootCmd.AddCommand(findProductCmd)
	rootCmd.AddCommand(sessionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnv loads configuration and a logger for commands that talk to services
func loadEnv() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var logger *zap.Logger
	if verbose {
		logger, _ = zap.NewDevelopment()
	} else {
		logger = zap.NewNop()
	}
	return cfg, logger, nil
}
