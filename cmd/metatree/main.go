package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nainya/metatree/internal/config"
	"github.com/nainya/metatree/internal/logger"
)

var (
	// Version information - will be set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var cfg *config.Config

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.InitGlobalLogger(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
	})

	rootCmd := &cobra.Command{
		Use:   "metatree",
		Short: "Versioned metadata store tooling",
		Long: `Metatree dumps metadata records from versioned metadata stores and
runs metadata extractors on datasets and the files inside them.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
