package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/straja-ai/docshield/internal/config"
	"github.com/straja-ai/docshield/internal/detector"
	"github.com/straja-ai/docshield/internal/redact"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	var (
		cfgPath string
		envFile string
	)
	root := &cobra.Command{
		Use:           "docshield",
		Short:         "Detect personal data in documents",
		Long:          `docshield finds personal data in document text with a multi-pass pipeline: high-recall candidates, format and checksum validation, address linking and context scoring.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// .env is optional; an explicit --env file is not.
			if envFile != "" {
				if err := godotenv.Load(envFile); err != nil {
					return fmt.Errorf("load env file: %w", err)
				}
			} else {
				_ = godotenv.Load()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "docshield.yaml", "path to config file")
	root.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default: .env if present)")

	open := func(ctx context.Context) (*config.Config, *detector.Detector, error) {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return nil, nil, fmt.Errorf("load config: %w", err)
		}
		detector.Version = version
		d, err := detector.New(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return cfg, d, nil
	}

	root.AddCommand(scanCmd(open))
	root.AddCommand(benchCmd(open))
	return root
}

// opener loads the config and builds a detector. Callers close it.
type opener func(ctx context.Context) (*config.Config, *detector.Detector, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, redact.String(err.Error()))
		os.Exit(1)
	}
}
