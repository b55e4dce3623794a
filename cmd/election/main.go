package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/election-manager/internal/config"
	"github.com/example/election-manager/internal/logging"
)

const programName = "election"

type rootOptions struct {
	configFile string
	envFile    string
	debug      bool
}

type configKey struct{}

func configFromContext(ctx context.Context) (config.Config, error) {
	cfg, ok := ctx.Value(configKey{}).(config.Config)
	if !ok {
		return config.Config{}, errors.New("no configuration loaded")
	}
	return cfg, nil
}

func (o *rootOptions) logger(w io.Writer, cfg config.Config) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if o.debug {
		level = slog.LevelDebug
	}
	return logging.New(w, level).With("component", programName), nil
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Election management service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "path to dotenv file (default ./.env when present)")
	rootCmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "D", false, "enable debug logging")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(opts.configFile, opts.envFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
		return nil
	}

	rootCmd.AddCommand(serveCommand(opts))
	rootCmd.AddCommand(migrateCommand(opts))
	rootCmd.AddCommand(hashAdminKeyCommand())
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", programName, err)
		stop()
		os.Exit(1)
	}
}
