package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pompomputin/wwebjs-webui-docker/internal/config"
)

type rootOptions struct {
	port    int
	dataDir string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "wa-gateway",
		Short: "Multi-session messaging gateway",
		Long: `wa-gateway runs many messaging-account sessions side by side and exposes
them over an HTTP command API and a websocket event channel.

Configuration is read from the environment (PORT, DATA_DIR, JWT_SECRET, ...);
flags override it.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.PersistentFlags().IntVar(&opts.port, "port", 0, "HTTP listen port (overrides PORT)")
	cmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "data directory (overrides DATA_DIR)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newUserCmd(opts))
	return cmd
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = opts.port
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = opts.dataDir
		// Paths not pinned by the environment follow the new data dir.
		if _, ok := os.LookupEnv("DB_PATH"); !ok {
			cfg.DBPath = ""
		}
		if _, ok := os.LookupEnv("AUTH_DIR"); !ok {
			cfg.AuthDir = ""
		}
		if _, ok := os.LookupEnv("AUDIT_PATH"); !ok {
			cfg.AuditPath = ""
		}
		cfg.ApplyDerived()
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
