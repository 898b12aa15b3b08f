package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hupe1980/redboxdb/server"
)

func newServeCmd() *cobra.Command {
	var (
		configPath  string
		addr        string
		metricsAddr string
		dataDir     string
		capacity    int
		logJSON     bool
		logLevel    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the TCP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := server.DefaultConfig()
			if configPath != "" {
				loaded, err := server.LoadConfig(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}

			// Flags override the config file.
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("metrics-addr") {
				cfg.MetricsAddr = metricsAddr
			}
			if cmd.Flags().Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			if cmd.Flags().Changed("capacity") {
				cfg.DefaultCapacity = capacity
			}

			logger, err := newLogger(logJSON, logLevel)
			if err != nil {
				return err
			}

			srv, err := server.New(cfg, func(o *server.Options) {
				o.Logger = logger
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	cmd.Flags().StringVar(&addr, "addr", ":8080", "TCP listen address")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Prometheus /metrics listen address (empty disables)")
	cmd.Flags().StringVar(&dataDir, "data-dir", ".", "directory for database files")
	cmd.Flags().IntVar(&capacity, "capacity", 100000, "row capacity for newly created databases")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "log in JSON")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func newLogger(jsonOut bool, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if jsonOut {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}
