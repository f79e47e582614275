package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nbodywatch/internal/admin"
	"nbodywatch/internal/config"
	"nbodywatch/internal/logging"
	"nbodywatch/internal/view"
)

var (
	watchConfigPath string
	watchSchemaPath string
	watchPlain      bool
	watchLogFile    string
	watchAdminAddr  string
	watchTick       time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor running simulations live",
	Long:  "watch polls the configured snapshot artifacts and renders particle state, trails and ingest metrics until interrupted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(watchConfigPath, watchSchemaPath)
		if err != nil {
			return err
		}
		if watchTick > 0 {
			cfg.TickIntervalMS = int(watchTick / time.Millisecond)
		}

		log := logging.New()
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, log)

		coord := view.NewCoordinator(cfg, nil, nil, nil)
		sceneW, metricsW, cleanup, err := newWriters(coord.Controls(), watchPlain, watchLogFile)
		if err != nil {
			return err
		}
		defer cleanup()
		coord.SetWriters(sceneW, metricsW)

		if watchAdminAddr != "" {
			srv := admin.NewServer(coord)
			go func() {
				log.Info("admin server listening", "addr", watchAdminAddr)
				if err := srv.Start(watchAdminAddr); err != nil {
					log.Error("admin server failed", "err", err)
				}
			}()
		}

		log.Info("monitor started",
			"session", coord.SessionID(),
			"instances", len(cfg.Instances),
			"tick", cfg.TickInterval())
		coord.Run(ctx)

		log.Info("monitor stopped")
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchConfigPath, "config", "config/monitor.yaml", "Path to monitor configuration YAML")
	watchCmd.Flags().StringVar(&watchSchemaPath, "schema", "schemas/monitor.cue", "Path to CUE schema file")
	watchCmd.Flags().BoolVar(&watchPlain, "plain", false, "Colored line output instead of the TUI")
	watchCmd.Flags().StringVar(&watchLogFile, "log-file", "", "Path to export metrics log (JSONL)")
	watchCmd.Flags().StringVar(&watchAdminAddr, "admin", ":8080", "Admin server listen address (empty to disable)")
	watchCmd.Flags().DurationVar(&watchTick, "tick", 0, "Render tick interval override (e.g. 50ms)")
}
