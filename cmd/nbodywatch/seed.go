package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nbodywatch/internal/config"
	"nbodywatch/internal/logging"
	"nbodywatch/internal/seed"
)

var (
	seedConfigPath string
	seedSchemaPath string
	seedParticles  int
	seedInterval   time.Duration
	seedEndTime    float64
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Generate fake simulation artifacts",
	Long:  "seed stands in for the external simulation engines: it rewrites the configured artifacts with a rotating particle disc until the end time is reached.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(seedConfigPath, seedSchemaPath)
		if err != nil {
			return err
		}
		if seedEndTime > 0 {
			cfg.DefaultEndTime = seedEndTime
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx = logging.NewContext(ctx, logging.New())

		s := seed.New(cfg, seedParticles, seedInterval)
		if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedConfigPath, "config", "config/monitor.yaml", "Path to monitor configuration YAML")
	seedCmd.Flags().StringVar(&seedSchemaPath, "schema", "schemas/monitor.cue", "Path to CUE schema file")
	seedCmd.Flags().IntVar(&seedParticles, "particles", 256, "Particles per artifact")
	seedCmd.Flags().DurationVar(&seedInterval, "interval", 200*time.Millisecond, "Artifact rewrite interval")
	seedCmd.Flags().Float64Var(&seedEndTime, "end", 0, "Simulation end time override")
}
