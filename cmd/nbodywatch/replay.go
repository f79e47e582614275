package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"nbodywatch/internal/render"
)

var (
	replayInput string
	replaySpeed float64
	replayPlain bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded metrics log",
	Long:  "replay feeds metric rows from a log file back into GreptimeDB or STDOUT, honoring the recorded timing.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		writer, err := newMetricsWriter(replayPlain)
		if err != nil {
			return err
		}
		return render.ReplayLogFile(replayInput, writer, replaySpeed)
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to metrics log file")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 1.0, "Playback speed multiplier")
	replayCmd.Flags().BoolVar(&replayPlain, "plain", false, "Print to STDOUT instead of writing to DB")
	replayCmd.MarkFlagRequired("input")
}
