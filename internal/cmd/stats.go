package cmd

import (
	"github.com/spf13/cobra"

	"github.com/atikulmunna/vislog/internal/aggregator"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show dashboard statistics for the stored entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		return renderer(cmd).RenderStats(aggregator.Compute(st.Snapshot().Logs, cfg.Stats.TopN))
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
