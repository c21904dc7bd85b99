package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete INDEX...",
	Short: "Delete stored entries by index",
	Long: `Delete the entries at the given indices (as shown by list). Duplicate and
out-of-range indices are ignored.

Examples:
  vislog delete 4
  vislog delete 0 2 7`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	indices, err := parseIndices(args)
	if err != nil {
		return err
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	before := len(st.Snapshot().Logs)
	state, err := st.DeleteLogs(indices)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries, %d remaining\n", before-len(state.Logs), len(state.Logs))
	return nil
}

func parseIndices(args []string) ([]int, error) {
	out := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid index %q", a)
		}
		out = append(out, n)
	}
	return out, nil
}
