package cmd

import (
	"github.com/spf13/cobra"

	"github.com/atikulmunna/vislog/internal/model"
)

var (
	listFilters model.LogFilters
	listReset   bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored entries",
	Long: `List the current view of the stored entries. Filter flags replace the
active filters and are remembered for later calls; --reset clears them.
The index shown for each entry is its position in the full list, as used by
edit and delete.

Examples:
  vislog list
  vislog list --domain acme --method POST
  vislog list --reset`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	f := listCmd.Flags()
	f.StringVar(&listFilters.IP, "ip", "", "filter by IP (substring)")
	f.StringVar(&listFilters.Domain, "domain", "", "filter by domain (substring, case-insensitive)")
	f.StringVar(&listFilters.PageURL, "page", "", "filter by page URL (substring, case-insensitive)")
	f.StringVar(&listFilters.RequestType, "method", "", `filter by request type ("all" for any)`)
	f.StringVar(&listFilters.DateRange, "date", "", "filter by timestamp text (substring)")
	f.BoolVar(&listReset, "reset", false, "clear the active filters")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	state := st.Snapshot()
	switch {
	case listReset:
		state, err = st.ResetFilters()
	case filterFlagsChanged(cmd):
		state, err = st.FilterLogs(listFilters)
	}
	if err != nil {
		return err
	}

	r := renderer(cmd)
	indices := viewIndices(state.Logs, state.FilteredLogs)
	for i, e := range state.FilteredLogs {
		if err := r.Render(indices[i], e); err != nil {
			return err
		}
	}
	return nil
}

func filterFlagsChanged(cmd *cobra.Command) bool {
	for _, name := range []string{"ip", "domain", "page", "method", "date"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// viewIndices maps each entry of view to its position in logs. view is an
// ordered subsequence of logs; entries that cannot be placed get -1.
func viewIndices(logs, view []model.LogEntry) []int {
	out := make([]int, len(view))
	j := 0
	for i, e := range view {
		for j < len(logs) && logs[j] != e {
			j++
		}
		if j == len(logs) {
			out[i] = -1
			continue
		}
		out[i] = j
		j++
	}
	return out
}
