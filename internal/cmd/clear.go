package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/atikulmunna/vislog/internal/store"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored entries and filters",
	Long: `Remove all stored entries and filters. Also recovers a state file that
can no longer be read.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	switch {
	case errors.Is(err, store.ErrCorruptState):
		if err := store.Reset(cfg.Store.Path); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if _, err := st.ClearDatabase(); err != nil {
			return err
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Database cleared")
	return nil
}
