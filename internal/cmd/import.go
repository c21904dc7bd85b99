package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importAppend bool

var importCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import a visitor-log file",
	Long: `Import a visitor-log file (.xlsx, .xls, .csv, .tsv or .txt) and store the
normalized entries. The stored entries are replaced unless --append is given.

Examples:
  vislog import visitors.xlsx
  vislog import march.csv --append`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().BoolVarP(&importAppend, "append", "a", false, "append to the stored entries instead of replacing them")
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}

	res, err := newImporter().ImportFile(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("import %s: %w", args[0], err)
	}

	if importAppend {
		_, err = st.AppendLogs(res.Entries)
	} else {
		_, err = st.SetLogs(res.Entries)
	}
	if err != nil {
		return fmt.Errorf("save entries: %w", err)
	}

	log.Debug("entries stored",
		zap.String("file", args[0]),
		zap.Int("entries", len(res.Entries)),
		zap.Bool("append", importAppend),
	)
	return renderer(cmd).RenderImport(res)
}
