package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atikulmunna/vislog/internal/importer"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the stored entries to an Excel workbook",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", importer.ExportFileName, "output workbook path")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) (err error) {
	st, err := openStore()
	if err != nil {
		return err
	}
	logs := st.Snapshot().Logs
	if len(logs) == 0 {
		return errors.New("no logs to export: import logs first")
	}

	f, err := os.Create(exportOut)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(exportOut)
		}
	}()

	if err := importer.Export(f, logs); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d entries to %s\n", len(logs), exportOut)
	return nil
}
