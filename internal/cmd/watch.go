package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	watchPattern string
	watchAppend  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch DIR",
	Short: "Import visitor-log files as they land in a directory",
	Long: `Watch a directory and import every matching file once its writes have
settled. Files already present are imported first, in name order.

Examples:
  vislog watch ./inbox
  vislog watch ./inbox --pattern "*.csv" --append
  vislog watch ./inbox --output json`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchPattern, "pattern", "p", "", `file name glob (default from inbox.pattern, "*.{xlsx,xls,csv,tsv,txt}")`)
	watchCmd.Flags().BoolVarP(&watchAppend, "append", "a", false, "append each file instead of replacing the stored entries")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	pattern := cfg.Inbox.Pattern
	if watchPattern != "" {
		pattern = watchPattern
	}

	p, err := startPipeline(ctx)
	if err != nil {
		return err
	}
	w, in, err := p.newInbox(args[0], pattern, watchAppend || cfg.Inbox.Append)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "vislog watching %s for %s\n\n", w.Dir(), pattern)

	go w.Start(ctx)
	go in.Start(ctx)

	r := renderer(cmd)
	for o := range in.Outcomes() {
		if o.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", o.Path, o.Err)
			continue
		}
		if err := r.RenderImport(o.Result); err != nil {
			log.Warn("render error", zap.Error(err))
		}
	}
	return nil
}
