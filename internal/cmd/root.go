package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/atikulmunna/vislog/internal/config"
	"github.com/atikulmunna/vislog/internal/importer"
	"github.com/atikulmunna/vislog/internal/logger"
	"github.com/atikulmunna/vislog/internal/output"
	"github.com/atikulmunna/vislog/internal/store"
)

var (
	cfgFile   string
	storePath string
	outputFmt string

	v   = viper.New()
	cfg *config.Config
	log = zap.NewNop()
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "vislog",
	Short: "vislog: visitor log importer and dashboard",
	Long: `vislog normalizes visitor-log exports (Excel workbooks, CSV, TSV and
plain text) into a single persisted list of entries. Entries can be filtered,
edited, deleted and exported back to Excel, from the terminal or through the
dashboard API.`,
	SilenceUsage:      true,
	PersistentPreRunE: initApp,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: $HOME/.vislog.yaml)")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "state file (default: $HOME/.vislog/egain-visitor-logs.json)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "output format: text, json")

	_ = v.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("store"))
}

func initApp(cmd *cobra.Command, args []string) error {
	if err := config.Init(v, cfgFile); err != nil {
		return err
	}
	c, err := config.Load(v)
	if err != nil {
		return err
	}
	l, err := logger.New(c.Log)
	if err != nil {
		return err
	}
	cfg, log = c, l
	return nil
}

func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.Store.Path)
	if errors.Is(err, store.ErrCorruptState) {
		log.Error("state file is corrupt", zap.String("path", cfg.Store.Path), zap.Error(err))
	}
	return st, err
}

func newImporter() *importer.Importer {
	return importer.New(importer.WithLogger(log))
}

func renderer(cmd *cobra.Command) output.Renderer {
	return output.New(outputFmt, cmd.OutOrStdout())
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nvislog shutting down gracefully...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
