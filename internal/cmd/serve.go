package cmd

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/atikulmunna/vislog/internal/server"
)

var serveInbox string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API",
	Long: `Serve the dashboard API: import, export, filtering, editing and live
change events over WebSocket. With --inbox, files dropped into the directory
are imported as well.

Examples:
  vislog serve --port 8080
  vislog serve --inbox ./inbox`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "port to listen on")
	serveCmd.Flags().StringVar(&serveInbox, "inbox", "", "also import files dropped into this directory")
	_ = v.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	p, err := startPipeline(ctx)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	if serveInbox != "" {
		w, in, err := p.newInbox(serveInbox, cfg.Inbox.Pattern, cfg.Inbox.Append)
		if err != nil {
			return err
		}
		go w.Start(ctx)
		g.Go(func() error {
			in.Start(ctx)
			return nil
		})
		g.Go(func() error {
			// The inbox logs each outcome itself.
			for range in.Outcomes() {
			}
			return nil
		})
	}

	srv := server.New(server.Options{
		Store:       p.store,
		Importer:    p.importer,
		Hub:         p.hub,
		Aggregator:  p.agg,
		Logger:      log,
		Port:        cfg.Server.Port,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	g.Go(func() error {
		defer cancel()
		return srv.Start(ctx)
	})
	return g.Wait()
}
