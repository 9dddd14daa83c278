package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/harshpatel5940/reelmark/internal/logger"
	"github.com/harshpatel5940/reelmark/internal/metrics"
	"github.com/harshpatel5940/reelmark/internal/server"
	"github.com/harshpatel5940/reelmark/internal/syncer"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP bridge for the player plugin",
	Long: `Serve the bookmark store and cloud sync over HTTP on localhost.

Routes:
  GET  /healthz
  GET  /v1/bookmarks[?file=<path>]
  PUT  /v1/bookmarks
  POST /v1/sync       {"action":"sync","provider":"gdrive","credentials":{...}}
  GET  /metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	m, err := a.manager()
	if err != nil {
		return err
	}
	rec := metrics.New()
	h := syncer.New(m, a.log, syncer.WithTimeout(a.cfg.Sync.Timeout), syncer.WithRecorder(rec))

	listen := a.cfg.Server.Listen
	if serveListen != "" {
		listen = serveListen
	}
	srv := server.New(server.Options{
		Listen:      listen,
		RateLimit:   a.cfg.Server.RateLimit,
		SyncTimeout: a.cfg.Sync.Timeout,
	}, a.log, server.Deps{Store: a.store, Sync: h, Metrics: rec})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		a.log.Error("shutdown failed", logger.Error(err))
		return err
	}
	return <-errCh
}
