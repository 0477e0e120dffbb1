package cli

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/lookalike/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/lookalike/internal/adapters/driving/watch"
	"github.com/custodia-labs/lookalike/internal/logger"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API serving feature extraction, index rebuilds and
similarity search.

Routes:
  POST /extract-features   multipart "images" files and "image_ids[]" values
  POST /rebuild-index      reload feature rows and swap in a new index
  POST /search             multipart "image" file, optional "top_k"
  GET  /health             liveness and index readiness
  GET  /index/status       index size, dimension and generation

The index is built on start when index.rebuild_on_start is set, rebuilt
every index.rebuild_interval, and rebuilt when the SQLite database changes
if index.watch is set.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, err := requireServices()
	if err != nil {
		return err
	}

	server, err := httpapi.NewServer(&httpapi.Ports{
		Search:     svc.Search,
		Index:      svc.Index,
		Extraction: svc.Extraction,
	}, svc.Settings.Server.MaxUploadMB)
	if err != nil {
		return err
	}

	addr := serveAddr
	if addr == "" {
		addr = svc.Settings.Server.Addr
	}

	// Background workers exit on cancel before wg.Wait returns.
	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if svc.Settings.Index.RebuildOnStart {
		initialRebuild(ctx, svc)
	}

	if svc.Scheduler != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("Scheduler stopped: %v", err)
			}
		}()
		defer func() { _ = svc.Scheduler.Stop() }()
	}

	if svc.Settings.Index.Watch {
		if err := startWatcher(ctx, &wg, svc); err != nil {
			return err
		}
	}

	st := newStyles(cmd.OutOrStderr())
	cmd.Println(st.title.Render("lookalike") + " " + st.muted.Render("listening on "+addr))

	return server.Run(ctx, addr)
}

// initialRebuild builds the first index. Failure leaves the server up
// and answering 503 until a later rebuild succeeds.
func initialRebuild(ctx context.Context, svc *Services) {
	result, err := svc.Index.Rebuild(ctx)
	if err != nil {
		logger.Warn("Initial index build failed: %v", err)
		return
	}
	logger.Info("Initial index built: %d vectors, %d skipped", result.Indexed, result.Skipped)
}

func startWatcher(ctx context.Context, wg *sync.WaitGroup, svc *Services) error {
	if svc.DatabasePath == "" {
		logger.Warn("index.watch needs the sqlite storage driver; watching disabled")
		return nil
	}
	w, err := watch.New(svc.DatabasePath, svc.Index, 0)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := w.Run(ctx); err != nil {
			logger.Warn("Database watcher stopped: %v", err)
		}
	}()
	return nil
}
