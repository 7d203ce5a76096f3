package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rsheth/callsync/internal/config"
	apperrors "github.com/rsheth/callsync/internal/errors"
	"github.com/rsheth/callsync/internal/logging"
	"github.com/rsheth/callsync/internal/state"
	"github.com/rsheth/callsync/recording"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var Version = "dev"

func main() {
	// Handle clear-history before config loading: resetting sync state
	// must not require a fully configured environment.
	if len(os.Args) > 1 && os.Args[1] == "clear-history" {
		if err := clearHistory(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}

		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func clearHistory() error {
	store, err := state.Load(os.Getenv("STATE_PATH"))
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer store.Close()

	cleared := store.SyncedCount()
	if err := store.Clear(); err != nil {
		return fmt.Errorf("clearing sync history: %w", err)
	}

	fmt.Printf("cleared %d synced recordings; all recordings are eligible for re-upload\n", cleared)

	return nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.NewLogger(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := state.Load(cfg.StatePath)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	defer store.Close()

	scanner := recording.NewScanner(cfg.RecordingsDir, logger)
	client := recording.NewClient(cfg.APIBaseURL, nil)
	syncer := recording.NewSyncer(recording.SyncerConfig{
		UserID:      cfg.UserID,
		FetchLimit:  cfg.FetchLimit,
		Concurrency: cfg.UploadConcurrency,
	}, client, store, logger)

	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "scan":
		return runScan(store, scanner)
	case "sync":
		return runSync(ctx, store, scanner, syncer)
	case "":
		return runDaemon(ctx, cfg, logger, store, scanner, syncer)
	default:
		return fmt.Errorf("unknown command %q (expected scan, sync or clear-history)", cmd)
	}
}

// runScan prints the current inventory without touching the network.
func runScan(store *state.State, scanner *recording.Scanner) error {
	inventory, err := scan(store, scanner)
	if err != nil {
		return err
	}

	var totalBytes int64

	for _, f := range inventory {
		marker := " "
		if f.Synced {
			marker = "*"
		}

		number := f.DisplayPhoneNumber
		if number == "" {
			number = "unknown"
		}

		fmt.Printf("%s %-14s %-13s %19s  %8s  %7s  %s\n",
			marker,
			f.CallType,
			number,
			f.Timestamp,
			recording.FormatDuration(f.DurationMillis),
			recording.FormatFileSize(f.SizeBytes),
			f.FileName,
		)

		totalBytes += f.SizeBytes
	}

	p := message.NewPrinter(language.English)
	p.Printf("%d recordings, %d synced, %d bytes on disk\n",
		len(inventory), countSynced(inventory), totalBytes)

	return nil
}

// runSync performs one orchestration run and prints the report.
func runSync(ctx context.Context, store *state.State, scanner *recording.Scanner, syncer *recording.Syncer) error {
	inventory, err := scan(store, scanner)
	if err != nil {
		return err
	}

	report, err := syncer.SyncUnsynced(ctx, inventory)
	if err != nil {
		return err
	}

	p := message.NewPrinter(language.English)
	p.Printf("uploaded %d of %d recordings (%d already synced, %d failed, %d linked to call logs)\n",
		report.Succeeded, report.Total, report.Skipped, report.Failed, report.Matched)

	return nil
}

// runDaemon keeps scanning and syncing on the configured triggers until
// interrupted.
func runDaemon(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	store *state.State,
	scanner *recording.Scanner,
	syncer *recording.Syncer,
) error {
	if !cfg.AutoRefresh && cfg.SyncInterval == 0 {
		return fmt.Errorf("daemon mode needs AUTO_REFRESH or a non-zero SYNC_INTERVAL")
	}

	logger.Info("callsync starting",
		slog.String("version", Version),
		slog.String("dir", cfg.RecordingsDir),
		slog.Bool("auto_sync", cfg.AutoSync),
		slog.Bool("auto_refresh", cfg.AutoRefresh),
		slog.Duration("interval", cfg.SyncInterval),
	)

	refresh := func(ctx context.Context) {
		inventory, err := scan(store, scanner)
		if err != nil {
			logger.Warn("scan failed", slog.String("error", err.Error()))
			return
		}

		if !cfg.AutoSync {
			return
		}

		report, err := syncer.SyncUnsynced(ctx, inventory)
		if err != nil {
			// A trigger landing mid-run is expected; the in-flight run
			// covers the same files.
			if errors.Is(err, apperrors.ErrSyncInProgress) {
				logger.Debug("sync already running, trigger dropped")
				return
			}

			logger.Warn("sync failed", slog.String("error", err.Error()))

			return
		}

		logger.Info("auto-sync finished",
			slog.Int("succeeded", report.Succeeded),
			slog.Int("failed", report.Failed),
			slog.Int("matched", report.Matched),
		)
	}

	// First pass on startup so a long interval doesn't delay the
	// initial inventory.
	refresh(ctx)

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AutoRefresh {
		watcher := recording.NewWatcher(cfg.RecordingsDir, refresh, logger)
		g.Go(func() error {
			return watcher.Watch(gctx)
		})
	}

	if cfg.SyncInterval > 0 {
		g.Go(func() error {
			return runTicker(gctx, cfg.SyncInterval, refresh)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		logger.Info("callsync stopped")
		return nil
	}

	return err
}

func runTicker(ctx context.Context, interval time.Duration, refresh func(context.Context)) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			refresh(ctx)
		}
	}
}

func scan(store *state.State, scanner *recording.Scanner) ([]recording.File, error) {
	syncedKeys, err := store.SyncedKeys()
	if err != nil {
		return nil, fmt.Errorf("loading synced keys: %w", err)
	}

	inventory, err := scanner.Scan(syncedKeys)
	if err != nil {
		return nil, fmt.Errorf("scanning recordings: %w", err)
	}

	return inventory, nil
}

func countSynced(inventory []recording.File) int {
	n := 0

	for i := range inventory {
		if inventory[i].Synced {
			n++
		}
	}

	return n
}
