package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"opsdeck/internal/logging"
	"opsdeck/internal/pipeline"
)

var (
	watchDir   string
	watchDelay time.Duration
	ordersName string
	shipName   string
	trackName  string
)

// watchCmd re-runs the pipeline whenever the export files change.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a drop directory and re-run on export changes",
	Long: `Watches a directory for updated CSV exports and re-runs the full
pipeline after each change, with a debounce so multi-file drops (orders +
shipments copied together) trigger one run instead of several.

Expected file names inside the directory (override with flags):
  orders.csv, shipments.csv, tracking.csv (optional)`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", "", "Directory to watch (required)")
	watchCmd.Flags().DurationVar(&watchDelay, "debounce", 2*time.Second, "Quiet period before a re-run")
	watchCmd.Flags().StringVar(&ordersName, "orders-file", "orders.csv", "Orders file name inside the watch dir")
	watchCmd.Flags().StringVar(&shipName, "shipments-file", "shipments.csv", "Shipments file name inside the watch dir")
	watchCmd.Flags().StringVar(&trackName, "tracking-file", "tracking.csv", "Tracking file name inside the watch dir")
	watchCmd.MarkFlagRequired("dir")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(watchDir); err != nil {
		return fmt.Errorf("watch %s: %w", watchDir, err)
	}
	logger.Info("Watching for export changes",
		zap.String("dir", watchDir),
		zap.Duration("debounce", watchDelay))
	logging.Watch("watching %s", watchDir)

	// Run once on startup if the required files are already present.
	if watchInputsReady() {
		watchRun(ctx)
	}

	var timer *time.Timer
	var timerCh <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !watchRelevant(ev) {
				continue
			}
			logging.Watch("event: %s", ev)
			// Restart the quiet period on every relevant event.
			if timer == nil {
				timer = time.NewTimer(watchDelay)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(watchDelay)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			if !watchInputsReady() {
				logger.Warn("Exports incomplete, waiting for next change")
				continue
			}
			watchRun(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func watchRelevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	return strings.EqualFold(name, ordersName) ||
		strings.EqualFold(name, shipName) ||
		strings.EqualFold(name, trackName)
}

func watchInputsReady() bool {
	for _, name := range []string{ordersName, shipName} {
		if _, err := os.Stat(filepath.Join(watchDir, name)); err != nil {
			return false
		}
	}
	return true
}

func watchRun(ctx context.Context) {
	params, err := buildParams(ctx)
	if err != nil {
		logger.Error("Run skipped", zap.Error(err))
		return
	}

	in := pipeline.Inputs{
		OrdersPath:    filepath.Join(watchDir, ordersName),
		ShipmentsPath: filepath.Join(watchDir, shipName),
	}
	if _, err := os.Stat(filepath.Join(watchDir, trackName)); err == nil {
		in.TrackingPath = filepath.Join(watchDir, trackName)
	}

	start := time.Now()
	res, err := pipeline.Run(ctx, in, params)
	if err != nil {
		logger.Error("Run failed", zap.Error(err))
		logging.Watch("run failed: %v", err)
		return
	}
	logger.Info("Run complete",
		zap.Int("exceptions", len(res.Exceptions)),
		zap.Int("open_followups", len(res.Open)),
		zap.String("run_dir", res.RunDir),
		zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)))
}
