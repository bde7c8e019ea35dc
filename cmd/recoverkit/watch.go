package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/vinayprograms/recoverkit/config"
	"github.com/vinayprograms/recoverkit/logging"
	"github.com/vinayprograms/recoverkit/recovery"
)

const (
	watchDebounce = 150 * time.Millisecond
	clearScreen   = "\033[H\033[2J"
)

func watchCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Redraw retry state whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := flags.projectRoot("")
			cfg, err := config.Load(root)
			if err != nil {
				return err
			}
			logger := flags.newLogger(cfg).WithComponent("watch")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return watchState(ctx, cfg, logger, cmd.OutOrStdout())
		},
	}
}

// watchPaths lists the directories whose changes mean the retry state moved.
// fsnotify is not recursive, so the badger database directory is added
// explicitly.
func watchPaths(cfg *config.Config) []string {
	paths := []string{cfg.StateDir}
	if cfg.Backend == config.BackendBadger {
		paths = append(paths, recovery.BadgerDir(cfg))
	}
	return paths
}

// watchState redraws on every change under the state directories until ctx
// is cancelled. The engine is reopened per change rather than held: badger
// takes an exclusive directory lock and a held file lock would stall hooks.
func watchState(ctx context.Context, cfg *config.Config, logger *logging.Logger, out io.Writer) error {
	paths := watchPaths(cfg)
	for _, p := range paths {
		if err := os.MkdirAll(p, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p, err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, p := range paths {
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}

	// Opening badger for a redraw writes into its own directory; those
	// events are ignored until quietUntil.
	var quietUntil time.Time
	badgerDir := recovery.BadgerDir(cfg)

	redraw := func() {
		engine := recovery.Open(cfg, logger)
		defer func() {
			engine.Close()
			quietUntil = time.Now().Add(watchDebounce)
		}()

		stats, rows, err := collectStatus(ctx, engine, cfg)
		if err != nil {
			logger.Warn("failed to read retry state", map[string]interface{}{"error": err.Error()})
			return
		}
		fmt.Fprint(out, clearScreen)
		fmt.Fprint(out, renderStatus(stats, rows, time.Now()))
		fmt.Fprintln(out, mutedStyle.Render("watching "+strings.Join(paths, ", ")+" (ctrl-c to quit)"))
	}
	redraw()

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantChange(event) {
				continue
			}
			if filepath.Dir(event.Name) == badgerDir && time.Now().Before(quietUntil) {
				continue
			}
			if pending == nil {
				pending = time.After(watchDebounce)
			}

		case <-pending:
			pending = nil
			redraw()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", map[string]interface{}{"error": err.Error()})
		}
	}
}

// relevantChange filters out lock and temp file churn, including badger's
// LOCK file which every open and close touches.
func relevantChange(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if filepath.Base(event.Name) == "LOCK" {
		return false
	}
	return !strings.HasSuffix(event.Name, ".lock") && !strings.HasSuffix(event.Name, ".tmp")
}
