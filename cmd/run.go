package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bnema/wallmon/internal/compositor"
	"github.com/bnema/wallmon/internal/config"
	"github.com/bnema/wallmon/internal/logger"
	"github.com/bnema/wallmon/internal/wallpaper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the wallpaper daemon",
	Long: `Run the wallpaper daemon in the foreground. The daemon connects to the
Wayland compositor, creates a background surface on every output named
in the configuration (or covered by the default section), and rotates
wallpapers on the configured schedule until interrupted.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}

	store, err := config.NewStore(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger.Info("configuration loaded", "path", path, "sections", len(store.Current()))

	conn, err := compositor.Connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := wallpaper.NewCache(wallpaper.FileDecoder{}, 0)
	scheduler := wallpaper.NewScheduler(conn, store, cache)

	watcher, err := config.NewWatcher(path, func() {
		previous, err := store.Reload()
		if err != nil {
			logger.Error("config reload failed, keeping previous configuration", "error", err)
			return
		}
		logger.Info("configuration reloaded", "path", path)
		scheduler.Reconcile(previous)
	})
	if err != nil {
		logger.Warn("config hot reload disabled", "error", err)
	} else {
		defer watcher.Close()
		go watcher.Start(ctx)
	}

	logger.Info("wallmon started", "outputs", len(conn.Outputs()))
	return scheduler.Run(ctx)
}
