package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/omnicli/omni/internal/cache"
	"github.com/omnicli/omni/internal/gc"
	tomeilog "github.com/omnicli/omni/internal/log"
	"github.com/omnicli/omni/internal/orchestrator"
)

type downConfig struct {
	cachePath string
	quiet     bool
	noColor   bool
}

var downCfg downConfig

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Release the current work directory's claim on its installs",
	Long: `Down drops every reference the current work directory holds in
the Cache Store and closes its dynamic environment history. Installs
are not deleted immediately -- they are reclaimed by the garbage
collector once nothing references them and the grace period passes.`,
	RunE: runDown,
}

func init() {
	downCmd.Flags().StringVar(&downCfg.cachePath, "cache-path", "", "Override the cache root directory")
	downCmd.Flags().BoolVarP(&downCfg.quiet, "quiet", "q", false, "Suppress progress output")
	downCmd.Flags().BoolVar(&downCfg.noColor, "no-color", false, "Disable colored output")
}

func runDown(cmd *cobra.Command, _ []string) error {
	if downCfg.noColor {
		color.NoColor = true
	}

	wd, err := findWorkDir()
	if err != nil {
		return err
	}

	user, _, err := loadUser()
	if err != nil {
		return err
	}

	paths, err := resolvePaths(downCfg.cachePath, "")
	if err != nil {
		return err
	}

	store, err := cache.Open(paths)
	if err != nil {
		return err
	}
	defer store.Close()

	cacheCfg := user.Cache.WithDefaults()
	driver := newDispatcher(paths, store, wd.Root, cacheCfg, false)

	o := orchestrator.New(store, driver)
	o.GC = gc.New(store, paths, cacheCfg)

	logsDir := paths.CacheRoot() + "/logs"
	logStore, err := tomeilog.NewStore(logsDir)
	if err != nil {
		slog.Warn("failed to create log store", "error", err)
	}
	if logStore != nil {
		defer logStore.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := runOrchestrated(ctx, o, func(ctx context.Context) error {
		_, err := o.Down(ctx, wd)
		if err != nil {
			return err
		}
		if o.GC != nil {
			if _, err := o.GC.Run(ctx, false); err != nil {
				slog.Warn("garbage collection failed after down", "error", err)
			}
		}
		return nil
	}, logStore, cmd.OutOrStdout(), downCfg.quiet)

	if runErr != nil {
		return fmt.Errorf("down failed: %w", runErr)
	}
	return nil
}
