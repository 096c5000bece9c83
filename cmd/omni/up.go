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
	"github.com/omnicli/omni/internal/config"
	"github.com/omnicli/omni/internal/gc"
	tomeilog "github.com/omnicli/omni/internal/log"
	"github.com/omnicli/omni/internal/orchestrator"
	"github.com/omnicli/omni/internal/workdir"
)

type upConfig struct {
	trust     bool
	upgrade   bool
	cachePath string
	quiet     bool
	noColor   bool
}

var upCfg upConfig

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Install everything the current work directory declares",
	Long: `Up reads the work directory's .omni.yaml manifest, plans each
declared operation, installs anything missing, and rebuilds the
dynamic environment. Run 'omni hook env <shell>' from your shell's
prompt hook to pick up the result.`,
	RunE: runUp,
}

func init() {
	upCmd.Flags().BoolVar(&upCfg.trust, "trust", false, "Trust this work directory before applying its manifest")
	upCmd.Flags().BoolVar(&upCfg.upgrade, "upgrade", false, "Allow a bare \"latest\" version expression to cross a major version boundary")
	upCmd.Flags().StringVar(&upCfg.cachePath, "cache-path", "", "Override the cache root directory")
	upCmd.Flags().BoolVarP(&upCfg.quiet, "quiet", "q", false, "Suppress progress output")
	upCmd.Flags().BoolVar(&upCfg.noColor, "no-color", false, "Disable colored output")
}

func runUp(cmd *cobra.Command, _ []string) error {
	if upCfg.noColor {
		color.NoColor = true
	}

	wd, err := findWorkDir()
	if err != nil {
		return err
	}
	if err := wd.EnsureID(); err != nil {
		return err
	}

	user, userCfgPath, err := loadUser()
	if err != nil {
		return err
	}

	if upCfg.trust {
		user = workdir.Trust(user, wd.Root)
		if err := config.SaveUserConfig(userCfgPath, user); err != nil {
			return err
		}
	}

	manifest, _, err := config.LoadWorkDirConfig(wd.Root)
	if err != nil {
		return err
	}
	if manifest == nil {
		manifest = &config.WorkDirConfig{}
	}

	paths, err := resolvePaths(upCfg.cachePath, manifest.Cache.Path)
	if err != nil {
		return err
	}

	store, err := cache.Open(paths)
	if err != nil {
		return err
	}
	defer store.Close()

	cacheCfg := mergedCacheConfig(user, manifest)
	driver := newDispatcher(paths, store, wd.Root, cacheCfg, upCfg.upgrade)

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
		_, err := o.Up(ctx, wd, manifest, user)
		return err
	}, logStore, cmd.OutOrStdout(), upCfg.quiet)

	if runErr != nil {
		return fmt.Errorf("up failed: %w", runErr)
	}
	return nil
}

// mergedCacheConfig layers the work directory manifest's cache.* knobs
// over the user's global cache configuration -- the manifest is the
// more specific scope, so it wins field by field, with WithDefaults
// filling whatever neither side set.
func mergedCacheConfig(user *config.UserConfig, manifest *config.WorkDirConfig) config.CacheConfig {
	merged := user.Cache
	if manifest.Cache.CatalogTTL != 0 {
		merged.CatalogTTL = manifest.Cache.CatalogTTL
	}
	if manifest.Cache.CatalogRetention != 0 {
		merged.CatalogRetention = manifest.Cache.CatalogRetention
	}
	if manifest.Cache.CleanupAfter != 0 {
		merged.CleanupAfter = manifest.Cache.CleanupAfter
	}
	if manifest.Cache.EnvHistoryRetention != 0 {
		merged.EnvHistoryRetention = manifest.Cache.EnvHistoryRetention
	}
	if manifest.Cache.MaxPerWorkdir != 0 {
		merged.MaxPerWorkdir = manifest.Cache.MaxPerWorkdir
	}
	if manifest.Cache.MaxTotal != 0 {
		merged.MaxTotal = manifest.Cache.MaxTotal
	}
	return merged.WithDefaults()
}
