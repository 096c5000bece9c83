package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/omnicli/omni/internal/cache"
	"github.com/omnicli/omni/internal/gc"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the local install cache",
}

var cacheCachePath string

var cacheGCCmd = &cobra.Command{
	Use:   "gc",
	Short: "Reclaim installs nothing references and trim old catalog/history rows",
	RunE:  runCacheGC,
}

var cacheGCDryRun bool

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached installs",
	RunE:  runCacheList,
}

var cacheListKind string

func init() {
	cacheCmd.PersistentFlags().StringVar(&cacheCachePath, "cache-path", "", "Override the cache root directory")
	cacheGCCmd.Flags().BoolVar(&cacheGCDryRun, "dry-run", false, "Report what would be reclaimed without changing anything")
	cacheListCmd.Flags().StringVar(&cacheListKind, "kind", "", "Restrict the listing to one operation kind")
	cacheCmd.AddCommand(cacheGCCmd, cacheListCmd)
}

func runCacheGC(cmd *cobra.Command, _ []string) error {
	paths, err := resolvePaths(cacheCachePath, "")
	if err != nil {
		return err
	}

	store, err := cache.Open(paths)
	if err != nil {
		return err
	}
	defer store.Close()

	user, _, err := loadUser()
	if err != nil {
		return err
	}

	collector := gc.New(store, paths, user.Cache)
	report, err := collector.Run(cmd.Context(), cacheGCDryRun)
	if err != nil {
		return err
	}

	verb := "removed"
	if cacheGCDryRun {
		verb = "would remove"
	}
	for i, key := range report.InstallsRemoved {
		path := ""
		if i < len(report.InstallPaths) {
			path = report.InstallPaths[i]
		}
		cmd.Printf("%s %s (%s)\n", verb, key, path)
	}
	cmd.Printf("catalogs trimmed: %d\n", report.CatalogsTrimmed)
	cmd.Printf("env-history closed: %d, trimmed: %d\n", report.EnvHistoryClosed, report.EnvHistoryTrimmed)
	return nil
}

func runCacheList(cmd *cobra.Command, _ []string) error {
	paths, err := resolvePaths(cacheCachePath, "")
	if err != nil {
		return err
	}

	store, err := cache.Open(paths)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListInstallsByKind(cmd.Context(), cacheListKind)
	if err != nil {
		return err
	}

	for _, rec := range records {
		installedAt := time.Unix(rec.InstalledAt, 0).Format(time.RFC3339)
		cmd.Printf("%-16s %-40s %s\n", rec.Kind, rec.IdentityKey, installedAt)
	}
	return nil
}
