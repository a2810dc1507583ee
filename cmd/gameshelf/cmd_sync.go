package main

import (
	"context"
	"os"

	"github.com/schollz/progressbar/v3"

	"github.com/gameshelf/gameshelf/internal/catalog"
	"github.com/gameshelf/gameshelf/internal/metrics"
)

// handleSyncCommand refreshes all three catalog views, prunes stale cache
// records, and refreshes the database gauges.
func handleSyncCommand(ctx context.Context) {
	repo, store, err := openRepo(ctx)
	if err != nil {
		PrintError("Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	views := []struct {
		name   string
		stream func(context.Context) <-chan catalog.Update
	}{
		{"trending", repo.Trending},
		{"new releases", repo.NewReleases},
		{"top rated", repo.TopRated},
	}

	var bar *progressbar.ProgressBar
	if !outputCfg.Quiet && !outputCfg.JSON {
		bar = progressbar.Default(int64(len(views)), "Syncing")
	}

	failed := false
	for _, v := range views {
		var lastErr error
		for u := range v.stream(ctx) {
			if u.Err != nil {
				lastErr = u.Err
			}
		}
		if lastErr != nil {
			PrintError("Error: failed to refresh %s: %v\n", v.name, lastErr)
			failed = true
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}

	removed, err := repo.PruneCache(ctx)
	if err != nil {
		PrintError("Error: prune failed: %v\n", err)
		failed = true
	} else if removed > 0 {
		PrintInfo("Pruned %d stale records\n", removed)
	}

	if err := metrics.UpdateDBMetrics(store.Conn()); err != nil {
		PrintError("Error: failed to update metrics: %v\n", err)
	}

	if failed {
		os.Exit(1)
	}
	PrintInfo("Sync complete\n")
}

func handlePruneCommand(ctx context.Context) {
	repo, store, err := openRepo(ctx)
	if err != nil {
		PrintError("Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	removed, err := repo.PruneCache(ctx)
	if err != nil {
		PrintError("Error: prune failed: %v\n", err)
		os.Exit(1)
	}
	PrintInfo("Pruned %d stale records\n", removed)
}
