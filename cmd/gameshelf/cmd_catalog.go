package main

import (
	"context"
	"os"
	"strconv"

	"github.com/gameshelf/gameshelf/internal/catalog"
)

// handleViewCommand streams one of the three catalog views: the cached
// snapshot first when present, then the fresh upstream result.
func handleViewCommand(ctx context.Context, view string) {
	repo, store, err := openRepo(ctx)
	if err != nil {
		PrintError("Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	var updates <-chan catalog.Update
	switch view {
	case "new":
		updates = repo.NewReleases(ctx)
	case "top":
		updates = repo.TopRated(ctx)
	default:
		updates = repo.Trending(ctx)
	}

	failed := false
	for u := range updates {
		if u.Err != nil {
			PrintError("Error: %v\n", u.Err)
			failed = true
			continue
		}
		if u.Stale {
			PrintInfo("(cached)\n")
		} else {
			PrintInfo("(fresh)\n")
		}
		PrintGames(u.Games)
	}
	if failed {
		os.Exit(1)
	}
}

func handleGenresCommand(ctx context.Context) {
	repo, store, err := openRepo(ctx)
	if err != nil {
		PrintError("Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	genres, err := repo.Genres(ctx)
	if err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}

	if outputCfg.JSON {
		PrintResult(genres)
		return
	}
	rows := make([][]string, 0, len(genres))
	for _, g := range genres {
		rows = append(rows, []string{strconv.Itoa(g.ID), g.Name, g.Slug})
	}
	PrintTable([]string{"ID", "Name", "Slug"}, rows)
}
