package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
)

func handleDetailsCommand(ctx context.Context, args []string) {
	id := parseGameID(args, "details")

	repo, store, err := openRepo(ctx)
	if err != nil {
		PrintError("Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	game, err := repo.GameDetails(ctx, id)
	if err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}

	if outputCfg.JSON {
		PrintResult(game)
		return
	}

	fmt.Printf("%s (ID %d)\n", game.Name, game.ID)
	fmt.Printf("  Rating:    %.1f\n", game.Rating)
	if game.Released != nil {
		fmt.Printf("  Released:  %s\n", *game.Released)
	}
	if len(game.Genres) > 0 {
		fmt.Printf("  Genres:    %s\n", strings.Join(game.Genres, ", "))
	}
	if len(game.Platforms) > 0 {
		fmt.Printf("  Platforms: %s\n", strings.Join(game.Platforms, ", "))
	}
	if game.InWishlist {
		fmt.Printf("  Wishlisted since %s\n", game.AddedToWishlistAt.Format("2006-01-02"))
	}
	if game.Description != nil {
		fmt.Printf("\n%s\n", *game.Description)
	}
}

func handleSimilarCommand(ctx context.Context, args []string) {
	id := parseGameID(args, "similar")

	repo, store, err := openRepo(ctx)
	if err != nil {
		PrintError("Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	games, err := repo.SimilarGames(ctx, id)
	if err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}

	PrintGames(games)
}

func handleScreenshotsCommand(ctx context.Context, args []string) {
	id := parseGameID(args, "screenshots")

	repo, store, err := openRepo(ctx)
	if err != nil {
		PrintError("Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	urls, err := repo.Screenshots(ctx, id)
	if err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}

	PrintResult(urls)
}

func parseGameID(args []string, command string) int {
	if len(args) < 1 {
		fmt.Printf("Usage: gameshelf %s <id>\n", command)
		os.Exit(1)
	}
	id, err := strconv.Atoi(args[0])
	if err != nil {
		PrintError("Error: invalid game id: %v\n", err)
		os.Exit(1)
	}
	return id
}
