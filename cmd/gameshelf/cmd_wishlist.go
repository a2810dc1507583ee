package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gameshelf/gameshelf/internal/db"
)

func handleWishlistCommand(ctx context.Context, args []string) {
	switch args[0] {
	case "list":
		sort := db.WishlistByDateAdded
		if len(args) > 1 {
			switch args[1] {
			case "date":
				sort = db.WishlistByDateAdded
			case "rating":
				sort = db.WishlistByRating
			case "name":
				sort = db.WishlistByName
			default:
				PrintError("Error: unknown sort %q (want date, rating or name)\n", args[1])
				os.Exit(1)
			}
		}
		listWishlist(ctx, sort)
	case "add":
		addToWishlist(ctx, args[1:])
	case "remove":
		removeFromWishlist(ctx, args[1:])
	case "clear":
		clearWishlist(ctx)
	default:
		fmt.Printf("Unknown wishlist command: %s\n", args[0])
		os.Exit(1)
	}
}

func listWishlist(ctx context.Context, sort db.WishlistSort) {
	repo, store, err := openRepo(ctx)
	if err != nil {
		PrintError("Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	// Take the initial snapshot from the live subscription.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	games, ok := <-repo.Wishlist(ctx, sort)
	if !ok {
		PrintError("Error: failed to read wishlist\n")
		os.Exit(1)
	}
	PrintGames(games)
}

func addToWishlist(ctx context.Context, args []string) {
	id := parseGameID(args, "wishlist add")

	repo, store, err := openRepo(ctx)
	if err != nil {
		PrintError("Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	// Resolve the game first so an uncached id still lands with full data.
	game, err := repo.GameDetails(ctx, id)
	if err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}

	if err := repo.AddToWishlist(ctx, game); err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}
	PrintInfo("Added %q to wishlist\n", game.Name)
}

func removeFromWishlist(ctx context.Context, args []string) {
	id := parseGameID(args, "wishlist remove")

	repo, store, err := openRepo(ctx)
	if err != nil {
		PrintError("Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	if err := repo.RemoveFromWishlist(ctx, id); err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}
	PrintInfo("Removed game %d from wishlist\n", id)
}

func clearWishlist(ctx context.Context) {
	repo, store, err := openRepo(ctx)
	if err != nil {
		PrintError("Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	if err := repo.ClearWishlist(ctx); err != nil {
		PrintError("Error: %v\n", err)
		os.Exit(1)
	}
	PrintInfo("Wishlist cleared\n")
}
