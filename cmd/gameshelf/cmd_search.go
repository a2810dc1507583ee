package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gameshelf/gameshelf/internal/catalog"
)

func handleSearchCommand(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: gameshelf search <query> [--genre <name>] [--sort rating|released|name]")
		os.Exit(1)
	}

	query := args[0]
	var opts catalog.SearchOptions
	for i := 1; i < len(args); i++ {
		switch args[i] {
		case "--genre":
			if i+1 >= len(args) {
				PrintError("Error: --genre requires a value\n")
				os.Exit(1)
			}
			i++
			opts.Genre = args[i]
		case "--sort":
			if i+1 >= len(args) {
				PrintError("Error: --sort requires a value\n")
				os.Exit(1)
			}
			i++
			switch args[i] {
			case "rating":
				opts.Sort = catalog.SortRatingDesc
			case "released":
				opts.Sort = catalog.SortReleasedDesc
			case "name":
				opts.Sort = catalog.SortNameAsc
			default:
				PrintError("Error: unknown sort %q\n", args[i])
				os.Exit(1)
			}
		default:
			PrintError("Error: unknown option %q\n", args[i])
			os.Exit(1)
		}
	}

	repo, store, err := openRepo(ctx)
	if err != nil {
		PrintError("Error: failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	games, err := repo.Search(ctx, query, opts)
	if err != nil {
		PrintError("Error: search failed: %v\n", err)
		os.Exit(1)
	}

	PrintGames(games)
}
