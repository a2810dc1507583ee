package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gameshelf/gameshelf/internal/catalog"
	"github.com/gameshelf/gameshelf/internal/config"
	"github.com/gameshelf/gameshelf/internal/db"
	"github.com/gameshelf/gameshelf/internal/gamesdb"
	"github.com/gameshelf/gameshelf/internal/logging"
	"github.com/gameshelf/gameshelf/internal/tracing"
)

var cfg *config.Config

func main() {
	ctx := context.Background()

	// Load config
	var err error
	cfg, err = config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}

	// Setup Logging
	logging.Setup(logging.Config{
		Format: cfg.Logging.Format,
		Level:  cfg.Logging.Level,
	})

	// Setup Tracing
	shutdown, err := tracing.Setup(ctx, tracing.DefaultConfig())
	if err != nil {
		logging.Error("failed to setup tracing", "error", err)
	}
	defer func() {
		if shutdown == nil {
			return
		}
		if err := shutdown(ctx); err != nil {
			logging.Error("failed to shutdown tracing", "error", err)
		}
	}()

	// Parse global flags (--json, --quiet)
	args := parseGlobalFlags(os.Args[1:])

	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "trending", "new", "top":
		handleViewCommand(ctx, args[0])
	case "search":
		handleSearchCommand(ctx, args[1:])
	case "details":
		handleDetailsCommand(ctx, args[1:])
	case "similar":
		handleSimilarCommand(ctx, args[1:])
	case "screenshots":
		handleScreenshotsCommand(ctx, args[1:])
	case "genres":
		handleGenresCommand(ctx)
	case "wishlist":
		if len(args) < 2 {
			fmt.Println("Usage: gameshelf wishlist <command>")
			fmt.Println("Commands: list, add, remove, clear")
			os.Exit(1)
		}
		handleWishlistCommand(ctx, args[1:])
	case "sync":
		handleSyncCommand(ctx)
	case "prune":
		handlePruneCommand(ctx)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("gameshelf - game catalog browser")
	fmt.Println()
	fmt.Println("Usage: gameshelf [global options] <command> [options]")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  --json                              Output in JSON format")
	fmt.Println("  --quiet, -q                         Suppress non-error output")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  trending                            Show trending games")
	fmt.Println("  new                                 Show new releases")
	fmt.Println("  top                                 Show top rated games")
	fmt.Println("  search <query> [--genre g] [--sort rating|released|name]")
	fmt.Println("  details <id>                        Show game details")
	fmt.Println("  similar <id>                        Show similar games")
	fmt.Println("  screenshots <id>                    Show screenshot URLs")
	fmt.Println("  genres                              List genres")
	fmt.Println("  wishlist list [date|rating|name]    Show the wishlist")
	fmt.Println("  wishlist add <id>                   Add a game to the wishlist")
	fmt.Println("  wishlist remove <id>                Remove a game from the wishlist")
	fmt.Println("  wishlist clear                      Empty the wishlist")
	fmt.Println("  sync                                Refresh all catalog views and prune")
	fmt.Println("  prune                               Remove stale cache records")
	fmt.Println("  help                                Show this help")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  GAMESHELF_DB                        Database path (default: gameshelf.db)")
	fmt.Println("  GAMESDB_API_KEY                     TheGamesDB API key")
}

func openDB(ctx context.Context) (*db.DB, error) {
	return db.Open(ctx, cfg.GetDBPath())
}

// openRepo wires the client, store and repository. The caller closes the
// returned store.
func openRepo(ctx context.Context) (*catalog.Repository, *db.DB, error) {
	store, err := openDB(ctx)
	if err != nil {
		return nil, nil, err
	}

	client := gamesdb.NewClient(cfg.BaseURL, cfg.APIKey,
		gamesdb.WithTimeout(cfg.GetHTTPTimeout()))

	repo := catalog.New(client, store,
		catalog.WithCacheMaxAge(cfg.GetCacheMaxAge()))
	return repo, store, nil
}
