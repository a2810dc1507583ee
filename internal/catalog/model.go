// Package catalog reconciles the remote games API with the local cache
// behind a stable domain-facing contract.
package catalog

import "time"

// Game is the domain entity exposed to callers.
//
// AddedToWishlistAt is non-nil if and only if InWishlist is true.
type Game struct {
	ID                int
	Name              string
	BackgroundImage   *string
	Rating            float64
	Released          *string
	Genres            []string
	Platforms         []string
	Description       *string
	Metacritic        *int
	InWishlist        bool
	AddedToWishlistAt *time.Time
}

// Genre is a single entry of the upstream genre taxonomy.
type Genre struct {
	ID   int
	Name string
	Slug string
}

// Update is one emission from a catalog view subscription. Stale marks the
// provisional cached emission that precedes the fresh network result.
type Update struct {
	Games []Game
	Err   error
	Stale bool
}
