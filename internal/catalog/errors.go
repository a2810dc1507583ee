package catalog

import (
	"errors"
	"fmt"

	"github.com/gameshelf/gameshelf/internal/db"
	"github.com/gameshelf/gameshelf/internal/gamesdb"
)

// ErrNotFound is returned when a game exists neither remotely nor in the
// local cache.
var ErrNotFound = errors.New("game not found")

// CatalogError provides context for repository-level errors. Raw transport
// errors never escape the repository unwrapped.
type CatalogError struct {
	Op  string // Operation that failed (e.g., "search games")
	Err error  // Underlying error
}

func (e *CatalogError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CatalogError) Unwrap() error {
	return e.Err
}

// wrapErr wraps err with the failing operation, mapping the store's
// not-found sentinel onto the catalog one.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, db.ErrNotFound) {
		return &CatalogError{Op: op, Err: ErrNotFound}
	}
	return &CatalogError{Op: op, Err: err}
}

// IsConnectivity reports whether err stems from a transport-level failure,
// the class of errors that triggers cache fallback.
func IsConnectivity(err error) bool {
	return gamesdb.IsConnectivityError(err)
}
