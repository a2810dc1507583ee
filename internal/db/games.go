package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// GameRecord is a cached game row. Genres and Platforms hold the
// JSON-encoded string form used in storage; decoding to lists is the
// mapper's job.
type GameRecord struct {
	ID                int
	Name              string
	BackgroundImage   *string
	Rating            float64
	Released          *string
	Genres            string
	Platforms         string
	Description       *string
	Metacritic        *int
	InWishlist        bool
	AddedToWishlistAt *time.Time
	CachedAt          time.Time
}

// WishlistSort selects the ordering of wishlist queries.
type WishlistSort string

const (
	// WishlistByDateAdded orders newest-added first.
	WishlistByDateAdded WishlistSort = "date_added"
	// WishlistByRating orders highest-rated first.
	WishlistByRating WishlistSort = "rating"
	// WishlistByName orders alphabetically.
	WishlistByName WishlistSort = "name"
)

func (s WishlistSort) orderClause() string {
	switch s {
	case WishlistByRating:
		return "ORDER BY rating DESC"
	case WishlistByName:
		return "ORDER BY name COLLATE NOCASE ASC"
	default:
		return "ORDER BY added_to_wishlist_at DESC"
	}
}

const gameColumns = `id, name, background_image, rating, released, genres, platforms,
	description, metacritic, is_in_wishlist, added_to_wishlist_at, cached_at`

// UpsertGame inserts or replaces a record by id.
func (db *DB) UpsertGame(ctx context.Context, rec GameRecord) error {
	if err := db.execUpsert(ctx, db.conn, rec); err != nil {
		return err
	}
	db.changes.broadcast()
	return nil
}

// UpsertGames inserts or replaces a batch of records in one transaction.
func (db *DB) UpsertGames(ctx context.Context, recs []GameRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, rec := range recs {
		if err := db.execUpsert(ctx, tx, rec); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit upsert transaction: %w", err)
	}
	db.changes.broadcast()
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (db *DB) execUpsert(ctx context.Context, ex execer, rec GameRecord) error {
	query := `
		INSERT INTO games (id, name, background_image, rating, released, genres, platforms,
			description, metacritic, is_in_wishlist, added_to_wishlist_at, cached_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			background_image = excluded.background_image,
			rating = excluded.rating,
			released = excluded.released,
			genres = excluded.genres,
			platforms = excluded.platforms,
			description = excluded.description,
			metacritic = excluded.metacritic,
			is_in_wishlist = excluded.is_in_wishlist,
			added_to_wishlist_at = excluded.added_to_wishlist_at,
			cached_at = excluded.cached_at
	`
	_, err := ex.ExecContext(ctx, query,
		rec.ID, rec.Name, rec.BackgroundImage, rec.Rating, rec.Released,
		rec.Genres, rec.Platforms, rec.Description, rec.Metacritic,
		boolToInt(rec.InWishlist), timeToMillis(rec.AddedToWishlistAt),
		rec.CachedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert game %d: %w", rec.ID, err)
	}
	return nil
}

// GetGameByID returns the cached record for id, or ErrNotFound.
func (db *DB) GetGameByID(ctx context.Context, id int) (*GameRecord, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+gameColumns+" FROM games WHERE id = ?", id)

	rec, err := scanGame(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("game %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get game %d: %w", id, err)
	}
	return rec, nil
}

// AllGames returns every cached record, newest-cached first.
func (db *DB) AllGames(ctx context.Context) ([]GameRecord, error) {
	return db.queryGames(ctx,
		"SELECT "+gameColumns+" FROM games ORDER BY cached_at DESC")
}

// SearchGames returns records whose name contains the query,
// case-insensitively, ordered alphabetically.
func (db *DB) SearchGames(ctx context.Context, query string) ([]GameRecord, error) {
	return db.queryGames(ctx,
		"SELECT "+gameColumns+" FROM games WHERE name LIKE '%' || ? || '%' ORDER BY name COLLATE NOCASE ASC",
		query)
}

// WishlistGames returns wishlisted records in the requested order.
func (db *DB) WishlistGames(ctx context.Context, sort WishlistSort) ([]GameRecord, error) {
	return db.queryGames(ctx,
		"SELECT "+gameColumns+" FROM games WHERE is_in_wishlist = 1 "+sort.orderClause())
}

// SetWishlistStatus updates only the wishlist flag and timestamp for a game.
// The record does not need to exist with full data in the caller.
func (db *DB) SetWishlistStatus(ctx context.Context, id int, inWishlist bool, timestamp *time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		"UPDATE games SET is_in_wishlist = ?, added_to_wishlist_at = ? WHERE id = ?",
		boolToInt(inWishlist), timeToMillis(timestamp), id)
	if err != nil {
		return fmt.Errorf("failed to update wishlist status for game %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update wishlist status for game %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("game %d: %w", id, ErrNotFound)
	}

	db.changes.broadcast()
	return nil
}

// ClearWishlist removes every game from the wishlist.
func (db *DB) ClearWishlist(ctx context.Context) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE games SET is_in_wishlist = 0, added_to_wishlist_at = NULL")
	if err != nil {
		return fmt.Errorf("failed to clear wishlist: %w", err)
	}
	db.changes.broadcast()
	return nil
}

// DeleteStale removes non-wishlisted records cached before the cutoff.
// Wishlisted records are never evicted. Returns the number of rows removed.
func (db *DB) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		"DELETE FROM games WHERE cached_at < ? AND is_in_wishlist = 0",
		before.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale records: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale records: %w", err)
	}
	if n > 0 {
		db.changes.broadcast()
	}
	return n, nil
}

// CountGames returns the number of cached records.
func (db *DB) CountGames(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM games").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count games: %w", err)
	}
	return n, nil
}

// CountWishlisted returns the number of wishlisted records.
func (db *DB) CountWishlisted(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM games WHERE is_in_wishlist = 1").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count wishlisted games: %w", err)
	}
	return n, nil
}

func (db *DB) queryGames(ctx context.Context, query string, args ...any) ([]GameRecord, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var recs []GameRecord
	for rows.Next() {
		rec, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate game rows: %w", err)
	}
	return recs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner) (*GameRecord, error) {
	var (
		rec        GameRecord
		inWishlist int
		addedAt    sql.NullInt64
		cachedAt   int64
	)
	if err := row.Scan(
		&rec.ID, &rec.Name, &rec.BackgroundImage, &rec.Rating, &rec.Released,
		&rec.Genres, &rec.Platforms, &rec.Description, &rec.Metacritic,
		&inWishlist, &addedAt, &cachedAt,
	); err != nil {
		return nil, err
	}

	rec.InWishlist = inWishlist != 0
	if addedAt.Valid {
		t := time.UnixMilli(addedAt.Int64)
		rec.AddedToWishlistAt = &t
	}
	rec.CachedAt = time.UnixMilli(cachedAt)
	return &rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func timeToMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}
