package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/gameshelf/gameshelf/internal/db"
	"github.com/gameshelf/gameshelf/internal/gamesdb"
	"github.com/gameshelf/gameshelf/internal/logging"
	"github.com/gameshelf/gameshelf/internal/metrics"
	"github.com/gameshelf/gameshelf/internal/tracing"
)

// API is the subset of the remote client the repository depends on.
type API interface {
	GamesByName(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error)
	GameByID(ctx context.Context, id int) (*gamesdb.GamesByIDResponse, error)
	Images(ctx context.Context, gameID int) (*gamesdb.ImagesResponse, error)
	Genres(ctx context.Context) (*gamesdb.GenresResponse, error)
}

// Fixed upstream query terms backing the three catalog views. The API has
// no trending or ranking feed; these stand in for one, as in the original
// catalog.
const (
	trendingQuery    = "mario"
	newReleasesQuery = "2024"
	topRatedQuery    = "zelda"
)

const similarGamesLimit = 10

// Repository orchestrates the remote client, the local cache and the mapper.
// It owns the stale-while-revalidate policy, the process-lifetime genre
// lookup, and propagation of locally-owned wishlist state onto fetched
// records. It is the cache's single writer.
type Repository struct {
	api    API
	store  *db.DB
	log    *slog.Logger
	now    func() time.Time
	maxAge time.Duration
	genres *genreCache

	// Coalesces concurrent refreshes of the same view into one upstream
	// fetch shared by all subscribers.
	group singleflight.Group
}

// Option configures a Repository.
type Option func(*Repository)

// WithLogger sets the repository logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Repository) { r.log = log }
}

// WithClock sets the time source used for wishlist and cache timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) { r.now = now }
}

// WithCacheMaxAge sets the retention threshold used by PruneCache.
func WithCacheMaxAge(d time.Duration) Option {
	return func(r *Repository) { r.maxAge = d }
}

// New creates a repository over the given client and cache store.
func New(api API, store *db.DB, opts ...Option) *Repository {
	r := &Repository{
		api:    api,
		store:  store,
		log:    logging.Get(),
		now:    time.Now,
		maxAge: 7 * 24 * time.Hour,
	}
	r.genres = newGenreCache(api.Genres)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Trending streams the trending view: the cached catalog first when
// non-empty, then the fresh upstream result, in upstream order.
func (r *Repository) Trending(ctx context.Context) <-chan Update {
	return r.catalogView(ctx, "trending", trendingQuery, nil)
}

// NewReleases streams the new-releases view, sorted by release date
// descending.
func (r *Repository) NewReleases(ctx context.Context) <-chan Update {
	return r.catalogView(ctx, "new_releases", newReleasesQuery, sortByReleasedDesc)
}

// TopRated streams the top-rated view, sorted by derived rating descending.
func (r *Repository) TopRated(ctx context.Context) <-chan Update {
	return r.catalogView(ctx, "top_rated", topRatedQuery, sortByRatingDesc)
}

// catalogView implements the stale-while-revalidate protocol: emit the
// current cache contents if any, fetch upstream, persist merged records and
// emit the fresh list. A connectivity failure degrades to the cached list;
// any other failure is surfaced directly. The channel closes after the
// final emission.
func (r *Repository) catalogView(ctx context.Context, view, query string, sortGames func([]Game)) <-chan Update {
	out := make(chan Update, 2)

	go func() {
		defer close(out)

		ctx, span := tracing.StartSpan(ctx, "catalog."+view,
			tracing.WithAttributes(attribute.String("catalog.query", query)))
		defer span.End()

		cached, cacheErr := r.cachedGames(ctx)
		if cacheErr != nil {
			r.log.Warn("failed to read cache for provisional emission", "view", view, "error", cacheErr)
		}
		if cacheErr == nil && len(cached) > 0 {
			if !send(ctx, out, Update{Games: cached, Stale: true}) {
				return
			}
		}

		fresh, err := r.refreshView(ctx, view, query, sortGames)
		if err == nil {
			send(ctx, out, Update{Games: fresh})
			return
		}
		tracing.RecordError(span, err)

		if IsConnectivity(err) {
			if cacheErr == nil && len(cached) > 0 {
				metrics.CacheFallbacks.WithLabelValues(view).Inc()
				r.log.Info("serving view from cache after connectivity failure", "view", view, "error", err)
				send(ctx, out, Update{Games: cached})
				return
			}
			send(ctx, out, Update{Err: wrapErr("refresh "+view, err)})
			return
		}

		send(ctx, out, Update{Err: wrapErr("refresh "+view, err)})
	}()

	return out
}

// refreshView fetches, maps, merges and persists one catalog view.
// Concurrent calls for the same view share a single upstream request.
func (r *Repository) refreshView(ctx context.Context, view, query string, sortGames func([]Game)) ([]Game, error) {
	v, err, _ := r.group.Do(view, func() (any, error) {
		start := time.Now()
		genres := r.genres.lookup(ctx)

		resp, err := r.api.GamesByName(ctx, query, 1)
		metrics.RecordFetchDuration(view, start)
		if err != nil {
			metrics.Fetches.WithLabelValues(view, fetchStatus(err)).Inc()
			return nil, err
		}
		metrics.Fetches.WithLabelValues(view, "ok").Inc()

		games := gamesFromNameResponse(resp, genres)
		merged, err := r.persistMerged(ctx, games)
		if err != nil {
			return nil, err
		}
		if sortGames != nil {
			sortGames(merged)
		}
		return merged, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Game), nil
}

// persistMerged copies the locally-owned wishlist flag and timestamp from
// any existing cached record onto each freshly-fetched game, then upserts
// the batch. Network data never overwrites wishlist state.
func (r *Repository) persistMerged(ctx context.Context, games []Game) ([]Game, error) {
	merged := make([]Game, 0, len(games))
	recs := make([]db.GameRecord, 0, len(games))
	cachedAt := r.now()

	for _, g := range games {
		existing, err := r.store.GetGameByID(ctx, g.ID)
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			return nil, err
		}
		if existing != nil {
			g.InWishlist = existing.InWishlist
			g.AddedToWishlistAt = existing.AddedToWishlistAt
		}
		merged = append(merged, g)
		recs = append(recs, recordFromGame(g, cachedAt))
	}

	if err := r.store.UpsertGames(ctx, recs); err != nil {
		return nil, err
	}
	return merged, nil
}

// GameDetails returns a single game. A fresh fetch is attempted even when
// the cache holds a candidate; on connectivity failure the cached candidate
// is returned instead. Without a candidate, a failed fetch surfaces the
// error and an empty response surfaces ErrNotFound.
func (r *Repository) GameDetails(ctx context.Context, id int) (Game, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.GameDetails")
	defer span.End()

	const op = "get game details"

	var cached *Game
	if rec, err := r.store.GetGameByID(ctx, id); err == nil {
		g := gameFromRecord(*rec)
		cached = &g
	} else if !errors.Is(err, db.ErrNotFound) {
		return Game{}, wrapErr(op, err)
	}

	resp, err := r.api.GameByID(ctx, id)
	if err != nil {
		if IsConnectivity(err) && cached != nil {
			metrics.CacheFallbacks.WithLabelValues("details").Inc()
			return *cached, nil
		}
		return Game{}, wrapErr(op, err)
	}

	fresh := gameFromIDResponse(resp, r.genres.lookup(ctx))
	if fresh == nil {
		if cached != nil {
			return *cached, nil
		}
		return Game{}, wrapErr(op, ErrNotFound)
	}

	if cached != nil {
		fresh.InWishlist = cached.InWishlist
		fresh.AddedToWishlistAt = cached.AddedToWishlistAt
	}
	if err := r.store.UpsertGame(ctx, recordFromGame(*fresh, r.now())); err != nil {
		return Game{}, wrapErr(op, err)
	}
	return *fresh, nil
}

// SearchSort selects the ordering of one-shot search results.
type SearchSort string

const (
	// SortDefault keeps upstream order.
	SortDefault SearchSort = ""
	// SortRatingDesc orders highest-rated first.
	SortRatingDesc SearchSort = "rating"
	// SortReleasedDesc orders newest-released first.
	SortReleasedDesc SearchSort = "released"
	// SortNameAsc orders alphabetically.
	SortNameAsc SearchSort = "name"
)

// SearchOptions refine a search: an optional exact-match genre filter
// applied post-fetch against resolved genre names, and a result ordering.
type SearchOptions struct {
	Genre string
	Sort  SearchSort
}

// Search fetches games matching the query, persists them with wishlist
// state merged, and returns the filtered, ordered result. On connectivity
// failure it degrades to the cached name matches, keeping the fallback
// behavior uniform with the catalog views. Callers are expected to debounce
// keystroke-driven invocations.
func (r *Repository) Search(ctx context.Context, query string, opts SearchOptions) ([]Game, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.Search")
	defer span.End()

	const op = "search games"
	genres := r.genres.lookup(ctx)

	start := time.Now()
	resp, err := r.api.GamesByName(ctx, query, 1)
	metrics.RecordFetchDuration("search", start)
	if err != nil {
		metrics.Fetches.WithLabelValues("search", fetchStatus(err)).Inc()
		if !IsConnectivity(err) {
			return nil, wrapErr(op, err)
		}

		recs, cacheErr := r.store.SearchGames(ctx, query)
		if cacheErr != nil {
			return nil, wrapErr(op, cacheErr)
		}
		metrics.CacheFallbacks.WithLabelValues("search").Inc()
		r.log.Info("serving search from cache after connectivity failure", "query", query, "error", err)
		return filterAndSort(gamesFromRecords(recs), opts), nil
	}
	metrics.Fetches.WithLabelValues("search", "ok").Inc()

	games := gamesFromNameResponse(resp, genres)
	merged, err := r.persistMerged(ctx, games)
	if err != nil {
		return nil, wrapErr(op, err)
	}

	return filterAndSort(merged, opts), nil
}

// Wishlist streams the live wishlist: an initial snapshot, then a fresh
// snapshot after every store mutation, until ctx is cancelled.
func (r *Repository) Wishlist(ctx context.Context, sortBy db.WishlistSort) <-chan []Game {
	out := make(chan []Game, 1)
	in := r.store.WatchWishlist(ctx, sortBy)

	go func() {
		defer close(out)
		for recs := range in {
			select {
			case out <- gamesFromRecords(recs):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

// AddToWishlist marks a game as wishlisted, stamped with the current time.
// A game not yet cached is persisted in full so the membership survives.
func (r *Repository) AddToWishlist(ctx context.Context, game Game) error {
	ts := r.now()
	err := r.store.SetWishlistStatus(ctx, game.ID, true, &ts)
	if errors.Is(err, db.ErrNotFound) {
		game.InWishlist = true
		game.AddedToWishlistAt = &ts
		err = r.store.UpsertGame(ctx, recordFromGame(game, ts))
	}
	if err != nil {
		r.log.Error("failed to add game to wishlist", "id", game.ID, "error", err)
		return wrapErr("add to wishlist", err)
	}
	return nil
}

// RemoveFromWishlist clears the wishlist flag and timestamp for a game.
// Removing a game that is not cached is a no-op.
func (r *Repository) RemoveFromWishlist(ctx context.Context, id int) error {
	err := r.store.SetWishlistStatus(ctx, id, false, nil)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		r.log.Error("failed to remove game from wishlist", "id", id, "error", err)
		return wrapErr("remove from wishlist", err)
	}
	return nil
}

// ClearWishlist removes every game from the wishlist.
func (r *Repository) ClearWishlist(ctx context.Context) error {
	if err := r.store.ClearWishlist(ctx); err != nil {
		return wrapErr("clear wishlist", err)
	}
	return nil
}

// IsInWishlist reports whether the game is currently wishlisted. An
// uncached game is simply not wishlisted.
func (r *Repository) IsInWishlist(ctx context.Context, id int) (bool, error) {
	rec, err := r.store.GetGameByID(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, wrapErr("check wishlist", err)
	}
	return rec.InWishlist, nil
}

// Genres returns the genre taxonomy, fetched once and cached for the
// process lifetime. Load failures degrade to an empty list.
func (r *Repository) Genres(ctx context.Context) ([]Genre, error) {
	return r.genres.genres(ctx), nil
}

// Screenshots returns media URLs for a game.
func (r *Repository) Screenshots(ctx context.Context, id int) ([]string, error) {
	resp, err := r.api.Images(ctx, id)
	if err != nil {
		return nil, wrapErr("get screenshots", err)
	}
	return screenshotURLs(id, resp), nil
}

// SimilarGames returns up to ten games sharing the first genre of the given
// game, excluding the game itself. A game without genres, or whose details
// cannot be resolved, yields an empty result rather than an error.
func (r *Repository) SimilarGames(ctx context.Context, id int) ([]Game, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.SimilarGames")
	defer span.End()

	details, err := r.GameDetails(ctx, id)
	if err != nil || len(details.Genres) == 0 {
		return []Game{}, nil
	}

	resp, err := r.api.GamesByName(ctx, details.Genres[0], 1)
	if err != nil {
		return nil, wrapErr("get similar games", err)
	}

	games := gamesFromNameResponse(resp, r.genres.lookup(ctx))
	similar := make([]Game, 0, similarGamesLimit)
	for _, g := range games {
		if g.ID == id {
			continue
		}
		similar = append(similar, g)
		if len(similar) == similarGamesLimit {
			break
		}
	}
	return similar, nil
}

// PruneCache runs the retention sweep, deleting non-wishlisted records older
// than the configured max age. Wishlisted records are never evicted.
func (r *Repository) PruneCache(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "catalog.PruneCache")
	defer span.End()

	n, err := r.store.DeleteStale(ctx, r.now().Add(-r.maxAge))
	if err != nil {
		return 0, wrapErr("prune cache", err)
	}
	if n > 0 {
		metrics.PrunedRecords.Add(float64(n))
		r.log.Info("pruned stale cache records", "removed", n)
	}
	return n, nil
}

// cachedGames reads the full cache contents in newest-cached-first order.
func (r *Repository) cachedGames(ctx context.Context) ([]Game, error) {
	recs, err := r.store.AllGames(ctx)
	if err != nil {
		return nil, err
	}
	return gamesFromRecords(recs), nil
}

func filterAndSort(games []Game, opts SearchOptions) []Game {
	if opts.Genre != "" {
		filtered := make([]Game, 0, len(games))
		for _, g := range games {
			for _, name := range g.Genres {
				if name == opts.Genre {
					filtered = append(filtered, g)
					break
				}
			}
		}
		games = filtered
	}

	switch opts.Sort {
	case SortRatingDesc:
		sortByRatingDesc(games)
	case SortReleasedDesc:
		sortByReleasedDesc(games)
	case SortNameAsc:
		sort.SliceStable(games, func(i, j int) bool { return games[i].Name < games[j].Name })
	}
	return games
}

// sortByReleasedDesc orders by the release date string descending; records
// without a date sort last.
func sortByReleasedDesc(games []Game) {
	sort.SliceStable(games, func(i, j int) bool {
		return releasedKey(games[i]) > releasedKey(games[j])
	})
}

func releasedKey(g Game) string {
	if g.Released == nil {
		return ""
	}
	return *g.Released
}

func sortByRatingDesc(games []Game) {
	sort.SliceStable(games, func(i, j int) bool { return games[i].Rating > games[j].Rating })
}

func fetchStatus(err error) string {
	if IsConnectivity(err) {
		return "connectivity_error"
	}
	return "error"
}

// send delivers an update unless ctx is cancelled first.
func send(ctx context.Context, out chan<- Update, u Update) bool {
	select {
	case out <- u:
		return true
	case <-ctx.Done():
		return false
	}
}
