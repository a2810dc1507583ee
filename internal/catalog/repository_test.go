package catalog

import (
	"context"
	"net/url"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gameshelf/gameshelf/internal/db"
	"github.com/gameshelf/gameshelf/internal/gamesdb"
)

// fakeAPI implements API with overridable behavior per endpoint. The zero
// value answers every call with an empty successful response.
type fakeAPI struct {
	mu        sync.Mutex
	nameCalls int

	gamesByName func(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error)
	gameByID    func(ctx context.Context, id int) (*gamesdb.GamesByIDResponse, error)
	images      func(ctx context.Context, gameID int) (*gamesdb.ImagesResponse, error)
	genres      func(ctx context.Context) (*gamesdb.GenresResponse, error)
}

func (f *fakeAPI) GamesByName(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error) {
	f.mu.Lock()
	f.nameCalls++
	f.mu.Unlock()

	if f.gamesByName == nil {
		return &gamesdb.GamesByNameResponse{Data: &gamesdb.GamesData{}}, nil
	}
	return f.gamesByName(ctx, name, page)
}

func (f *fakeAPI) GameByID(ctx context.Context, id int) (*gamesdb.GamesByIDResponse, error) {
	if f.gameByID == nil {
		return &gamesdb.GamesByIDResponse{Data: &gamesdb.GamesData{}}, nil
	}
	return f.gameByID(ctx, id)
}

func (f *fakeAPI) Images(ctx context.Context, gameID int) (*gamesdb.ImagesResponse, error) {
	if f.images == nil {
		return &gamesdb.ImagesResponse{}, nil
	}
	return f.images(ctx, gameID)
}

func (f *fakeAPI) Genres(ctx context.Context) (*gamesdb.GenresResponse, error) {
	if f.genres == nil {
		return testGenresResponse(), nil
	}
	return f.genres(ctx)
}

func (f *fakeAPI) gamesByNameCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nameCalls
}

func connErr() error {
	return &url.Error{Op: "Get", URL: "http://api.example", Err: syscall.ECONNREFUSED}
}

func openTestStore(t *testing.T) *db.DB {
	t.Helper()

	store, err := db.Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func wireGame(id int, title, rating, released string, genreIDs ...int) gamesdb.Game {
	return gamesdb.Game{
		ID:          id,
		GameTitle:   title,
		Rating:      rating,
		ReleaseDate: released,
		Genres:      genreIDs,
	}
}

func nameResponse(games ...gamesdb.Game) *gamesdb.GamesByNameResponse {
	return &gamesdb.GamesByNameResponse{
		Data: &gamesdb.GamesData{Count: len(games), Games: games},
	}
}

func idResponse(games ...gamesdb.Game) *gamesdb.GamesByIDResponse {
	return &gamesdb.GamesByIDResponse{
		Data: &gamesdb.GamesData{Count: len(games), Games: games},
	}
}

func seedRecord(t *testing.T, store *db.DB, g Game) {
	t.Helper()
	require.NoError(t, store.UpsertGame(context.Background(), recordFromGame(g, time.Now())))
}

func collect(t *testing.T, ch <-chan Update) []Update {
	t.Helper()

	var updates []Update
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return updates
			}
			updates = append(updates, u)
		case <-timeout:
			t.Fatal("timed out draining updates")
		}
	}
}

func TestTrending_EmitsCachedThenFresh(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, Game{ID: 1, Name: "Cached Game"})

	api := &fakeAPI{
		gamesByName: func(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error) {
			return nameResponse(wireGame(2, "Fresh Game", "E - Everyone", "2024-01-01")), nil
		},
	}
	repo := New(api, store)

	updates := collect(t, repo.Trending(context.Background()))
	require.Len(t, updates, 2)

	assert.True(t, updates[0].Stale)
	require.Len(t, updates[0].Games, 1)
	assert.Equal(t, "Cached Game", updates[0].Games[0].Name)

	assert.False(t, updates[1].Stale)
	assert.NoError(t, updates[1].Err)
	require.Len(t, updates[1].Games, 1)
	assert.Equal(t, "Fresh Game", updates[1].Games[0].Name)
	assert.Equal(t, 4.0, updates[1].Games[0].Rating)
}

func TestTrending_EmptyCacheSkipsProvisionalEmission(t *testing.T) {
	store := openTestStore(t)
	api := &fakeAPI{
		gamesByName: func(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error) {
			return nameResponse(wireGame(1, "Only Fresh", "", "")), nil
		},
	}
	repo := New(api, store)

	updates := collect(t, repo.Trending(context.Background()))
	require.Len(t, updates, 1)
	assert.False(t, updates[0].Stale)
	require.Len(t, updates[0].Games, 1)
	assert.Equal(t, "Only Fresh", updates[0].Games[0].Name)
}

func TestTrending_ConnectivityFallsBackToCache(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, Game{ID: 1, Name: "Cached Game"})

	api := &fakeAPI{
		gamesByName: func(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error) {
			return nil, connErr()
		},
	}
	repo := New(api, store)

	updates := collect(t, repo.Trending(context.Background()))
	require.Len(t, updates, 2)

	assert.True(t, updates[0].Stale)

	final := updates[1]
	assert.NoError(t, final.Err)
	assert.False(t, final.Stale)
	require.Len(t, final.Games, 1)
	assert.Equal(t, "Cached Game", final.Games[0].Name)
}

func TestTrending_ConnectivityWithEmptyCacheFails(t *testing.T) {
	store := openTestStore(t)
	api := &fakeAPI{
		gamesByName: func(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error) {
			return nil, connErr()
		},
	}
	repo := New(api, store)

	updates := collect(t, repo.Trending(context.Background()))
	require.Len(t, updates, 1)
	assert.Error(t, updates[0].Err)

	var catErr *CatalogError
	assert.ErrorAs(t, updates[0].Err, &catErr)
}

func TestTrending_StatusErrorDoesNotFallBack(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, Game{ID: 1, Name: "Cached Game"})

	api := &fakeAPI{
		gamesByName: func(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error) {
			return nil, &gamesdb.StatusError{StatusCode: 500, Status: "500 Internal Server Error"}
		},
	}
	repo := New(api, store)

	updates := collect(t, repo.Trending(context.Background()))
	require.Len(t, updates, 2)
	assert.True(t, updates[0].Stale)
	assert.Error(t, updates[1].Err)
	assert.Empty(t, updates[1].Games)
}

func TestCatalogView_PreservesWishlistOnRefresh(t *testing.T) {
	store := openTestStore(t)
	added := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	seedRecord(t, store, Game{
		ID: 42, Name: "Old Title", InWishlist: true, AddedToWishlistAt: &added,
	})

	api := &fakeAPI{
		gamesByName: func(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error) {
			return nameResponse(wireGame(42, "New Title", "T - Teen", "2020-05-05")), nil
		},
	}
	repo := New(api, store)

	updates := collect(t, repo.Trending(context.Background()))
	final := updates[len(updates)-1]
	require.NoError(t, final.Err)
	require.Len(t, final.Games, 1)

	g := final.Games[0]
	assert.Equal(t, "New Title", g.Name)
	assert.True(t, g.InWishlist)
	require.NotNil(t, g.AddedToWishlistAt)
	assert.Equal(t, added.UnixMilli(), g.AddedToWishlistAt.UnixMilli())

	// Persisted state keeps the flag too
	rec, err := store.GetGameByID(context.Background(), 42)
	require.NoError(t, err)
	assert.True(t, rec.InWishlist)
	assert.Equal(t, "New Title", rec.Name)
}

func TestNewReleases_SortedByReleaseDateDesc(t *testing.T) {
	store := openTestStore(t)
	api := &fakeAPI{
		gamesByName: func(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error) {
			return nameResponse(
				wireGame(1, "Oldest", "", "2024-01-01"),
				wireGame(2, "Undated", "", ""),
				wireGame(3, "Newest", "", "2024-12-01"),
			), nil
		},
	}
	repo := New(api, store)

	updates := collect(t, repo.NewReleases(context.Background()))
	final := updates[len(updates)-1]
	require.NoError(t, final.Err)
	require.Len(t, final.Games, 3)
	assert.Equal(t, "Newest", final.Games[0].Name)
	assert.Equal(t, "Oldest", final.Games[1].Name)
	assert.Equal(t, "Undated", final.Games[2].Name)
}

func TestTopRated_SortedByRatingDesc(t *testing.T) {
	store := openTestStore(t)
	api := &fakeAPI{
		gamesByName: func(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error) {
			return nameResponse(
				wireGame(1, "Mature", "M - Mature 17+", ""),
				wireGame(2, "Everyone", "E - Everyone", ""),
				wireGame(3, "Teen", "T - Teen", ""),
			), nil
		},
	}
	repo := New(api, store)

	updates := collect(t, repo.TopRated(context.Background()))
	final := updates[len(updates)-1]
	require.NoError(t, final.Err)
	require.Len(t, final.Games, 3)
	assert.Equal(t, "Everyone", final.Games[0].Name)
	assert.Equal(t, "Teen", final.Games[1].Name)
	assert.Equal(t, "Mature", final.Games[2].Name)
}

func TestRefresh_CoalescesConcurrentFetches(t *testing.T) {
	store := openTestStore(t)

	gate := make(chan struct{})
	entered := make(chan struct{}, 1)
	api := &fakeAPI{
		gamesByName: func(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error) {
			select {
			case entered <- struct{}{}:
			default:
			}
			<-gate
			return nameResponse(wireGame(1, "Shared", "", "")), nil
		},
	}
	repo := New(api, store)

	ctx := context.Background()
	var wg sync.WaitGroup
	results := make([][]Update, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = collect(t, repo.Trending(ctx))
	}()

	<-entered

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = collect(t, repo.Trending(ctx))
	}()

	// Give the second subscriber time to join the in-flight fetch.
	time.Sleep(100 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, 1, api.gamesByNameCalls())
	for _, updates := range results {
		final := updates[len(updates)-1]
		require.NoError(t, final.Err)
		require.Len(t, final.Games, 1)
		assert.Equal(t, "Shared", final.Games[0].Name)
	}
}

func TestGameDetails_FetchesAndPersists(t *testing.T) {
	store := openTestStore(t)
	api := &fakeAPI{
		gameByID: func(ctx context.Context, id int) (*gamesdb.GamesByIDResponse, error) {
			return idResponse(wireGame(7, "Chrono Trigger", "E10+", "1995-03-11", 5)), nil
		},
	}
	repo := New(api, store)

	g, err := repo.GameDetails(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Chrono Trigger", g.Name)
	assert.Equal(t, 3.8, g.Rating)
	assert.Equal(t, []string{"RPG"}, g.Genres)

	rec, err := store.GetGameByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Chrono Trigger", rec.Name)
}

func TestGameDetails_ConnectivityFallsBackToCache(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, Game{ID: 7, Name: "Cached Details"})

	api := &fakeAPI{
		gameByID: func(ctx context.Context, id int) (*gamesdb.GamesByIDResponse, error) {
			return nil, connErr()
		},
	}
	repo := New(api, store)

	g, err := repo.GameDetails(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Cached Details", g.Name)
}

func TestGameDetails_ConnectivityWithoutCacheFails(t *testing.T) {
	store := openTestStore(t)
	api := &fakeAPI{
		gameByID: func(ctx context.Context, id int) (*gamesdb.GamesByIDResponse, error) {
			return nil, connErr()
		},
	}
	repo := New(api, store)

	_, err := repo.GameDetails(context.Background(), 7)
	assert.Error(t, err)
}

func TestGameDetails_EmptyResponseNotFound(t *testing.T) {
	store := openTestStore(t)
	repo := New(&fakeAPI{}, store)

	_, err := repo.GameDetails(context.Background(), 7)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGameDetails_EmptyResponseWithCachedCandidate(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, Game{ID: 7, Name: "Cached Details"})
	repo := New(&fakeAPI{}, store)

	g, err := repo.GameDetails(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Cached Details", g.Name)
}

func TestGameDetails_PreservesWishlist(t *testing.T) {
	store := openTestStore(t)
	added := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	seedRecord(t, store, Game{ID: 7, Name: "Old", InWishlist: true, AddedToWishlistAt: &added})

	api := &fakeAPI{
		gameByID: func(ctx context.Context, id int) (*gamesdb.GamesByIDResponse, error) {
			return idResponse(wireGame(7, "Refetched", "", "")), nil
		},
	}
	repo := New(api, store)

	g, err := repo.GameDetails(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Refetched", g.Name)
	assert.True(t, g.InWishlist)
	require.NotNil(t, g.AddedToWishlistAt)
	assert.Equal(t, added.UnixMilli(), g.AddedToWishlistAt.UnixMilli())
}

func TestSearch_FiltersByGenreAndSorts(t *testing.T) {
	store := openTestStore(t)
	api := &fakeAPI{
		gamesByName: func(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error) {
			return nameResponse(
				wireGame(1, "Beta Quest", "E - Everyone", "2020-01-01", 1, 5),
				wireGame(2, "Puzzle Game", "E - Everyone", "2023-01-01"),
				wireGame(3, "Alpha Saga", "M - Mature", "2024-01-01", 5),
			), nil
		},
	}
	repo := New(api, store)
	ctx := context.Background()

	// Exact genre filter against resolved names
	got, err := repo.Search(ctx, "quest", SearchOptions{Genre: "RPG"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Beta Quest", got[0].Name)
	assert.Equal(t, "Alpha Saga", got[1].Name)

	got, err = repo.Search(ctx, "quest", SearchOptions{Genre: "RPG", Sort: SortNameAsc})
	require.NoError(t, err)
	assert.Equal(t, "Alpha Saga", got[0].Name)

	got, err = repo.Search(ctx, "quest", SearchOptions{Sort: SortReleasedDesc})
	require.NoError(t, err)
	assert.Equal(t, "Alpha Saga", got[0].Name)
	assert.Equal(t, "Puzzle Game", got[1].Name)
	assert.Equal(t, "Beta Quest", got[2].Name)

	got, err = repo.Search(ctx, "quest", SearchOptions{Sort: SortRatingDesc})
	require.NoError(t, err)
	assert.Equal(t, "Alpha Saga", got[2].Name)
}

func TestSearch_ConnectivityFallsBackToCache(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, Game{ID: 1, Name: "Super Mario World"})
	seedRecord(t, store, Game{ID: 2, Name: "The Legend of Zelda"})

	api := &fakeAPI{
		gamesByName: func(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error) {
			return nil, connErr()
		},
	}
	repo := New(api, store)

	got, err := repo.Search(context.Background(), "mario", SearchOptions{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Super Mario World", got[0].Name)
}

func TestSearch_StatusErrorSurfaces(t *testing.T) {
	store := openTestStore(t)
	seedRecord(t, store, Game{ID: 1, Name: "Super Mario World"})

	api := &fakeAPI{
		gamesByName: func(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error) {
			return nil, &gamesdb.StatusError{StatusCode: 403, Status: "403 Forbidden"}
		},
	}
	repo := New(api, store)

	_, err := repo.Search(context.Background(), "mario", SearchOptions{})
	assert.Error(t, err)
}

func TestWishlist_AddRemoveClear(t *testing.T) {
	store := openTestStore(t)
	repo := New(&fakeAPI{}, store)
	ctx := context.Background()

	// Adding an uncached game persists it in full
	game := Game{ID: 99, Name: "Uncached Game", Rating: 4.0}
	require.NoError(t, repo.AddToWishlist(ctx, game))

	in, err := repo.IsInWishlist(ctx, 99)
	require.NoError(t, err)
	assert.True(t, in)

	rec, err := store.GetGameByID(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, "Uncached Game", rec.Name)
	assert.NotNil(t, rec.AddedToWishlistAt)

	require.NoError(t, repo.RemoveFromWishlist(ctx, 99))
	in, err = repo.IsInWishlist(ctx, 99)
	require.NoError(t, err)
	assert.False(t, in)

	// Removing an uncached game is a no-op
	require.NoError(t, repo.RemoveFromWishlist(ctx, 12345))

	// Unknown games are simply not wishlisted
	in, err = repo.IsInWishlist(ctx, 12345)
	require.NoError(t, err)
	assert.False(t, in)

	require.NoError(t, repo.AddToWishlist(ctx, game))
	require.NoError(t, repo.ClearWishlist(ctx))
	in, err = repo.IsInWishlist(ctx, 99)
	require.NoError(t, err)
	assert.False(t, in)
}

func TestWishlist_LiveStream(t *testing.T) {
	store := openTestStore(t)
	repo := New(&fakeAPI{}, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := repo.Wishlist(ctx, db.WishlistByDateAdded)

	recv := func() []Game {
		select {
		case games := <-ch:
			return games
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for wishlist snapshot")
			return nil
		}
	}

	assert.Empty(t, recv())

	require.NoError(t, repo.AddToWishlist(ctx, Game{ID: 1, Name: "Tetris"}))
	games := recv()
	require.Len(t, games, 1)
	assert.Equal(t, "Tetris", games[0].Name)
	assert.True(t, games[0].InWishlist)

	require.NoError(t, repo.RemoveFromWishlist(ctx, 1))
	assert.Empty(t, recv())
}

func TestSimilarGames(t *testing.T) {
	store := openTestStore(t)

	games := make([]gamesdb.Game, 0, 12)
	for i := 1; i <= 12; i++ {
		games = append(games, wireGame(i, "Game", "", "", 1))
	}

	api := &fakeAPI{
		gameByID: func(ctx context.Context, id int) (*gamesdb.GamesByIDResponse, error) {
			return idResponse(wireGame(1, "Source Game", "", "", 1)), nil
		},
		gamesByName: func(ctx context.Context, name string, page int) (*gamesdb.GamesByNameResponse, error) {
			assert.Equal(t, "Action", name)
			return nameResponse(games...), nil
		},
	}
	repo := New(api, store)

	similar, err := repo.SimilarGames(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, similar, 10)
	for _, g := range similar {
		assert.NotEqual(t, 1, g.ID)
	}
}

func TestSimilarGames_NoGenres(t *testing.T) {
	store := openTestStore(t)
	api := &fakeAPI{
		gameByID: func(ctx context.Context, id int) (*gamesdb.GamesByIDResponse, error) {
			return idResponse(wireGame(1, "Genreless", "", "")), nil
		},
	}
	repo := New(api, store)

	similar, err := repo.SimilarGames(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, similar)
}

func TestSimilarGames_DetailsFailure(t *testing.T) {
	store := openTestStore(t)
	api := &fakeAPI{
		gameByID: func(ctx context.Context, id int) (*gamesdb.GamesByIDResponse, error) {
			return nil, connErr()
		},
	}
	repo := New(api, store)

	similar, err := repo.SimilarGames(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, similar)
}

func TestScreenshots(t *testing.T) {
	store := openTestStore(t)
	api := &fakeAPI{
		images: func(ctx context.Context, gameID int) (*gamesdb.ImagesResponse, error) {
			return &gamesdb.ImagesResponse{
				Data: &gamesdb.ImagesData{
					BaseURL: &gamesdb.BaseURL{Medium: "https://cdn.example/m/"},
					Images: map[string][]gamesdb.Image{
						"42": {{Type: "screenshot", Filename: "shot.jpg"}},
					},
				},
			}, nil
		},
	}
	repo := New(api, store)

	urls, err := repo.Screenshots(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.example/m/shot.jpg"}, urls)
}

func TestGenres_DegradesToEmpty(t *testing.T) {
	store := openTestStore(t)
	api := &fakeAPI{
		genres: func(ctx context.Context) (*gamesdb.GenresResponse, error) {
			return nil, connErr()
		},
	}
	repo := New(api, store)

	genres, err := repo.Genres(context.Background())
	require.NoError(t, err)
	assert.Empty(t, genres)
}

func TestGenres_SortedList(t *testing.T) {
	store := openTestStore(t)
	repo := New(&fakeAPI{}, store)

	genres, err := repo.Genres(context.Background())
	require.NoError(t, err)
	require.Len(t, genres, 2)
	assert.Equal(t, "Action", genres[0].Name)
	assert.Equal(t, "RPG", genres[1].Name)
}

func TestPruneCache(t *testing.T) {
	store := openTestStore(t)
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := New(&fakeAPI{}, store,
		WithClock(func() time.Time { return now }),
		WithCacheMaxAge(7*24*time.Hour))

	ctx := context.Background()
	old := now.Add(-8 * 24 * time.Hour)
	added := now.Add(-9 * 24 * time.Hour)

	require.NoError(t, store.UpsertGames(ctx, []db.GameRecord{
		{ID: 1, Name: "Stale", Genres: "[]", Platforms: "[]", CachedAt: old},
		{ID: 2, Name: "Stale Wishlisted", Genres: "[]", Platforms: "[]",
			InWishlist: true, AddedToWishlistAt: &added, CachedAt: old},
		{ID: 3, Name: "Fresh", Genres: "[]", Platforms: "[]", CachedAt: now},
	}))

	n, err := repo.PruneCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.GetGameByID(ctx, 1)
	assert.ErrorIs(t, err, db.ErrNotFound)
	_, err = store.GetGameByID(ctx, 2)
	assert.NoError(t, err)
	_, err = store.GetGameByID(ctx, 3)
	assert.NoError(t, err)
}
