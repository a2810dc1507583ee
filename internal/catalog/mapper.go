package catalog

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gameshelf/gameshelf/internal/db"
	"github.com/gameshelf/gameshelf/internal/gamesdb"
)

// Pure mapping between wire format, domain model and storage format.
// No I/O happens here.

// parseRating derives a 0-5 score from the upstream content-rating label.
// The source field is an age rating (e.g. "M - Mature 17+"), not a numeric
// score; this table is a deliberate heuristic standing in for one, carried
// over from the original catalog. First match wins, case-insensitively.
func parseRating(label string) float64 {
	if label == "" {
		return 0.0
	}
	switch l := strings.ToLower(label); {
	case strings.Contains(l, "e - everyone"):
		return 4.0
	case strings.Contains(l, "e10+"):
		return 3.8
	case strings.Contains(l, "t - teen"):
		return 3.5
	case strings.Contains(l, "m - mature"):
		return 3.0
	case strings.Contains(l, "ao"):
		return 2.5
	default:
		return 3.5
	}
}

// backgroundImageURL resolves the display image for a game from the boxart
// include bundle. Base URL preference is large > medium > original; the
// front-side boxart is preferred, falling back to the first entry. Returns
// nil when no base URL or filename is available.
func backgroundImageURL(gameID int, boxart *gamesdb.BoxartData) *string {
	if boxart == nil {
		return nil
	}

	var base string
	if boxart.BaseURL != nil {
		switch {
		case boxart.BaseURL.Large != "":
			base = boxart.BaseURL.Large
		case boxart.BaseURL.Medium != "":
			base = boxart.BaseURL.Medium
		default:
			base = boxart.BaseURL.Original
		}
	}

	entries := boxart.Data[strconv.Itoa(gameID)]

	var filename string
	for _, e := range entries {
		if e.Side == "front" && e.Filename != "" {
			filename = e.Filename
			break
		}
	}
	if filename == "" && len(entries) > 0 {
		filename = entries[0].Filename
	}

	if base == "" || filename == "" {
		return nil
	}
	u := base + filename
	return &u
}

// gameFromWire maps one upstream record to the domain model. Genre ids
// without an entry in the lookup are silently dropped; a missing platform
// mapping yields an empty platform list. Wishlist state is locally owned
// and always starts unset here.
func gameFromWire(dto gamesdb.Game, include *gamesdb.Include, genres map[int]string) Game {
	g := Game{
		ID:     dto.ID,
		Name:   dto.GameTitle,
		Rating: parseRating(dto.Rating),
	}
	if g.Name == "" {
		g.Name = "Unknown"
	}

	if dto.ReleaseDate != "" {
		released := dto.ReleaseDate
		g.Released = &released
	}
	if dto.Overview != "" {
		desc := dto.Overview
		g.Description = &desc
	}

	g.Genres = make([]string, 0, len(dto.Genres))
	for _, id := range dto.Genres {
		if name, ok := genres[id]; ok {
			g.Genres = append(g.Genres, name)
		}
	}

	g.Platforms = []string{}
	if include != nil {
		g.BackgroundImage = backgroundImageURL(dto.ID, include.Boxart)
		if include.Platform != nil {
			if info, ok := include.Platform.Data[strconv.Itoa(dto.Platform)]; ok && info.Name != "" {
				g.Platforms = []string{info.Name}
			}
		}
	}

	return g
}

// gamesFromNameResponse maps a search response to domain games, preserving
// upstream order.
func gamesFromNameResponse(resp *gamesdb.GamesByNameResponse, genres map[int]string) []Game {
	if resp == nil || resp.Data == nil {
		return []Game{}
	}
	games := make([]Game, 0, len(resp.Data.Games))
	for _, dto := range resp.Data.Games {
		games = append(games, gameFromWire(dto, resp.Include, genres))
	}
	return games
}

// gameFromIDResponse maps an id-lookup response to a single domain game,
// or nil when the response carries no record.
func gameFromIDResponse(resp *gamesdb.GamesByIDResponse, genres map[int]string) *Game {
	if resp == nil || resp.Data == nil || len(resp.Data.Games) == 0 {
		return nil
	}
	g := gameFromWire(resp.Data.Games[0], resp.Include, genres)
	return &g
}

// genreMapFromResponse builds the id-to-name lookup from a genres response.
func genreMapFromResponse(resp *gamesdb.GenresResponse) map[int]string {
	m := make(map[int]string)
	if resp == nil || resp.Data == nil {
		return m
	}
	for _, g := range resp.Data.Genres {
		m[g.ID] = g.Name
	}
	return m
}

// genresFromResponse builds the public genre list, alphabetically ordered.
func genresFromResponse(resp *gamesdb.GenresResponse) []Genre {
	if resp == nil || resp.Data == nil {
		return []Genre{}
	}
	genres := make([]Genre, 0, len(resp.Data.Genres))
	for _, g := range resp.Data.Genres {
		genres = append(genres, Genre{
			ID:   g.ID,
			Name: g.Name,
			Slug: strings.ReplaceAll(strings.ToLower(g.Name), " ", "-"),
		})
	}
	sort.Slice(genres, func(i, j int) bool { return genres[i].Name < genres[j].Name })
	return genres
}

// screenshotURLs assembles full image URLs for a game from an images
// response. Base URL preference is medium > original.
func screenshotURLs(gameID int, resp *gamesdb.ImagesResponse) []string {
	if resp == nil || resp.Data == nil {
		return []string{}
	}

	var base string
	if resp.Data.BaseURL != nil {
		base = resp.Data.BaseURL.Medium
		if base == "" {
			base = resp.Data.BaseURL.Original
		}
	}

	urls := []string{}
	for _, img := range resp.Data.Images[strconv.Itoa(gameID)] {
		switch img.Type {
		case "screenshot", "fanart", "boxart":
			if img.Filename != "" {
				urls = append(urls, base+img.Filename)
			}
		}
	}
	return urls
}

// recordFromGame converts a domain game to its storage form. List-valued
// fields are JSON-encoded to a flat string.
func recordFromGame(g Game, cachedAt time.Time) db.GameRecord {
	return db.GameRecord{
		ID:                g.ID,
		Name:              g.Name,
		BackgroundImage:   g.BackgroundImage,
		Rating:            g.Rating,
		Released:          g.Released,
		Genres:            encodeList(g.Genres),
		Platforms:         encodeList(g.Platforms),
		Description:       g.Description,
		Metacritic:        g.Metacritic,
		InWishlist:        g.InWishlist,
		AddedToWishlistAt: g.AddedToWishlistAt,
		CachedAt:          cachedAt,
	}
}

// gameFromRecord converts a storage record back to the domain model.
// Malformed encoded list fields decode to an empty list, never an error.
func gameFromRecord(rec db.GameRecord) Game {
	return Game{
		ID:                rec.ID,
		Name:              rec.Name,
		BackgroundImage:   rec.BackgroundImage,
		Rating:            rec.Rating,
		Released:          rec.Released,
		Genres:            decodeList(rec.Genres),
		Platforms:         decodeList(rec.Platforms),
		Description:       rec.Description,
		Metacritic:        rec.Metacritic,
		InWishlist:        rec.InWishlist,
		AddedToWishlistAt: rec.AddedToWishlistAt,
	}
}

// gamesFromRecords maps a slice of records, preserving order.
func gamesFromRecords(recs []db.GameRecord) []Game {
	games := make([]Game, 0, len(recs))
	for _, rec := range recs {
		games = append(games, gameFromRecord(rec))
	}
	return games
}

func encodeList(list []string) string {
	if list == nil {
		list = []string{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func decodeList(encoded string) []string {
	var list []string
	if err := json.Unmarshal([]byte(encoded), &list); err != nil || list == nil {
		return []string{}
	}
	return list
}
