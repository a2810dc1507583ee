package gamesdb

// Game is a single game record as returned by the upstream API.
// Rating is a content-rating label (e.g. "T - Teen (T)"), not a numeric score.
type Game struct {
	ID          int    `json:"id"`
	GameTitle   string `json:"game_title"`
	ReleaseDate string `json:"release_date"`
	Platform    int    `json:"platform"`
	Players     int    `json:"players"`
	Overview    string `json:"overview"`
	Rating      string `json:"rating"`
	Genres      []int  `json:"genres"`
	Publishers  []int  `json:"publishers"`
	Developers  []int  `json:"developers"`
}

// GamesData is the data section of a games response.
type GamesData struct {
	Count int    `json:"count"`
	Games []Game `json:"games"`
}

// Pages carries pagination cursors for name searches.
type Pages struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
	Next     string `json:"next"`
}

// BaseURL lists the image base URLs at the available resolutions.
type BaseURL struct {
	Original           string `json:"original"`
	Small              string `json:"small"`
	Thumb              string `json:"thumb"`
	CroppedCenterThumb string `json:"cropped_center_thumb"`
	Medium             string `json:"medium"`
	Large              string `json:"large"`
}

// BoxartImage is a single boxart entry for a game.
type BoxartImage struct {
	ID         int    `json:"id"`
	Type       string `json:"type"`
	Side       string `json:"side"`
	Filename   string `json:"filename"`
	Resolution string `json:"resolution"`
}

// BoxartData maps game id (as a string key) to its boxart entries.
type BoxartData struct {
	BaseURL *BaseURL                 `json:"base_url"`
	Data    map[string][]BoxartImage `json:"data"`
}

// PlatformInfo describes a platform referenced by id from game records.
type PlatformInfo struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Alias string `json:"alias"`
}

// PlatformData maps platform id (as a string key) to platform info.
type PlatformData struct {
	Data map[string]PlatformInfo `json:"data"`
}

// Include is the optional include bundle attached to game responses.
type Include struct {
	Boxart   *BoxartData   `json:"boxart"`
	Platform *PlatformData `json:"platform"`
}

// GamesByNameResponse is the envelope returned by the name-search endpoint.
type GamesByNameResponse struct {
	Code    int        `json:"code"`
	Status  string     `json:"status"`
	Data    *GamesData `json:"data"`
	Include *Include   `json:"include"`
	Pages   *Pages     `json:"pages"`
}

// GamesByIDResponse is the envelope returned by the id-lookup endpoint.
type GamesByIDResponse struct {
	Code    int        `json:"code"`
	Status  string     `json:"status"`
	Data    *GamesData `json:"data"`
	Include *Include   `json:"include"`
}

// Image is a single media entry for a game.
type Image struct {
	ID         int    `json:"id"`
	Type       string `json:"type"`
	Side       string `json:"side"`
	Filename   string `json:"filename"`
	Resolution string `json:"resolution"`
}

// ImagesData is the data section of an images response.
type ImagesData struct {
	BaseURL *BaseURL           `json:"base_url"`
	Images  map[string][]Image `json:"images"`
}

// ImagesResponse is the envelope returned by the images endpoint.
type ImagesResponse struct {
	Code   int         `json:"code"`
	Status string      `json:"status"`
	Data   *ImagesData `json:"data"`
}

// Genre is a single genre as returned by the genres endpoint.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// GenresData is the data section of a genres response.
// Genres are keyed by genre id rendered as a string.
type GenresData struct {
	Count  int              `json:"count"`
	Genres map[string]Genre `json:"genres"`
}

// GenresResponse is the envelope returned by the genres endpoint.
type GenresResponse struct {
	Code   int         `json:"code"`
	Status string      `json:"status"`
	Data   *GenresData `json:"data"`
}
