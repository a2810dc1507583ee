// Package gamesdb is a typed client for the TheGamesDB REST API.
//
// The client is stateless: every call is a single request/response with no
// retries and no caching. Those concerns belong to the catalog repository.
package gamesdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the production API endpoint.
	DefaultBaseURL = "https://api.thegamesdb.net/"

	// defaultFields and defaultInclude are fixed request-time constants;
	// the mapper depends on exactly these sections being present.
	defaultFields  = "players,publishers,genres,overview,rating,platform"
	defaultInclude = "boxart,platform"

	imageFilterTypes = "fanart, banner, boxart, screenshot, clearlogo, titlescreen"
)

// Client calls the TheGamesDB API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// NewClient creates a client for the given base URL and API key.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GamesByName searches games by name. Pages start at 1.
func (c *Client) GamesByName(ctx context.Context, name string, page int) (*GamesByNameResponse, error) {
	if page < 1 {
		page = 1
	}
	q := url.Values{}
	q.Set("name", name)
	q.Set("fields", defaultFields)
	q.Set("include", defaultInclude)
	q.Set("page", strconv.Itoa(page))

	var resp GamesByNameResponse
	if err := c.get(ctx, "/v1/Games/ByGameName", q, &resp); err != nil {
		return nil, fmt.Errorf("games by name %q: %w", name, err)
	}
	return &resp, nil
}

// GameByID looks up a single game by its upstream id.
func (c *Client) GameByID(ctx context.Context, id int) (*GamesByIDResponse, error) {
	q := url.Values{}
	q.Set("id", strconv.Itoa(id))
	q.Set("fields", defaultFields)
	q.Set("include", defaultInclude)

	var resp GamesByIDResponse
	if err := c.get(ctx, "/v1/Games/ByGameID", q, &resp); err != nil {
		return nil, fmt.Errorf("game by id %d: %w", id, err)
	}
	return &resp, nil
}

// Images fetches the media entries for a game.
func (c *Client) Images(ctx context.Context, gameID int) (*ImagesResponse, error) {
	q := url.Values{}
	q.Set("games_id", strconv.Itoa(gameID))
	q.Set("filter[type]", imageFilterTypes)

	var resp ImagesResponse
	if err := c.get(ctx, "/v1/Games/Images", q, &resp); err != nil {
		return nil, fmt.Errorf("images for game %d: %w", gameID, err)
	}
	return &resp, nil
}

// Genres fetches the full genre taxonomy.
func (c *Client) Genres(ctx context.Context) (*GenresResponse, error) {
	var resp GenresResponse
	if err := c.get(ctx, "/v1/Genres", url.Values{}, &resp); err != nil {
		return nil, fmt.Errorf("genres: %w", err)
	}
	return &resp, nil
}

// get performs a GET request against path and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	q.Set("apikey", c.apiKey)
	u := c.baseURL + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
