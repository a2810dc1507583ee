package gamesdb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGamesByName(t *testing.T) {
	var gotPath string
	var gotQuery map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = map[string]string{}
		for k := range r.URL.Query() {
			gotQuery[k] = r.URL.Query().Get(k)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"code": 200,
			"status": "Success",
			"data": {
				"count": 1,
				"games": [
					{"id": 7, "game_title": "Super Mario World", "release_date": "1990-11-21",
					 "platform": 6, "rating": "E - Everyone", "genres": [1, 2]}
				]
			},
			"include": {
				"boxart": {
					"base_url": {"original": "https://cdn.example/o/", "medium": "https://cdn.example/m/", "large": "https://cdn.example/l/"},
					"data": {"7": [{"id": 1, "type": "boxart", "side": "front", "filename": "smw.jpg"}]}
				},
				"platform": {"data": {"6": {"id": 6, "name": "Super Nintendo (SNES)", "alias": "snes"}}}
			},
			"pages": {"previous": "", "current": "url", "next": ""}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key")
	resp, err := client.GamesByName(context.Background(), "mario", 1)
	require.NoError(t, err)

	assert.Equal(t, "/v1/Games/ByGameName", gotPath)
	assert.Equal(t, "test-key", gotQuery["apikey"])
	assert.Equal(t, "mario", gotQuery["name"])
	assert.Equal(t, "1", gotQuery["page"])
	assert.Equal(t, "players,publishers,genres,overview,rating,platform", gotQuery["fields"])
	assert.Equal(t, "boxart,platform", gotQuery["include"])

	require.NotNil(t, resp.Data)
	require.Len(t, resp.Data.Games, 1)
	game := resp.Data.Games[0]
	assert.Equal(t, 7, game.ID)
	assert.Equal(t, "Super Mario World", game.GameTitle)
	assert.Equal(t, "E - Everyone", game.Rating)
	assert.Equal(t, []int{1, 2}, game.Genres)

	require.NotNil(t, resp.Include)
	require.NotNil(t, resp.Include.Boxart)
	assert.Equal(t, "https://cdn.example/l/", resp.Include.Boxart.BaseURL.Large)
	require.Len(t, resp.Include.Boxart.Data["7"], 1)
	assert.Equal(t, "smw.jpg", resp.Include.Boxart.Data["7"][0].Filename)
	assert.Equal(t, "Super Nintendo (SNES)", resp.Include.Platform.Data["6"].Name)
}

func TestGamesByName_PageClamped(t *testing.T) {
	var gotPage string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPage = r.URL.Query().Get("page")
		_, _ = w.Write([]byte(`{"code": 200, "status": "Success"}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k")
	_, err := client.GamesByName(context.Background(), "zelda", 0)
	require.NoError(t, err)
	assert.Equal(t, "1", gotPage)
}

func TestGameByID(t *testing.T) {
	var gotID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/Games/ByGameID", r.URL.Path)
		gotID = r.URL.Query().Get("id")
		_, _ = w.Write([]byte(`{
			"code": 200,
			"status": "Success",
			"data": {"count": 1, "games": [{"id": 42, "game_title": "Chrono Trigger"}]}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k")
	resp, err := client.GameByID(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, "42", gotID)
	require.NotNil(t, resp.Data)
	require.Len(t, resp.Data.Games, 1)
	assert.Equal(t, "Chrono Trigger", resp.Data.Games[0].GameTitle)
}

func TestImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/Games/Images", r.URL.Path)
		assert.Equal(t, "42", r.URL.Query().Get("games_id"))
		assert.NotEmpty(t, r.URL.Query().Get("filter[type]"))
		_, _ = w.Write([]byte(`{
			"code": 200,
			"status": "Success",
			"data": {
				"base_url": {"original": "https://cdn.example/o/", "medium": "https://cdn.example/m/"},
				"images": {"42": [{"id": 9, "type": "screenshot", "filename": "shot1.jpg"}]}
			}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k")
	resp, err := client.Images(context.Background(), 42)
	require.NoError(t, err)

	require.NotNil(t, resp.Data)
	require.Len(t, resp.Data.Images["42"], 1)
	assert.Equal(t, "screenshot", resp.Data.Images["42"][0].Type)
}

func TestGenres(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/Genres", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"code": 200,
			"status": "Success",
			"data": {"count": 2, "genres": {"1": {"id": 1, "name": "Action"}, "5": {"id": 5, "name": "RPG"}}}
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k")
	resp, err := client.Genres(context.Background())
	require.NoError(t, err)

	require.NotNil(t, resp.Data)
	assert.Len(t, resp.Data.Genres, 2)
	assert.Equal(t, "RPG", resp.Data.Genres["5"].Name)
}

func TestStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL, "bad-key")
	_, err := client.GamesByName(context.Background(), "mario", 1)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
	assert.False(t, IsConnectivityError(err))
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("", "k")
	assert.Equal(t, "https://api.thegamesdb.net", client.baseURL)

	client = NewClient("http://example.com/", "k")
	assert.Equal(t, "http://example.com", client.baseURL)
}

func TestIsConnectivityError(t *testing.T) {
	// Refused connection: nothing listens on this port.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url, "k")
	_, err := client.GamesByName(context.Background(), "mario", 1)
	require.Error(t, err)
	assert.True(t, IsConnectivityError(err))
}

func TestIsConnectivityError_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, "k", WithTimeout(10*time.Millisecond))
	_, err := client.GamesByName(context.Background(), "mario", 1)
	require.Error(t, err)
	assert.True(t, IsConnectivityError(err))
}

func TestIsConnectivityError_Nil(t *testing.T) {
	assert.False(t, IsConnectivityError(nil))
}

func TestIsConnectivityError_DecodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := NewClient(server.URL, "k")
	_, err := client.GamesByName(context.Background(), "mario", 1)
	require.Error(t, err)
	assert.False(t, IsConnectivityError(err))
}
