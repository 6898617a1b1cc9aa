// YouTube Music [Service] implementation
//
// Communicates with the ytmusicapi proxy server. Library endpoints require
// an auth file; search and public playlist reads do not, which is what lets
// an account link with the public-access credential still sync.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/shared"
)

const defaultYTBaseURL string = "http://localhost:8080"

// YouTubeImage represents an image/thumbnail from YouTube Music.
type YouTubeImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type youtubeAlbum struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a track/video in YouTube Music responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Album       *youtubeAlbum   `json:"album"`
	Duration    string          `json:"duration"`
	DurationSec int             `json:"duration_seconds"`
	Thumbnails  []YouTubeImage  `json:"thumbnails"`
	SetVideoID  string          `json:"setVideoId,omitempty"`
}

// YouTubeService implements the Service interface for YouTube Music via the
// proxy server.
type YouTubeService struct {
	baseURL    string
	authFile   string
	httpClient *http.Client
	timeout    time.Duration
}

// NewYouTubeService creates a new YouTube Music service instance.
func NewYouTubeService(baseURL string) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YouTubeService{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		timeout:    DefaultRequestTimeout,
	}
}

// SetTimeout overrides the per-call timeout on outbound requests. Zero or
// negative disables the bound.
func (y *YouTubeService) SetTimeout(d time.Duration) {
	y.timeout = d
}

// callContext derives the per-call deadline every outbound request runs under.
func (y *YouTubeService) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if y.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, y.timeout)
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

// Authenticate stores the authentication material for subsequent requests.
//
// Accepts credentials["auth_file"] pointing at a browser.json or oauth.json,
// or the public-access credential, which authenticates nothing and restricts
// the service to search and public playlist reads.
func (y *YouTubeService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if credential, ok := credentials["credential"]; ok && credential == models.PublicAccessCredential {
		y.authFile = ""
		return nil
	}

	authFile, ok := credentials["auth_file"]
	if !ok || authFile == "" {
		return fmt.Errorf("%w: auth_file", shared.ErrMissingCredentials)
	}

	y.authFile = authFile
	return nil
}

func (y *YouTubeService) doRequest(ctx context.Context, method, endpoint string, result any) error {
	ctx, cancel := y.callContext(ctx)
	defer cancel()

	apiURL := y.baseURL + endpoint

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if y.authFile != "" {
		req.Header.Set("X-Auth-File", y.authFile)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp struct {
			Detail string `json:"detail"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil && errResp.Detail != "" {
			return fmt.Errorf("%w: youtube music returned %d: %s", shared.ErrAPIRequest, resp.StatusCode, errResp.Detail)
		}
		return fmt.Errorf("%w: youtube music returned %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// GetPlaylists retrieves all playlists in the authenticated user's library.
//
// Calls GET /api/library/playlists on the proxy.
func (y *YouTubeService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var ytPlaylists []struct {
		PlaylistID  string         `json:"playlistId"`
		Title       string         `json:"title"`
		Description string         `json:"description"`
		Privacy     string         `json:"privacy"`
		Count       int            `json:"count"`
		Thumbnails  []YouTubeImage `json:"thumbnails"`
	}

	if err := y.doRequest(ctx, http.MethodGet, "/api/library/playlists", &ytPlaylists); err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, len(ytPlaylists))
	for i, ytp := range ytPlaylists {
		playlists[i] = models.Playlist{
			ID:          ytp.PlaylistID,
			Name:        ytp.Title,
			Description: ytp.Description,
			TrackCount:  ytp.Count,
			Public:      ytp.Privacy == "PUBLIC",
		}
	}

	return playlists, nil
}

// GetPlaylist retrieves a specific playlist by ID without tracks.
//
// Calls GET /api/playlists/{id} on the proxy. Works for any public playlist
// regardless of authentication.
func (y *YouTubeService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	var ytPlaylist struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Privacy     string `json:"privacy"`
		TrackCount  int    `json:"trackCount"`
	}

	endpoint := fmt.Sprintf("/api/playlists/%s", playlistID)
	if err := y.doRequest(ctx, http.MethodGet, endpoint, &ytPlaylist); err != nil {
		return nil, err
	}

	return &models.Playlist{
		ID:          ytPlaylist.ID,
		Name:        ytPlaylist.Title,
		Description: ytPlaylist.Description,
		TrackCount:  ytPlaylist.TrackCount,
		Public:      ytPlaylist.Privacy == "PUBLIC",
	}, nil
}

// ExportPlaylist exports a playlist with all its tracks.
//
// Calls GET /api/playlists/{id} on the proxy, which returns the playlist
// fully materialized.
func (y *YouTubeService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	var ytPlaylist struct {
		ID          string         `json:"id"`
		Title       string         `json:"title"`
		Description string         `json:"description"`
		Privacy     string         `json:"privacy"`
		TrackCount  int            `json:"trackCount"`
		Tracks      []YouTubeTrack `json:"tracks"`
	}

	endpoint := fmt.Sprintf("/api/playlists/%s", playlistID)
	if err := y.doRequest(ctx, http.MethodGet, endpoint, &ytPlaylist); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCatalogFetch, err)
	}

	playlist := models.Playlist{
		ID:          ytPlaylist.ID,
		Name:        ytPlaylist.Title,
		Description: ytPlaylist.Description,
		TrackCount:  ytPlaylist.TrackCount,
		Public:      ytPlaylist.Privacy == "PUBLIC",
	}

	tracks := make([]models.Track, 0, len(ytPlaylist.Tracks))
	for _, ytt := range ytPlaylist.Tracks {
		if ytt.VideoID == "" {
			continue
		}

		track := models.Track{
			ID:       ytt.VideoID,
			Title:    ytt.Title,
			Duration: ytt.DurationSec,
		}

		for _, artist := range ytt.Artists {
			track.Artists = append(track.Artists, artist.Name)
		}

		if ytt.Album != nil {
			track.Album = ytt.Album.Name
		}

		tracks = append(tracks, track)
	}

	return &models.PlaylistExport{
		Playlist: playlist,
		Tracks:   tracks,
	}, nil
}

// SearchTrack searches for a track by title and artists, returning the
// platform's top song result.
//
// Calls GET /api/search?q={query}&filter=songs&limit=1 on the proxy. An
// empty result set yields [shared.ErrTrackNotFound]; a failing request
// yields the transport or API error unchanged so the caller can tell the
// two apart.
func (y *YouTubeService) SearchTrack(ctx context.Context, title string, artists []string) (*models.Track, error) {
	query := BuildSearchQuery(title, artists)
	endpoint := fmt.Sprintf("/api/search?q=%s&filter=songs&limit=1", url.QueryEscape(query))

	var results []YouTubeTrack
	if err := y.doRequest(ctx, http.MethodGet, endpoint, &results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no youtube music results for %q", shared.ErrTrackNotFound, query)
	}

	result := results[0]
	track := &models.Track{
		ID:       result.VideoID,
		Title:    result.Title,
		Duration: result.DurationSec,
	}

	for _, artist := range result.Artists {
		track.Artists = append(track.Artists, artist.Name)
	}

	if result.Album != nil {
		track.Album = result.Album.Name
	}

	return track, nil
}
