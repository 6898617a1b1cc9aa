// Spotify Web API implementation of [Service]
//
// Response types follow https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/playsync/playsync/internal/models"
	"github.com/playsync/playsync/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Hard ceiling on track pages fetched for a single playlist. 50 tracks
	// per page makes this 10k tracks, past Spotify's own playlist cap, so
	// hitting it means the pagination cursor is misbehaving.
	maxTrackPages = 200

	spotifyPageLimit = 50
)

// spotifyScopes covers playlist reads on both private and collaborative
// playlists, playlist writes, and the profile fields used to key linked
// accounts.
var spotifyScopes = []string{
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
	"user-read-private",
	"user-read-email",
}

type followers struct {
	Total int `json:"total"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"`
	Followers   followers      `json:"followers"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	Explicit   bool            `json:"explicit"`
	IsLocal    bool            `json:"is_local"`
	URI        string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	ReleaseDate string         `json:"release_date"`
	TotalTracks int            `json:"total_tracks"`
	Images      []SpotifyImage `json:"images"`
	URI         string         `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTrackRef struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Owner       Owner            `json:"owner"`
	Public      bool             `json:"public"`
	Tracks      playlistTrackRef `json:"tracks"`
	Images      []SpotifyImage   `json:"images"`
	URI         string           `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context.
type SpotifyPlaylistTrack struct {
	AddedAt string       `json:"added_at"`
	IsLocal bool         `json:"is_local"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyPaginatedPlaylistTracks represents one page of a playlist's tracks.
type SpotifyPaginatedPlaylistTracks struct {
	Items    []SpotifyPlaylistTrack `json:"items"`
	Total    int                    `json:"total"`
	Limit    int                    `json:"limit"`
	Offset   int                    `json:"offset"`
	Next     *string                `json:"next"`
	Previous *string                `json:"previous"`
}

// SpotifyPaginatedPlaylists represents a paginated response of playlists.
type SpotifyPaginatedPlaylists struct {
	Items    []SpotifySimplePlaylist `json:"items"`
	Total    int                     `json:"total"`
	Limit    int                     `json:"limit"`
	Offset   int                     `json:"offset"`
	Next     *string                 `json:"next"`
	Previous *string                 `json:"previous"`
}

// SpotifySimplePlaylist represents a simplified playlist object (used in lists).
type SpotifySimplePlaylist struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Owner       Owner            `json:"owner"`
	Public      bool             `json:"public"`
	Tracks      playlistTrackRef `json:"tracks"`
	Images      []SpotifyImage   `json:"images"`
	URI         string           `json:"uri"`
}

// SpotifyService implements [Service] and [OAuthService] for the Spotify Web
// API. Uses [oauth2] for authentication.
type SpotifyService struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// NewSpotifyService creates a Spotify service from OAuth2 client credentials.
func NewSpotifyService(clientID, clientSecret, redirectURI string) (*SpotifyService, error) {
	if clientID == "" {
		return nil, fmt.Errorf("%w: client_id", shared.ErrMissingCredentials)
	}
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: client_secret", shared.ErrMissingCredentials)
	}
	if redirectURI == "" {
		return nil, fmt.Errorf("%w: redirect_uri", shared.ErrMissingCredentials)
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyService{
		config:     config,
		httpClient: http.DefaultClient,
		baseURL:    spotifyBaseURL,
		timeout:    DefaultRequestTimeout,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// SetBaseURL overrides the API base URL, for pointing the client at a test
// server or proxy.
func (s *SpotifyService) SetBaseURL(u string) {
	s.baseURL = u
}

// SetAuthEndpoint overrides the OAuth2 endpoints, for pointing the client at
// a test server or proxy.
func (s *SpotifyService) SetAuthEndpoint(authURL, tokenURL string) {
	s.config.Endpoint = oauth2.Endpoint{
		AuthURL:  authURL,
		TokenURL: tokenURL,
	}
}

// SetTimeout overrides the per-call timeout on outbound requests. Zero or
// negative disables the bound.
func (s *SpotifyService) SetTimeout(d time.Duration) {
	s.timeout = d
}

// callContext derives the per-call deadline every outbound request runs under.
func (s *SpotifyService) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// AuthURL returns the OAuth2 authorization URL for user login. The consent
// screen is always shown so re-linking an account issues a fresh grant.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("show_dialog", "true"),
	)
}

// Exchange trades an authorization code for a token, attaches the token to
// the service, and returns it serialized for persistence as an account
// credential.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (string, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrExchangeFailed, err)
	}

	s.setToken(ctx, token)

	credential, err := json.Marshal(token)
	if err != nil {
		return "", fmt.Errorf("failed to serialize token: %w", err)
	}

	return string(credential), nil
}

// Authenticate attaches stored credentials to the service.
//
// Accepts either a serialized token under "credential" (as persisted on a
// linked account) or a bare "access_token".
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if credential, ok := credentials["credential"]; ok && credential != "" {
		var token oauth2.Token
		if err := json.Unmarshal([]byte(credential), &token); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidCredentials, err)
		}
		s.setToken(ctx, &token)
		return nil
	}

	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		s.setToken(ctx, &oauth2.Token{AccessToken: accessToken})
		return nil
	}

	return fmt.Errorf("%w: credential or access_token", shared.ErrMissingCredentials)
}

// setToken installs the token and an oauth2 client that refreshes it.
func (s *SpotifyService) setToken(ctx context.Context, token *oauth2.Token) {
	s.token = token
	s.httpClient = s.config.Client(ctx, token)
}

// doRequest performs an authenticated HTTP request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	apiURL := s.baseURL + endpoint

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: spotify returned 401", shared.ErrTokenExpired)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: spotify returned 404", shared.ErrPlaylistNotFound)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: spotify returned %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// UserProfile retrieves the current authenticated user's profile.
func (s *SpotifyService) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", &user); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrProfileFetch, err)
	}
	return &user, nil
}

// UserPlaylists retrieves one page of the current user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, limit, offset int) (*SpotifyPaginatedPlaylists, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > spotifyPageLimit {
		limit = spotifyPageLimit
	}

	endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

	var response SpotifyPaginatedPlaylists
	if err := s.doRequest(ctx, http.MethodGet, endpoint, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// Playlist retrieves a playlist by ID.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error) {
	endpoint := fmt.Sprintf("/playlists/%s", playlistID)

	var playlist SpotifyPlaylist
	if err := s.doRequest(ctx, http.MethodGet, endpoint, &playlist); err != nil {
		return nil, err
	}

	return &playlist, nil
}

// PlaylistTracks retrieves one page of a playlist's tracks.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPaginatedPlaylistTracks, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > spotifyPageLimit {
		limit = spotifyPageLimit
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, limit, offset)

	var response SpotifyPaginatedPlaylistTracks
	if err := s.doRequest(ctx, http.MethodGet, endpoint, &response); err != nil {
		return nil, err
	}

	return &response, nil
}

// Search performs a track search and returns up to limit candidates.
func (s *SpotifyService) Search(ctx context.Context, query string, limit int) ([]SpotifyTrack, error) {
	if limit <= 0 {
		limit = 1
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", url.QueryEscape(query), limit)

	var response struct {
		Tracks struct {
			Items []SpotifyTrack `json:"items"`
		} `json:"tracks"`
	}

	if err := s.doRequest(ctx, http.MethodGet, endpoint, &response); err != nil {
		return nil, err
	}

	return response.Tracks.Items, nil
}

// Service interface implementation

// GetPlaylists retrieves all playlists for the authenticated user, following
// pagination until the API reports no next page.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	var allPlaylists []models.Playlist
	offset := 0

	for {
		response, err := s.UserPlaylists(ctx, spotifyPageLimit, offset)
		if err != nil {
			return nil, err
		}

		for _, sp := range response.Items {
			allPlaylists = append(allPlaylists, models.Playlist{
				ID:          sp.ID,
				Name:        sp.Name,
				Description: sp.Description,
				TrackCount:  sp.Tracks.Total,
				Public:      sp.Public,
			})
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += spotifyPageLimit
	}

	return allPlaylists, nil
}

// GetPlaylist retrieves a specific playlist by ID.
func (s *SpotifyService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	sp, err := s.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	return &models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		TrackCount:  sp.Tracks.Total,
		Public:      sp.Public,
	}, nil
}

// ExportPlaylist exports a playlist with all its tracks. Local files and
// episode entries, which carry no track ID, are skipped.
func (s *SpotifyService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	sp, err := s.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	playlist := models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		TrackCount:  sp.Tracks.Total,
		Public:      sp.Public,
	}

	var tracks []models.Track
	offset := 0

	for page := 0; ; page++ {
		if page >= maxTrackPages {
			return nil, fmt.Errorf("%w: playlist %s exceeded %d track pages", shared.ErrCatalogFetch, playlistID, maxTrackPages)
		}

		response, err := s.PlaylistTracks(ctx, playlistID, spotifyPageLimit, offset)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrCatalogFetch, err)
		}

		for _, item := range response.Items {
			if item.IsLocal || item.Track.ID == "" {
				continue
			}

			track := models.Track{
				ID:       item.Track.ID,
				Title:    item.Track.Name,
				Album:    item.Track.Album.Name,
				Duration: item.Track.DurationMS / 1000,
			}

			for _, artist := range item.Track.Artists {
				track.Artists = append(track.Artists, artist.Name)
			}

			tracks = append(tracks, track)
		}

		if response.Next == nil || len(response.Items) == 0 {
			break
		}
		offset += spotifyPageLimit
	}

	return &models.PlaylistExport{
		Playlist: playlist,
		Tracks:   tracks,
	}, nil
}

// SearchTrack searches for a track by title and artists, returning the first
// candidate.
func (s *SpotifyService) SearchTrack(ctx context.Context, title string, artists []string) (*models.Track, error) {
	query := BuildSearchQuery(title, artists)

	results, err := s.Search(ctx, query, 1)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: no spotify results for %q", shared.ErrTrackNotFound, query)
	}

	result := results[0]
	track := &models.Track{
		ID:       result.ID,
		Title:    result.Name,
		Album:    result.Album.Name,
		Duration: result.DurationMS / 1000,
	}

	for _, artist := range result.Artists {
		track.Artists = append(track.Artists, artist.Name)
	}

	return track, nil
}

// BuildSearchQuery constructs the free-text query used to look a track up on
// another platform: the title followed by every artist, space separated.
// Album names are deliberately excluded; platforms title the same release
// differently often enough that including them costs more matches than it
// saves.
func BuildSearchQuery(title string, artists []string) string {
	parts := make([]string, 0, 1+len(artists))
	if title != "" {
		parts = append(parts, title)
	}
	for _, artist := range artists {
		if artist != "" {
			parts = append(parts, artist)
		}
	}
	return strings.Join(parts, " ")
}
