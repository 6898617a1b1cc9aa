// Package services implements the platform clients the sync engine reads
// from and matches against.
//
// [SpotifyService] talks to the Spotify Web API with OAuth2 bearer tokens
// and acts as the catalog source: authorization URL construction, code
// exchange, profile lookup, and paginated playlist reads.
//
// [YouTubeService] talks to the YouTube Music proxy server and acts as the
// match destination: it resolves a (title, artists) query to the platform's
// best candidate track. An empty result set is reported as
// [shared.ErrTrackNotFound] so callers can tell "no match" apart from a
// failing upstream.
//
// Both satisfy [Service] so the sync engine can be wired with either
// platform on either side.
package services
