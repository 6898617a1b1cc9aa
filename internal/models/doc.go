// Package models defines domain entities and persistence interfaces for the playsync service.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing external platform data
//   - [Playlist] : Basic playlist metadata from music platforms
//   - [PlaylistExport] : Playlist with complete track listing
//   - [Track] : Normalized song metadata for cross-platform matching
//
// 2. Persistent Entities: Database-backed records with validated construction
//   - [Account] : A user's linked account on one platform, holding the access credential
//   - [Song] : Canonical deduplicated song record, keyed by the normalized (title, artist, album) triple
//   - [PlatformSong] : Mapping from a canonical song to its platform-native track identifier
//   - [SyncLog] : Append-only record of one sync attempt with its outcome counts
//
// All persistent entities implement the Model interface providing ID generation, timestamps, and validation.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
