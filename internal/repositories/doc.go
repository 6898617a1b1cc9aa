// Package repositories implements SQLite persistence for all domain entities.
//
// Key Implementations:
//   - [AccountRepository] : Linked platform accounts with credential upsert (last write wins)
//   - [SongRepository] : Canonical song records with atomic get-or-create by normalized key
//   - [MappingRepository] : Platform-native track id mappings with idempotent linking
//   - [SyncLogRepository] : Append-only sync history
//
// Dedup is enforced by UNIQUE constraints plus INSERT OR IGNORE / ON CONFLICT
// upserts, so concurrent syncs cannot create duplicate songs, mappings, or
// account rows.
//
// Sequence numbers provide stable, human-readable ordering (e.g., account #3, song #42)
// independent of UUIDs and creation timestamps. The [NextSequence] function atomically
// increments per-table sequence counters in dedicated sequence tables.
package repositories
