// Package tasks implements the playlist sync pipeline and account linking.
//
// The core abstraction is [SyncEngine], which drives a full source →
// destination sync: validate the request against linked accounts, export the
// source playlist, match each track on the destination, persist canonical
// songs with their platform mappings, and record one sync log row.
// Operations emit progress updates via channels for non-blocking status
// reporting to CLI/UI layers.
//
// [Linker] binds platform identities to local users, rotating the stored
// credential in place when the identity is already linked.
package tasks
