// Package sqlite stores scenes as JSON documents in a SQLite database.
//
// The scenes table keys each document by scene_id and keeps a copy of the
// visual tag in its own column for grouping. The database runs in WAL mode
// and write paths retry SQLITE_BUSY with bounded exponential backoff.
package sqlite
