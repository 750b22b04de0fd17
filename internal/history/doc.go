// Package history persists the outcome of every split job in SQLite.
//
// Each ffmpeg job (one track) records its run identifier, cue sheet, track
// number, output path, status, exit code, log path and timing. The CLI reads
// the table back for the `history` command. The database is a convenience
// ledger, not a source of truth: schema changes bump the version in schema.go
// and users delete the database to adopt the new schema.
package history
