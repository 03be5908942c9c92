// Package ledger persists batch state in SQLite.
//
// Two tables are kept: per-channel bookmarks recording the creation time of
// the newest recording handed to the trimmer, and a run history with one row
// per processed recording. Writes retry on SQLITE_BUSY so a watch loop and a
// manual `history` query can share the database.
package ledger
