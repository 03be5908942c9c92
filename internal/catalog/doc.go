// Package catalog talks to the streaming platform's recordings API.
//
// ListRecordings returns a channel's recordings for one game, optionally
// only those created after a bookmark. Download fetches a recording's raw
// source file to disk. The HTTP client is supplied by the caller and no
// state is shared between calls.
package catalog
