// Package catalog holds the remote application catalog.
//
// The catalog is fetched from a raw document URL. Every successful fetch is
// written to a local cache file; when the remote is unreachable the cache is
// used, and without a cache a built-in list keeps the launcher usable.
// Entries that reference a GitHub repository can be synced to that
// repository's latest release.
package catalog
