// Package fetch queries the Grants.gov search API and flattens opportunity
// hits into tables.
//
// Searches are paged and paced by a shared rate limiter. Each successful search
// is cached in storage; when the API is unavailable, Fetcher returns the last
// snapshot for the same query and marks the result SourceCachedFallback.
//
// Optional enrichment fetches each opportunity's synopsis concurrently and adds
// description and award columns.
package fetch
