// Package browse loads collection pages and runs similarity searches on
// behalf of a viewer.
//
// A Loader pages through a collection with a one-based page number. Pages
// are cached per (connection, collection) together with the page number,
// page size and filter they were loaded with; a write is dropped when the
// cache generation moved while the page was loading.
//
// A Searcher runs text, vector and by-id searches and keeps the last search
// of each collection in the cache. Similarity turns distances into scores.
package browse
