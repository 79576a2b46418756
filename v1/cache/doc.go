// Package cache remembers browsing and search state per (database,
// collection) so switching collections does not refetch data.
//
// Entries live until they are invalidated; there is no expiry. The Manager
// is meant to be a single shared instance, constructed once and injected
// into every component that reads or invalidates it. Entries are copied on
// the way in and out, so callers cannot mutate cached state.
//
// Storage sits behind Store. The memory store is the default; the redis
// store shares state between processes and keeps entries as JSON, which
// turns integer metadata values into float64 on the way back.
//
// A background load should read Generation before it starts and write with
// SetIfGeneration, so results of a load started against a previous
// connection are dropped after a global invalidation.
package cache
