// Package redis wraps go-redis for the shared collection cache.
//
// The package follows the "accept interfaces, return structs" pattern:
// Client describes the commands the cache store needs, NewClient returns
// the concrete *RedisClient and FXModule provides it to fx applications.
//
// # Direct Usage (Without FX)
//
//	client, err := redis.NewClient(redis.Config{
//		Host: "localhost",
//		Port: 6379,
//	})
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	if err := client.SetJSON(ctx, "vi:conn-1:docs", entry, 0); err != nil {
//		return err
//	}
//	keys, err := client.ScanKeys(ctx, "vi:conn-1:*")
//
// # Keys
//
// Key layout is owned by the caller. ScanKeys and DeleteMatching use SCAN,
// never KEYS, so they do not block the server on large keyspaces.
//
// # Errors
//
// Get and GetJSON return Nil for missing keys; use IsNilError to test for
// it. Observers are not told about misses as failures.
package redis
