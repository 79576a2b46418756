// Package connection keeps track of the connections a user has open.
//
// Up to MaxConnections profiles may be open at once. Each is an Instance with
// a display name, a lifecycle State and the collections last listed from the
// backend. Exactly one connection is active at a time; switching the active
// connection clears the browse cache and starts a new cache generation, so
// pages loaded for the previous backend are never shown for the new one.
//
//	mgr := connection.NewManager(factory, log,
//	    connection.WithCache(cacheManager),
//	    connection.WithActiveSink(providerManager),
//	)
//	id, err := mgr.Open(ctx, profile)
//	if errors.Is(err, connection.ErrConnectFailed) {
//	    // still registered, retry with mgr.Reconnect(ctx, id)
//	}
package connection
