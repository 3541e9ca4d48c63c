// Package store persists the rate limits configured through the control
// plane so they survive a restart.
//
// Only the administrative intent is stored: the uid and its configured
// rate. Quota, window and statistics are runtime state and are rebuilt from
// scratch when the limits are replayed at startup.
//
// # Backends
//
//   - memory: the default, nothing survives the process
//   - sqlite: a local database file (pure Go driver, WAL mode)
//   - redis: a hash shared by every host pointing at the same server
//
// # Usage
//
//	backend, err := store.New(store.Config{Backend: "sqlite", SQLite: store.SQLiteConfig{Path: "data/limits.db"}})
//	if err != nil {
//	    return err
//	}
//	defer backend.Close()
//
//	limits, err := backend.List(ctx)
package store
