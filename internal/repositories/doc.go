// Package repositories implements the persistent backends behind the session store.
//
// Key Implementations:
//   - [KVRepository] : SQLite key/value table (kv_store), the default backend
//   - [RedisStorage] : a single Redis hash, for sessions shared between machines
//
// Both satisfy session.Storage. Removing a missing key is never an error.
package repositories
