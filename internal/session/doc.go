// Package session is the single owner of persisted authentication state.
//
// # Storage
//
// [Storage] is a minimal key/value contract. Backends:
//   - [MemoryStorage] : process-local map, used by tests and the "memory" driver
//   - repositories.KVRepository : SQLite table, the default
//   - repositories.RedisStorage : a redis hash, for shared workstations
//
// # Store
//
// [Store] wraps a Storage and exposes typed accessors for every key in the mediadesk namespace
// (see [Keys]). Getters fail soft: a missing, unreadable or malformed entry yields the zero value,
// so a corrupted entry degrades to "logged out" instead of an error.
//
// A session is authenticated iff an access token is stored ([Store.IsAuthenticated]). The cached
// profile and the logged-in flag are informational and never grant access on their own.
//
// [Store.ClearAll] removes every namespaced key. It is idempotent, which lets concurrent
// 401 responses clear the session without coordination.
//
// [Store] also implements [oauth2.TokenSource], so HTTP code can stamp the bearer header with
// [oauth2.Token.SetAuthHeader].
package session
