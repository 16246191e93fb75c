// Package session provides durable persistence of the client's authenticated
// session: the bearer token and the user record it belongs to.
//
// # Storage layout
//
// Every backend stores two logical keys: "token" holding the raw bearer token
// and "user" holding the JSON-encoded [User]. Both keys are written, read and
// removed as one unit. A reader never observes a token from one session paired
// with the user of another.
//
// # Backends
//
//   - [MemoryStore]: process-local, used by tests and short-lived tools.
//   - [RedisStore]: MULTI/EXEC writes and a single MGET read.
//   - [SQLiteStore]: a local database file that survives restarts, the
//     equivalent of browser-local storage for a CLI or desktop process.
//
// # What this package must NOT do
//
//   - Perform HTTP calls or know about API endpoints.
//   - Clear the store on its own when a record is malformed; that decision
//     belongs to the caller.
//   - Import goAuthClient or gateway (no upward imports).
package session
