// Package gateway executes JSON requests against the remote API on behalf of
// the session manager and any other caller.
//
// Every request resolves its URL against a single base URL, carries
// Content-Type: application/json, and carries Authorization: Bearer <token>
// whenever the [session.Store] holds a token at request time. Responses are
// classified into a success value or one of [NetworkError], [DecodeError] and
// [HTTPError].
//
// # 401 handling
//
// A 401 response clears the session store (token and user together) before
// the [HTTPError] is returned, whatever request triggered it. The gateway does
// not touch any in-memory authentication state; callers that need to react
// register an [Observer].
//
// # What this package must NOT do
//
//   - Retry requests.
//   - Hold authentication state of its own.
//   - Import goAuthClient (no upward imports).
package gateway
