// Package goAuthClient keeps a client's authentication session consistent
// between memory, durable storage and the remote API.
//
// A [Manager] is built once per process through [Builder.Build]. It hydrates
// its [State] from a [session.Store] in the background, exchanges
// [Credentials] or [RegistrationData] for a session through the
// [gateway.Client], persists the result and notifies subscribers of every
// transition.
//
// # Architecture boundaries
//
// The session package owns the persisted representation. The gateway package
// owns request construction and response classification, and clears the
// store when the API answers 401. The Manager is the only writer of
// in-memory state; it learns about 401s through a gateway Observer.
//
// # What this package must NOT do
//
//   - Retry requests or refresh tokens.
//   - Let a subscriber observe a State that the store does not back.
//   - Report hydration failures to callers. They are logged and resolved to
//     PhaseAnonymous.
//
// # Concurrency
//
// All Manager methods are safe for concurrent use. Transitions are
// serialized, so subscribers see them in completion order.
package goAuthClient
