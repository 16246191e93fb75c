// Package token reads and mints the bearer tokens carried by a session.
//
// The client never holds a verification key, so [Inspect] decodes claims
// without checking the signature. It is only ever used to decide whether a
// stored token is worth sending; the server remains the authority.
//
// [Issuer] signs and verifies tokens. It backs the mock API and tests.
package token
