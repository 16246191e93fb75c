// Package mockapi is an in-memory implementation of the account API the
// client talks to: sign-in, sign-up and profile under one base path.
//
// It backs examples/mock-api and the end-to-end tests. Passwords are stored as
// argon2id PHC strings and sessions are HS256 tokens minted by token.Issuer.
//
// # What this package must NOT do
//
//   - Persist anything. All accounts live in process memory.
//   - Import the goAuthClient root package.
package mockapi
