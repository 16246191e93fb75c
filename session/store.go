package session

import (
	"context"
	"errors"
)

// ErrNoSession is returned by Load when no complete, well-formed session is
// persisted. It is a normal outcome, not a failure of the backend.
var ErrNoSession = errors.New("no session")

// ErrStoreUnavailable wraps backend I/O failures.
var ErrStoreUnavailable = errors.New("session store unavailable")

// ErrInvalidSession is returned by Save for a session without a token.
var ErrInvalidSession = errors.New("invalid session")

// Store persists the current session across process restarts.
//
// Implementations must make Save and Clear atomic with respect to Load: a
// concurrent reader sees the previous complete session, the new complete
// session, or no session.
type Store interface {
	// Save persists token and user as one unit.
	Save(ctx context.Context, sess *Session) error
	// Load returns the persisted session, or ErrNoSession when either half is
	// missing or the user record does not parse. Load never mutates the store.
	Load(ctx context.Context) (*Session, error)
	// Clear removes token and user. Clearing an empty store succeeds.
	Clear(ctx context.Context) error
	// HasToken reports whether a token is persisted, regardless of whether the
	// user record is readable.
	HasToken(ctx context.Context) (bool, error)
	// Token returns the persisted token, or "" when none is stored. Like
	// HasToken it ignores the state of the user record.
	Token(ctx context.Context) (string, error)
}

func validateForSave(sess *Session) ([]byte, error) {
	if !sess.Valid() {
		return nil, ErrInvalidSession
	}
	return EncodeUser(sess.User)
}
