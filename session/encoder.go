package session

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Storage keys shared by every backend.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

var errUserRecordNotObject = errors.New("user record is not a JSON object")

// EncodeUser renders the persisted form of a user record.
func EncodeUser(u User) ([]byte, error) {
	return json.Marshal(u)
}

// DecodeUser parses a persisted user record. Anything other than a JSON
// object, including the literal null, is rejected.
func DecodeUser(data []byte) (User, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return User{}, errUserRecordNotObject
	}
	var u User
	if err := json.Unmarshal(trimmed, &u); err != nil {
		return User{}, err
	}
	return u, nil
}

// assemble builds a Session from the two raw values read from a backend.
// ok is false when either half is missing or the user record is malformed.
func assemble(token string, hasToken bool, userRaw []byte, hasUser bool) (*Session, bool) {
	if !hasToken || token == "" || !hasUser {
		return nil, false
	}
	u, err := DecodeUser(userRaw)
	if err != nil {
		return nil, false
	}
	return &Session{User: u, Token: token}, true
}
