package session

// User is the identity returned by the API on sign-in or sign-up.
//
// User values are treated as immutable for the lifetime of a session.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session pairs a bearer token with the user it was issued for.
type Session struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Valid reports whether the session carries a token. The user half is always
// present once a Session value exists.
func (s *Session) Valid() bool {
	return s != nil && s.Token != ""
}
