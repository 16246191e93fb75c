package goAuthClient

import "github.com/MrEthical07/goAuthClient/session"

// User is the authenticated identity returned by the API.
type User = session.User

// Session pairs a bearer token with its User.
type Session = session.Session

// Phase is the coarse authentication state of a Manager.
type Phase uint8

const (
	// PhaseInitializing lasts until hydration from the store completes.
	PhaseInitializing Phase = iota
	PhaseAnonymous
	PhaseAuthenticated
)

func (p Phase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseAnonymous:
		return "anonymous"
	case PhaseAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// State is an immutable snapshot of the Manager. User is the zero value
// unless Phase is PhaseAuthenticated.
type State struct {
	Phase Phase
	User  User
}

func (s State) IsAuthenticated() bool {
	return s.Phase == PhaseAuthenticated
}

func anonymousState() State {
	return State{Phase: PhaseAnonymous}
}

func authenticatedState(u User) State {
	return State{Phase: PhaseAuthenticated, User: u}
}

// Credentials are exchanged for a session by SignIn. They are never
// persisted.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegistrationData creates an account through SignUp. It is never persisted.
type RegistrationData struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse is the success body of both the sign-in and sign-up
// endpoints.
type authResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// Subscriber is called with the new State after every transition.
type Subscriber func(State)
