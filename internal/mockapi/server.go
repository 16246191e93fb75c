package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/MrEthical07/goAuthClient/session"
	"github.com/MrEthical07/goAuthClient/token"
)

var ErrEmailTaken = errors.New("email already registered")

// Config configures a Server.
type Config struct {
	// BasePath prefixes every route, e.g. "/api".
	BasePath string
	Secret   []byte
	TokenTTL time.Duration
	Hash     HashConfig
}

// DefaultConfig serves under /api with one-hour tokens. Secret is left empty
// and must be set by the caller.
func DefaultConfig() Config {
	return Config{
		BasePath: "/api",
		TokenTTL: time.Hour,
		Hash:     DefaultHashConfig(),
	}
}

type account struct {
	user         session.User
	passwordHash string
}

// Server holds accounts in memory and serves the account API.
type Server struct {
	cfg    Config
	issuer *token.Issuer
	hasher *hasher
	log    logrus.FieldLogger

	mu      sync.RWMutex
	byEmail map[string]*account
	byID    map[string]*account
}

func New(cfg Config, log logrus.FieldLogger) (*Server, error) {
	issuer, err := token.NewIssuer(token.Config{
		TTL:           cfg.TokenTTL,
		SigningMethod: token.MethodHS256,
		PrivateKey:    cfg.Secret,
		Issuer:        "mock-api",
	})
	if err != nil {
		return nil, err
	}
	h, err := newHasher(cfg.Hash)
	if err != nil {
		return nil, err
	}
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	cfg.BasePath = "/" + strings.Trim(cfg.BasePath, "/")
	if cfg.BasePath == "/" {
		cfg.BasePath = ""
	}

	return &Server{
		cfg:     cfg,
		issuer:  issuer,
		hasher:  h,
		log:     log,
		byEmail: make(map[string]*account),
		byID:    make(map[string]*account),
	}, nil
}

// AddUser registers an account directly, bypassing HTTP.
func (s *Server) AddUser(name, email, password string) (session.User, error) {
	hash, err := s.hasher.hash(password)
	if err != nil {
		return session.User{}, err
	}

	email = normalizeEmail(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[email]; ok {
		return session.User{}, ErrEmailTaken
	}
	acc := &account{
		user:         session.User{ID: uuid.NewString(), Name: strings.TrimSpace(name), Email: email},
		passwordHash: hash,
	}
	s.byEmail[email] = acc
	s.byID[acc.user.ID] = acc
	return acc.user, nil
}

// RemoveUser deletes an account so its outstanding tokens stop working.
func (s *Server) RemoveUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.byID[id]; ok {
		delete(s.byEmail, acc.user.Email)
		delete(s.byID, id)
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+s.cfg.BasePath+"/users/sessions", s.handleSignIn)
	mux.HandleFunc("POST "+s.cfg.BasePath+"/users", s.handleSignUp)
	mux.HandleFunc("GET "+s.cfg.BasePath+"/users/profile", s.handleProfile)
	return mux
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User  session.User `json:"user"`
	Token string       `json:"token"`
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body signInRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	s.mu.RLock()
	acc, ok := s.byEmail[normalizeEmail(body.Email)]
	s.mu.RUnlock()
	if !ok {
		s.log.WithField("request_id", r.Header.Get("X-Request-ID")).Info("sign in for unknown email")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	match, err := s.hasher.verify(body.Password, acc.passwordHash)
	if err != nil || !match {
		s.log.WithField("user_id", acc.user.ID).Info("sign in with wrong password")
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	s.respondWithSession(w, http.StatusOK, acc.user)
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var body signUpRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" || !strings.Contains(body.Email, "@") {
		writeError(w, http.StatusBadRequest, "name and a valid email are required")
		return
	}

	user, err := s.AddUser(body.Name, body.Email, body.Password)
	switch {
	case errors.Is(err, ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, errPasswordTooShort):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.WithError(err).Error("sign up failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	s.log.WithField("user_id", user.ID).Info("account created")
	s.respondWithSession(w, http.StatusCreated, user)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	claims, err := s.issuer.Verify(raw)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	s.mu.RLock()
	acc, ok := s.byID[claims.Subject]
	s.mu.RUnlock()
	if !ok {
		writeError(w, http.StatusUnauthorized, "account no longer exists")
		return
	}
	writeJSON(w, http.StatusOK, acc.user)
}

func (s *Server) respondWithSession(w http.ResponseWriter, status int, user session.User) {
	tok, err := s.issuer.Issue(user)
	if err != nil {
		s.log.WithError(err).Error("token issue failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, status, sessionResponse{User: user, Token: tok})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
