package testserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goTutor/jwt"
)

// Account is a user known to the server.
type Account struct {
	ID       string
	Name     string
	Email    string
	Password string
	Role     string
	Grade    string
}

// Options configures a [Server]. Zero values give a one-hour token, OTP "123456" and a
// single student account alice@example.com / password.
type Options struct {
	Accounts   []Account
	RequireOTP bool
	OTP        string
	TokenTTL   time.Duration
	Secret     []byte
	Now        func() time.Time
}

// Recorded is one request as the server saw it.
type Recorded struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	UserAgent     string
}

// Server is a running fake backend.
type Server struct {
	URL string

	srv      *httptest.Server
	signer   *jwt.Manager
	accounts map[string]Account
	opts     Options

	mu       sync.Mutex
	revoked  map[string]bool
	recorded []Recorded

	refreshCalls  atomic.Int64
	refreshStatus atomic.Int32
	refreshDelay  atomic.Int64
	resourceAuth  atomic.Int32
	rejectNext    atomic.Int32
	omitToken     atomic.Bool
}

var defaultAccount = Account{
	ID:       "u-alice",
	Name:     "Alice",
	Email:    "alice@example.com",
	Password: "password",
	Role:     "student",
	Grade:    "ninth",
}

// New starts a server. Call Close when done.
func New(opts Options) (*Server, error) {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.OTP == "" {
		opts.OTP = "123456"
	}
	if len(opts.Secret) == 0 {
		opts.Secret = []byte("testserver-hs256-secret")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if len(opts.Accounts) == 0 {
		opts.Accounts = []Account{defaultAccount}
	}

	signer, err := jwt.NewManager(jwt.Config{
		TTL:           opts.TokenTTL,
		SigningMethod: jwt.MethodHS256,
		PrivateKey:    opts.Secret,
		Issuer:        "testserver",
		Now:           opts.Now,
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		signer:   signer,
		accounts: make(map[string]Account, len(opts.Accounts)),
		opts:     opts,
		revoked:  make(map[string]bool),
	}
	for _, a := range opts.Accounts {
		s.accounts[strings.ToLower(a.Email)] = a
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/users/login", s.handleLogin)
	mux.HandleFunc("POST /api/users/verify-otp", s.handleVerifyOTP)
	mux.HandleFunc("POST /auth/refresh-token", s.handleRefresh)
	mux.HandleFunc("GET /grades", s.handlePublic)
	mux.HandleFunc("GET /grades/", s.handlePublic)
	mux.HandleFunc("/", s.handleResource)

	s.srv = httptest.NewServer(s.record(mux))
	s.URL = s.srv.URL
	return s, nil
}

func (s *Server) Close() { s.srv.Close() }

// Client returns a client configured for the server.
func (s *Server) Client() *http.Client { return s.srv.Client() }

// Issue mints a valid token for the account with the given email.
func (s *Server) Issue(email string) (string, error) {
	a, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return "", errors.New("unknown account")
	}
	return s.issue(a)
}

// Revoke makes token fail on every endpoint.
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	s.revoked[token] = true
	s.mu.Unlock()
}

// FailRefresh makes the refresh endpoint answer status until reset with 0.
func (s *Server) FailRefresh(status int) { s.refreshStatus.Store(int32(status)) }

// DelayRefresh holds every refresh response for d.
func (s *Server) DelayRefresh(d time.Duration) { s.refreshDelay.Store(int64(d)) }

// RejectResources makes resource endpoints answer status regardless of the token,
// until reset with 0.
func (s *Server) RejectResources(status int) { s.resourceAuth.Store(int32(status)) }

// RejectNextResources makes the next n resource requests answer 401.
func (s *Server) RejectNextResources(n int) { s.rejectNext.Store(int32(n)) }

// OmitRefreshToken makes a successful refresh answer without a token.
func (s *Server) OmitRefreshToken(omit bool) { s.omitToken.Store(omit) }

// RefreshCalls returns how many refresh requests arrived.
func (s *Server) RefreshCalls() int64 { return s.refreshCalls.Load() }

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.recorded...)
}

// RequestsTo returns the recorded requests for path.
func (s *Server) RequestsTo(path string) []Recorded {
	var out []Recorded
	for _, r := range s.Requests() {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.recorded = append(s.recorded, Recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
			UserAgent:     r.Header.Get("User-Agent"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a, ok := s.accounts[strings.ToLower(body.Email)]
	if !ok || a.Password != body.Password {
		writeMessage(w, http.StatusBadRequest, "Invalid credentials")
		return
	}
	if s.opts.RequireOTP {
		writeMessage(w, http.StatusOK, "OTP sent to your email")
		return
	}
	s.writeSession(w, a)
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	a, ok := s.accounts[strings.ToLower(body.Email)]
	if !ok || body.OTP != s.opts.OTP {
		writeMessage(w, http.StatusBadRequest, "Invalid or expired OTP")
		return
	}
	s.writeSession(w, a)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)
	if d := time.Duration(s.refreshDelay.Load()); d > 0 {
		select {
		case <-time.After(d):
		case <-r.Context().Done():
			return
		}
	}
	if status := int(s.refreshStatus.Load()); status != 0 {
		writeMessage(w, status, "Refresh rejected")
		return
	}

	a, ok := s.authorize(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}
	if s.omitToken.Load() {
		writeJSON(w, http.StatusOK, map[string]any{"user": profile(a)})
		return
	}
	s.writeSession(w, a)
}

func (s *Server) handlePublic(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"path": r.URL.Path, "public": true})
}

func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	if status := int(s.resourceAuth.Load()); status != 0 {
		writeMessage(w, status, "Not authorized")
		return
	}
	if s.rejectNext.Add(-1) >= 0 {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token expired")
		return
	}
	s.rejectNext.CompareAndSwap(-1, 0)
	a, ok := s.authorize(r)
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}

	var body json.RawMessage
	if r.Body != nil && r.ContentLength != 0 {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"path":   r.URL.Path,
		"query":  r.URL.RawQuery,
		"method": r.Method,
		"user":   a.ID,
		"body":   body,
	})
}

func (s *Server) authorize(r *http.Request) (Account, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return Account{}, false
	}
	s.mu.Lock()
	revoked := s.revoked[token]
	s.mu.Unlock()
	if revoked {
		return Account{}, false
	}
	claims, err := s.signer.Parse(token)
	if err != nil {
		return Account{}, false
	}
	a, ok := s.accounts[strings.ToLower(claims.Email)]
	return a, ok
}

func (s *Server) issue(a Account) (string, error) {
	return s.signer.Issue(a.ID, jwt.Claims{Name: a.Name, Email: a.Email, Role: a.Role, Grade: a.Grade})
}

func (s *Server) writeSession(w http.ResponseWriter, a Account) {
	token, err := s.issue(a)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Token issue failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": profile(a)})
}

func profile(a Account) map[string]string {
	return map[string]string{"_id": a.ID, "name": a.Name, "email": a.Email, "role": a.Role, "grade": a.Grade}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
