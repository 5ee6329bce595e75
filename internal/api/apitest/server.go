// Package apitest runs an in-memory bot platform backend for tests.
//
// The fake implements the endpoints botctl calls with just enough
// behavior to exercise the client: token auth, owner-only routes,
// structured error codes and both list encodings.
package apitest

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// MFACode is the only MFA code the fake accepts.
const MFACode = "123456"

// User is an account known to the fake backend.
type User struct {
	ID            int64
	Username      string
	Email         string
	Password      string
	UserType      string
	OrgID         int64
	OrgName       string
	IsOrgOwner    bool
	Plan          string
	EmailVerified bool
	Locked        bool
	FirstName     string
	LastName      string
}

// Recorded is a request seen by the fake.
type Recorded struct {
	Method        string
	Path          string
	RawQuery      string
	Authorization string
	ContentType   string
	RequestID     string
}

type resetToken struct {
	email       string
	mfaRequired bool
}

// Server is a running fake backend.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	nextID        int64
	users         map[string]*User
	tokens        map[string]string
	resets        map[string]resetToken
	codes         map[string]string
	datasources   map[int64]*dataSource
	bots          map[int64]*bot
	conversations map[int64]*conversation
	subscription  subscription
	requests      []Recorded
	failNext      map[string]int
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		nextID:        100,
		users:         make(map[string]*User),
		tokens:        make(map[string]string),
		resets:        make(map[string]resetToken),
		codes:         make(map[string]string),
		datasources:   make(map[int64]*dataSource),
		bots:          make(map[int64]*bot),
		conversations: make(map[int64]*conversation),
		subscription:  subscription{Plan: "free", Status: "active"},
		failNext:      make(map[string]int),
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.record)
	r.Use(s.injectFailures)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login/", s.login)
		r.Post("/auth/register/", s.register)
		r.Post("/auth/password-reset/", s.requestReset)
		r.Post("/auth/password-reset/validate/", s.validateReset)
		r.Post("/auth/password-reset/confirm/", s.confirmReset)
		r.Post("/auth/verify-email/", s.verifyEmail)
		r.Post("/auth/resend-verification/", s.resendVerification)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Post("/auth/logout/", s.logout)
			r.Get("/auth/me/", s.me)
			r.With(s.ownerOnly).Post("/auth/account/password/", s.changePassword)

			r.Route("/datasources", func(r chi.Router) {
				r.Get("/", s.listDataSources)
				r.Post("/", s.createDataSource)
				r.Get("/{id}/", s.getDataSource)
				r.Delete("/{id}/", s.deleteDataSource)
				r.Post("/{id}/test-connection/", s.testDataSource)
			})

			r.Route("/bots", func(r chi.Router) {
				r.Get("/", s.listBots)
				r.Post("/", s.createBot)
				r.Get("/{id}/", s.getBot)
				r.Delete("/{id}/", s.deleteBot)
			})

			r.Route("/conversations", func(r chi.Router) {
				r.Get("/", s.listConversations)
				r.Get("/{id}/", s.getConversation)
				r.Patch("/{id}/", s.renameConversation)
				r.Delete("/{id}/", s.deleteConversation)
			})

			r.Post("/chat/send/", s.sendChat)

			r.Get("/org/users/", s.listOrgUsers)
			r.With(s.ownerOnly).Post("/org/users/", s.createOrgUser)

			r.Get("/billing/plans/", s.listPlans)
			r.Get("/billing/subscription/", s.getSubscription)
			r.With(s.ownerOnly).Post("/billing/subscription/", s.updateSubscription)
		})
	})
	return r
}

// AddUser registers an account and returns it with its assigned ID.
func (s *Server) AddUser(u User) User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	u.ID = s.nextID
	if u.UserType == "" {
		u.UserType = "member"
		if u.IsOrgOwner {
			u.UserType = "owner"
		}
	}
	stored := u
	s.users[u.Username] = &stored
	return u
}

// IssueToken signs username in and returns the token.
func (s *Server) IssueToken(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(username)
}

// RevokeTokens invalidates every issued token.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = make(map[string]string)
}

// IssueResetToken creates a password reset token for email.
func (s *Server) IssueResetToken(email string, mfaRequired bool) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	token := fmt.Sprintf("reset-%d", s.nextID)
	s.resets[token] = resetToken{email: email, mfaRequired: mfaRequired}
	return token
}

// VerificationCode returns the last code sent to email.
func (s *Server) VerificationCode(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[strings.ToLower(email)]
}

// User returns a copy of the stored account.
func (s *Server) User(username string) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// FailNext makes the next n requests to path fail with a 502 and an HTML
// body, the way a misbehaving proxy would.
func (s *Server) FailNext(path string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext[path] = n
}

// Requests returns every request served so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Recorded(nil), s.requests...)
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() (Recorded, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.requests) == 0 {
		return Recorded{}, false
	}
	return s.requests[len(s.requests)-1], true
}

func (s *Server) issueTokenLocked(username string) string {
	s.nextID++
	token := fmt.Sprintf("tok-%d-%d", s.nextID, time.Now().UnixNano())
	s.tokens[token] = username
	return token
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method:        r.Method,
			Path:          r.URL.Path,
			RawQuery:      r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		n := s.failNext[r.URL.Path]
		if n > 0 {
			s.failNext[r.URL.Path] = n - 1
		}
		s.mu.Unlock()

		if n > 0 {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("<html>bad gateway</html>"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey struct{}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Token ")
		if !ok {
			fail(w, r, http.StatusUnauthorized, render.M{"detail": "Authentication credentials were not provided."})
			return
		}

		s.mu.Lock()
		username, ok := s.tokens[token]
		var u *User
		if ok {
			u = s.users[username]
		}
		s.mu.Unlock()

		if u == nil {
			fail(w, r, http.StatusUnauthorized, render.M{"detail": "Invalid token."})
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), u.Username, token)))
	})
}

func (s *Server) ownerOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := s.current(r)
		if u == nil || !u.IsOrgOwner {
			fail(w, r, http.StatusForbidden, render.M{
				"error":  "not_org_owner",
				"detail": "Only the organization owner can do this.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func fail(w http.ResponseWriter, r *http.Request, status int, body render.M) {
	render.Status(r, status)
	render.JSON(w, r, body)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	fail(w, r, http.StatusNotFound, render.M{"detail": "Not found."})
}

func required(w http.ResponseWriter, r *http.Request, field string) {
	fail(w, r, http.StatusBadRequest, render.M{field: []string{"This field is required."}})
}
