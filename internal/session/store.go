package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/botctl/internal/log"
)

// Storage keys.
const (
	KeyToken           = "token"
	KeyProfile         = "user"
	KeyPendingRedirect = "pendingVerificationRedirect"
)

// ErrNoProfile is returned by UpdateProfile when no profile is cached.
var ErrNoProfile = errors.New("session: no profile to update")

// Store holds the bearer token and the cached profile of the signed-in
// principal. It is the single place the rest of the program reads and
// writes authentication state.
//
// Values are loaded from the backend once by Open and then served from
// memory; every write goes through to the backend before it becomes
// visible. Writes made by other processes after Open are not observed.
//
// A Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	backend Backend
	logger  *log.Logger
	observe func(op string)

	token   string
	profile *Profile
	gen     uint64
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for non-fatal load problems.
func WithLogger(logger *log.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithWriteObserver registers fn to be called after every successful
// backend write with an operation name such as "token.save" or
// "user.delete".
func WithWriteObserver(fn func(op string)) Option {
	return func(s *Store) {
		s.observe = fn
	}
}

// Open creates a Store over backend and loads the persisted token and
// profile. A profile that cannot be decoded is treated as absent.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("session: backend is required")
	}

	s := &Store{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.DefaultLogger()
	}
	if s.observe == nil {
		s.observe = func(string) {}
	}

	raw, ok, err := backend.Load(ctx, KeyToken)
	if err != nil {
		return nil, fmt.Errorf("session: loading token: %w", err)
	}
	if ok {
		s.token = string(raw)
	}

	raw, ok, err = backend.Load(ctx, KeyProfile)
	if err != nil {
		// The profile is only a cache; losing it must not block the token.
		s.logger.Warn("session profile unavailable", "error", err.Error())
		return s, nil
	}
	if ok {
		var p Profile
		if err := json.Unmarshal(raw, &p); err != nil {
			s.logger.Warn("discarding unreadable session profile", "error", err.Error())
		} else {
			s.profile = &p
		}
	}

	return s, nil
}

// Token returns the bearer token, if any.
func (s *Store) Token() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.token != ""
}

// SetToken persists token.
func (s *Store) SetToken(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setTokenLocked(ctx, token)
}

// ClearToken removes the token. Clearing an absent token is a no-op.
func (s *Store) ClearToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearTokenLocked(ctx)
}

// Profile returns a copy of the cached profile, if any.
func (s *Store) Profile() (*Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		return nil, false
	}
	p := s.profile.Clone()
	return &p, true
}

// SetProfile replaces the cached profile.
func (s *Store) SetProfile(ctx context.Context, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setProfileLocked(ctx, p)
}

// ClearProfile removes the cached profile.
func (s *Store) ClearProfile(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearProfileLocked(ctx)
}

// UpdateProfile merges patch into the cached profile and persists the
// result. The read and the write happen under one lock. It returns
// ErrNoProfile when nothing is cached yet.
func (s *Store) UpdateProfile(ctx context.Context, patch ProfilePatch) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		return nil, ErrNoProfile
	}
	merged := patch.Apply(*s.profile)
	if err := s.setProfileLocked(ctx, merged); err != nil {
		return nil, err
	}
	out := merged.Clone()
	return &out, nil
}

// Begin stores a freshly issued token together with its profile.
func (s *Store) Begin(ctx context.Context, token string, p Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setTokenLocked(ctx, token); err != nil {
		return err
	}
	return s.setProfileLocked(ctx, p)
}

// Clear removes both the token and the profile. Like ClearIfCurrent it
// always drops the in-memory session.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx)
}

// Generation returns a counter that increases on every token write or
// clear. Callers capture it before a request and pass it to
// ClearIfCurrent when the request is rejected.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Snapshot returns the token together with the generation it belongs to.
// The API layer sends the token and later hands the generation back to
// ClearIfCurrent, so both must be read under one lock.
func (s *Store) Snapshot() (token string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.gen
}

// ClearIfCurrent clears the session only when no token was written or
// cleared since gen was observed. It reports whether it cleared. The
// in-memory session is dropped even when the backend cannot be updated;
// the returned error then only reports the persistence failure.
func (s *Store) ClearIfCurrent(ctx context.Context, gen uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		return false, nil
	}
	return true, s.clearLocked(ctx)
}

// SetPendingRedirect remembers where to send the user once their email
// is verified.
func (s *Store) SetPendingRedirect(ctx context.Context, path string) error {
	if err := s.backend.Save(ctx, KeyPendingRedirect, []byte(path)); err != nil {
		return fmt.Errorf("session: saving pending redirect: %w", err)
	}
	s.observe(KeyPendingRedirect + ".save")
	return nil
}

// TakePendingRedirect returns and forgets the pending redirect path.
func (s *Store) TakePendingRedirect(ctx context.Context) (string, bool) {
	raw, ok, err := s.backend.Load(ctx, KeyPendingRedirect)
	if err != nil || !ok {
		return "", false
	}
	if err := s.backend.Delete(ctx, KeyPendingRedirect); err != nil {
		s.logger.Warn("failed to forget pending redirect", "error", err.Error())
	}
	return string(raw), len(raw) > 0
}

func (s *Store) setTokenLocked(ctx context.Context, token string) error {
	if token == "" {
		return s.clearTokenLocked(ctx)
	}
	if err := s.backend.Save(ctx, KeyToken, []byte(token)); err != nil {
		return fmt.Errorf("session: saving token: %w", err)
	}
	s.token = token
	s.gen++
	s.observe(KeyToken + ".save")
	return nil
}

func (s *Store) clearTokenLocked(ctx context.Context) error {
	if err := s.backend.Delete(ctx, KeyToken); err != nil {
		return fmt.Errorf("session: clearing token: %w", err)
	}
	s.token = ""
	s.gen++
	s.observe(KeyToken + ".delete")
	return nil
}

func (s *Store) setProfileLocked(ctx context.Context, p Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("session: encoding profile: %w", err)
	}
	if err := s.backend.Save(ctx, KeyProfile, raw); err != nil {
		return fmt.Errorf("session: saving profile: %w", err)
	}
	cp := p.Clone()
	s.profile = &cp
	s.observe(KeyProfile + ".save")
	return nil
}

func (s *Store) clearProfileLocked(ctx context.Context) error {
	if err := s.backend.Delete(ctx, KeyProfile); err != nil {
		return fmt.Errorf("session: clearing profile: %w", err)
	}
	s.profile = nil
	s.observe(KeyProfile + ".delete")
	return nil
}

func (s *Store) clearLocked(ctx context.Context) error {
	s.token = ""
	s.profile = nil
	s.gen++

	var errs []error
	if err := s.backend.Delete(ctx, KeyToken); err != nil {
		errs = append(errs, fmt.Errorf("session: clearing token: %w", err))
	} else {
		s.observe(KeyToken + ".delete")
	}
	if err := s.backend.Delete(ctx, KeyProfile); err != nil {
		errs = append(errs, fmt.Errorf("session: clearing profile: %w", err))
	} else {
		s.observe(KeyProfile + ".delete")
	}
	return errors.Join(errs...)
}
