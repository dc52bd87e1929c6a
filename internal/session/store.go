// Package session owns the access/refresh token pair and the signed-in identity.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"bookingclient/internal/api"
	"bookingclient/internal/events"
	"bookingclient/internal/models"
	"bookingclient/internal/storage"

	"github.com/rs/zerolog"
)

// State is the lifecycle state of the session store.
type State string

const (
	StateUninitialized   State = "uninitialized"
	StateRestoring       State = "restoring"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// StorageKey is the fixed key the session record is persisted under.
const StorageKey = "auth-storage"

// Authenticator performs the remote auth calls.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*models.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error)
}

// persistedRecord is the on-disk envelope.
type persistedRecord struct {
	State   models.Session `json:"state"`
	Version int            `json:"version"`
}

const recordVersion = 0

// Store is the session owner. It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	state   State
	session models.Session
	loading bool
	// generation counts session mutations.
	generation uint64

	// persistMu serialises writes so the stored record always matches the
	// last in-memory mutation.
	persistMu sync.Mutex

	storage storage.Store
	auth    Authenticator
	bus     *events.EventBus
	logger  *zerolog.Logger

	restoreOnce sync.Once
	ready       chan struct{}
}

// NewStore constructs a store in the uninitialized state. bus may be nil.
func NewStore(st storage.Store, auth Authenticator, bus *events.EventBus, logger *zerolog.Logger) *Store {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Store{
		state:   StateUninitialized,
		storage: st,
		auth:    auth,
		bus:     bus,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Restore loads the persisted session once. Missing or unreadable records
// leave the store unauthenticated; Restore never fails.
func (s *Store) Restore(ctx context.Context) State {
	s.restoreOnce.Do(func() {
		defer close(s.ready)

		s.mu.Lock()
		if s.session.IsAuthenticated() {
			// Signed in before restore ran; the stored record is the same session.
			s.state = StateAuthenticated
			s.mu.Unlock()
			return
		}
		gen := s.generation
		s.state = StateRestoring
		s.loading = true
		s.mu.Unlock()

		restored, ok := s.readPersisted(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.loading = false
		if s.generation != gen {
			// Mutated while restoring; the newer in-memory session wins.
			if s.session.IsAuthenticated() {
				s.state = StateAuthenticated
			} else {
				s.state = StateUnauthenticated
			}
			return
		}
		if ok {
			s.session = restored
			s.state = StateAuthenticated
			s.logger.Info().Str("email", restored.Email).Msg("session restored")
			return
		}
		s.session = models.Session{}
		s.state = StateUnauthenticated
	})
	return s.State()
}

func (s *Store) readPersisted(ctx context.Context) (models.Session, bool) {
	data, err := s.storage.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Error().Err(err).Msg("failed to load session from storage")
		}
		return models.Session{}, false
	}

	var rec persistedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn().Err(err).Msg("discarding corrupt session record")
		return models.Session{}, false
	}
	if !rec.State.IsAuthenticated() {
		return models.Session{}, false
	}
	return rec.State, true
}

// Ready is closed once Restore has settled.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

// Wait blocks until Restore has settled or ctx is done.
func (s *Store) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Login signs in and persists the new session. On failure the store is left
// unauthenticated and the error is returned as-is.
func (s *Store) Login(ctx context.Context, email, password string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	resp, err := s.auth.Login(ctx, email, password)
	if err != nil {
		s.logger.Error().Err(err).Msg("login failed")
		return err
	}
	return s.establish(ctx, resp)
}

// Register creates the account server-side, then behaves like Login.
func (s *Store) Register(ctx context.Context, name, email, password string) error {
	s.setLoading(true)
	defer s.setLoading(false)

	resp, err := s.auth.Register(ctx, name, email, password)
	if err != nil {
		s.logger.Error().Err(err).Msg("registration failed")
		return err
	}
	return s.establish(ctx, resp)
}

func (s *Store) establish(ctx context.Context, resp *models.AuthResponse) error {
	next := models.SessionFromAuth(resp)

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	if err := s.persist(ctx, next); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	s.session = next
	s.state = StateAuthenticated
	s.generation++
	s.mu.Unlock()

	s.logger.Info().Str("email", next.Email).Msg("signed in")
	return nil
}

// ApplyRefresh replaces tokens and identity after a successful refresh of
// the session holding prevRefresh. If that session was logged out or
// replaced meanwhile, nothing changes and api.ErrSessionChanged is returned.
// The new pair is kept in memory even if persisting it fails, since the
// server has already rotated the old one.
func (s *Store) ApplyRefresh(prevRefresh string, resp *models.AuthResponse) error {
	next := models.SessionFromAuth(resp)

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	if prevRefresh == "" || s.session.RefreshToken != prevRefresh {
		s.mu.Unlock()
		s.logger.Debug().Msg("refresh result for a session that is gone")
		return api.ErrSessionChanged
	}
	s.session = next
	s.state = StateAuthenticated
	s.generation++
	s.mu.Unlock()

	if err := s.persist(context.Background(), next); err != nil {
		return fmt.Errorf("persist refreshed session: %w", err)
	}
	return nil
}

// Logout clears every session field. It is idempotent.
func (s *Store) Logout(ctx context.Context) error {
	return s.clear(ctx, "user")
}

// ForceLogout clears the session after an unrecoverable auth failure.
func (s *Store) ForceLogout() {
	if err := s.clear(context.Background(), "forced"); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist forced logout")
	}
}

func (s *Store) clear(ctx context.Context, reason string) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	s.mu.Lock()
	wasAuthenticated := s.session.IsAuthenticated() || s.session.RefreshToken != ""
	s.session = models.Session{}
	s.state = StateUnauthenticated
	s.generation++
	s.mu.Unlock()

	err := s.storage.Delete(ctx, StorageKey)

	if wasAuthenticated {
		s.logger.Info().Str("reason", reason).Msg("signed out")
		if s.bus != nil {
			s.bus.Publish(events.LoggedOut, reason)
		}
	}
	if err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}
	return nil
}

func (s *Store) persist(ctx context.Context, sess models.Session) error {
	data, err := json.Marshal(persistedRecord{State: sess, Version: recordVersion})
	if err != nil {
		return err
	}
	return s.storage.Set(ctx, StorageKey, data)
}

func (s *Store) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Loading reports whether a restore, login or registration is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.AccessToken
}

func (s *Store) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.RefreshToken
}

// IsAuthenticated reports whether an access token is held.
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session.IsAuthenticated()
}

// Snapshot returns a copy of the current session fields.
func (s *Store) Snapshot() models.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.session
}
