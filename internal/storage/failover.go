package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// RecoveryInterval is how long a failed primary is bypassed before it is
// tried again.
const RecoveryInterval = time.Minute

// FailoverStore reads and writes through primary and switches to fallback
// while primary is failing. Writes are mirrored to fallback so it holds a
// recent copy when primary goes down.
type FailoverStore struct {
	primary  Store
	fallback Store
	logger   *zerolog.Logger

	isDown    atomic.Bool
	mu        sync.Mutex
	lastCheck time.Time
}

func NewFailoverStore(primary, fallback Store, logger *zerolog.Logger) *FailoverStore {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverStore{primary: primary, fallback: fallback, logger: logger}
}

// usePrimary reports whether primary should be tried now.
func (s *FailoverStore) usePrimary() bool {
	if !s.isDown.Load() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastCheck) >= RecoveryInterval
}

func (s *FailoverStore) markDown(op string, err error) {
	s.mu.Lock()
	s.lastCheck = time.Now()
	s.mu.Unlock()
	if !s.isDown.Swap(true) {
		s.logger.Warn().Err(err).Str("op", op).Msg("primary storage failed, switching to fallback")
	}
}

func (s *FailoverStore) markUp() {
	if s.isDown.Swap(false) {
		s.logger.Info().Msg("primary storage recovered")
	}
}

func (s *FailoverStore) Get(ctx context.Context, key string) ([]byte, error) {
	if s.usePrimary() {
		v, err := s.primary.Get(ctx, key)
		if err == nil || errors.Is(err, ErrNotFound) {
			s.markUp()
			return v, err
		}
		s.markDown("get", err)
	}
	return s.fallback.Get(ctx, key)
}

func (s *FailoverStore) Set(ctx context.Context, key string, value []byte) error {
	fbErr := s.fallback.Set(ctx, key, value)
	if s.usePrimary() {
		err := s.primary.Set(ctx, key, value)
		if err == nil {
			s.markUp()
			return nil
		}
		s.markDown("set", err)
	}
	return fbErr
}

func (s *FailoverStore) Delete(ctx context.Context, key string) error {
	fbErr := s.fallback.Delete(ctx, key)
	if s.usePrimary() {
		err := s.primary.Delete(ctx, key)
		if err == nil {
			s.markUp()
			return nil
		}
		s.markDown("delete", err)
	}
	return fbErr
}

func (s *FailoverStore) Close() error {
	return errors.Join(s.primary.Close(), s.fallback.Close())
}
