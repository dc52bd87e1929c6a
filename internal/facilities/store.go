// Package facilities loads the facility catalogue and facility details.
package facilities

import (
	"context"
	"sync"

	"bookingclient/internal/api"
	"bookingclient/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	listFailed   = "Failed to fetch facilities"
	detailFailed = "Failed to fetch facility"

	defaultConcurrency = 4
)

// Source is the subset of the API client the store reads from.
type Source interface {
	ListFacilities(ctx context.Context, search string) ([]models.Facility, error)
	GetFacility(ctx context.Context, id int64) (*models.Facility, error)
}

type Snapshot struct {
	Facilities []models.Facility
	Detail     *models.Facility
	Loading    bool
	Error      string
}

// Store holds the last loaded catalogue and the last loaded detail.
type Store struct {
	mu         sync.Mutex
	facilities []models.Facility
	detail     *models.Facility
	loading    bool
	errMsg     string

	source      Source
	concurrency int
	logger      *zerolog.Logger
}

// NewStore builds a store fetching at most concurrency details at once.
func NewStore(source Source, concurrency int, logger *zerolog.Logger) *Store {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Store{source: source, concurrency: concurrency, logger: logger}
}

// FetchAll lists facilities and then loads each facility's detail. A
// facility whose detail fails keeps its list entry. Order follows the list.
func (s *Store) FetchAll(ctx context.Context, search string) ([]models.Facility, error) {
	s.begin()

	basic, err := s.source.ListFacilities(ctx, search)
	if err != nil {
		s.logger.Warn().Err(err).Str("search", search).Msg("list facilities failed")
		s.fail(api.Message(err, listFailed))
		return nil, err
	}

	detailed := make([]models.Facility, len(basic))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, f := range basic {
		i, f := i, f // per-iteration copy; module targets go 1.21 (pre-1.22 loopvar semantics)
		g.Go(func() error {
			d, err := s.source.GetFacility(gctx, f.ID)
			if err != nil || d == nil {
				s.logger.Warn().Err(err).Int64("facility_id", f.ID).Msg("facility detail failed, using list entry")
				detailed[i] = f
				return nil
			}
			detailed[i] = *d
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	s.facilities = detailed
	s.loading = false
	s.mu.Unlock()
	return append([]models.Facility(nil), detailed...), nil
}

// FetchDetail loads one facility.
func (s *Store) FetchDetail(ctx context.Context, id int64) (*models.Facility, error) {
	s.begin()

	f, err := s.source.GetFacility(ctx, id)
	if err != nil {
		s.logger.Warn().Err(err).Int64("facility_id", id).Msg("facility detail failed")
		s.fail(api.Message(err, detailFailed))
		return nil, err
	}

	s.mu.Lock()
	s.detail = f
	s.loading = false
	s.mu.Unlock()
	return f, nil
}

func (s *Store) begin() {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Store) fail(msg string) {
	s.mu.Lock()
	s.loading = false
	s.errMsg = msg
	s.mu.Unlock()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Facilities: append([]models.Facility(nil), s.facilities...),
		Detail:     s.detail,
		Loading:    s.loading,
		Error:      s.errMsg,
	}
}
