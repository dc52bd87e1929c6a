// Package mybookings holds the signed-in user's paginated booking list.
package mybookings

import (
	"context"
	"errors"
	"sync"

	"bookingclient/internal/api"
	"bookingclient/internal/events"
	"bookingclient/internal/metrics"
	"bookingclient/internal/models"

	"github.com/rs/zerolog"
)

const (
	fetchFailed  = "Failed to fetch bookings"
	cancelFailed = "Failed to cancel booking"

	// DefaultPageSize is used when the manager is built with a non-positive size.
	DefaultPageSize = 10
	sortByCreatedAt = "createdAt"
)

// Backend is the subset of the API client the list needs.
type Backend interface {
	ListMyBookings(ctx context.Context, q models.BookingQuery) (*models.BookingPage, error)
	CancelBooking(ctx context.Context, id int64) error
}

// Snapshot is a copy of the list state.
type Snapshot struct {
	Bookings      []models.BookingRecord
	Page          int
	PageSize      int
	HasMore       bool
	Status        models.BookingStatus
	SortDirection models.SortDirection
	Loading       bool
	Error         string
}

type Manager struct {
	mu       sync.Mutex
	bookings []models.BookingRecord
	page     int
	pageSize int
	hasMore  bool
	loaded   bool
	status   models.BookingStatus
	sortDir  models.SortDirection
	loading  bool
	errMsg   string
	// seq invalidates in-flight fetches when a reset starts.
	seq uint64

	backend Backend
	bus     *events.EventBus
	logger  *zerolog.Logger
}

func NewManager(backend Backend, pageSize int, logger *zerolog.Logger) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Manager{
		page:     1,
		pageSize: pageSize,
		sortDir:  models.SortDesc,
		backend:  backend,
		logger:   logger,
	}
}

// Attach reloads the list from page 1 whenever a booking is created and
// publishes cancellations to bus. The reload runs on the publisher's goroutine.
func (m *Manager) Attach(ctx context.Context, bus *events.EventBus) {
	m.mu.Lock()
	m.bus = bus
	m.mu.Unlock()
	reload := func(events.Event) error {
		return m.Fetch(ctx, true)
	}
	bus.Subscribe(events.BookingCreated, reload)
}

// Fetch loads bookings. With reset the list is replaced by page 1;
// otherwise the next page is appended, and only while the server reports
// more. A non-reset fetch before anything was loaded behaves as a reset.
func (m *Manager) Fetch(ctx context.Context, reset bool) error {
	m.mu.Lock()
	if !m.loaded {
		reset = true
	}
	if !reset && !m.hasMore {
		m.mu.Unlock()
		return nil
	}
	page := m.page + 1
	if reset {
		page = 1
	}
	m.seq++
	seq := m.seq
	q := models.BookingQuery{
		Page:          page,
		PageSize:      m.pageSize,
		Status:        m.status,
		SortBy:        sortByCreatedAt,
		SortDirection: m.sortDir,
	}
	m.loading = true
	m.errMsg = ""
	m.mu.Unlock()

	res, err := m.backend.ListMyBookings(ctx, q)

	m.mu.Lock()
	defer m.mu.Unlock()
	if seq != m.seq {
		m.logger.Debug().Int("page", page).Msg("dropping stale bookings page")
		return nil
	}
	m.loading = false
	if err != nil {
		m.errMsg = api.Message(err, fetchFailed)
		m.logger.Warn().Err(err).Int("page", page).Msg("fetch bookings failed")
		return err
	}
	if reset {
		m.bookings = append([]models.BookingRecord(nil), res.Bookings...)
	} else {
		m.bookings = append(m.bookings, res.Bookings...)
	}
	m.page = page
	m.hasMore = res.HasMore
	m.loaded = true
	return nil
}

// Cancel cancels a booking and reloads the list from page 1. The local
// list is never patched in place.
func (m *Manager) Cancel(ctx context.Context, id int64) error {
	m.mu.Lock()
	m.loading = true
	m.errMsg = ""
	m.mu.Unlock()

	if err := m.backend.CancelBooking(ctx, id); err != nil {
		m.mu.Lock()
		m.loading = false
		m.errMsg = api.Message(err, cancelFailed)
		m.mu.Unlock()
		m.logger.Warn().Err(err).Int64("booking_id", id).Msg("cancel booking failed")
		return err
	}
	metrics.IncBookingCancelled()
	m.logger.Info().Int64("booking_id", id).Msg("booking cancelled")
	m.mu.Lock()
	bus := m.bus
	m.mu.Unlock()
	if bus != nil {
		bus.Publish(events.BookingCancelled, id)
	}
	return m.Fetch(ctx, true)
}

// SetStatus filters by status and reloads from page 1. An empty status
// clears the filter.
func (m *Manager) SetStatus(ctx context.Context, status models.BookingStatus) error {
	if status != "" && !status.Valid() {
		return errors.New("mybookings: unknown status " + string(status))
	}
	m.mu.Lock()
	m.status = status
	m.page = 1
	m.mu.Unlock()
	return m.Fetch(ctx, true)
}

// SetSortDirection changes the creation-time ordering and reloads from page 1.
func (m *Manager) SetSortDirection(ctx context.Context, dir models.SortDirection) error {
	if !dir.Valid() {
		return errors.New("mybookings: unknown sort direction " + string(dir))
	}
	m.mu.Lock()
	m.sortDir = dir
	m.page = 1
	m.mu.Unlock()
	return m.Fetch(ctx, true)
}

// SetFilter changes status and sort direction together and reloads from
// page 1 with a single request.
func (m *Manager) SetFilter(ctx context.Context, status models.BookingStatus, dir models.SortDirection) error {
	if status != "" && !status.Valid() {
		return errors.New("mybookings: unknown status " + string(status))
	}
	if !dir.Valid() {
		return errors.New("mybookings: unknown sort direction " + string(dir))
	}
	m.mu.Lock()
	m.status = status
	m.sortDir = dir
	m.page = 1
	m.mu.Unlock()
	return m.Fetch(ctx, true)
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Bookings:      append([]models.BookingRecord(nil), m.bookings...),
		Page:          m.page,
		PageSize:      m.pageSize,
		HasMore:       m.hasMore,
		Status:        m.status,
		SortDirection: m.sortDir,
		Loading:       m.loading,
		Error:         m.errMsg,
	}
}
