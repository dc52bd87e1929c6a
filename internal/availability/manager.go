// Package availability tracks the daily slot grid of one facility and the
// user's single-slot selection within it.
package availability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"bookingclient/internal/api"
	"bookingclient/internal/models"

	"github.com/rs/zerolog"
)

type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusErrored Status = "errored"
)

const fetchFailedMessage = "Failed to fetch availability"

// Fetcher loads the availability grid.
type Fetcher interface {
	GetDailyAvailability(ctx context.Context, facilityID int64, date string) (*models.AvailabilityDay, error)
}

// Snapshot is a copy of the manager state for rendering.
type Snapshot struct {
	Status     Status
	FacilityID int64
	Date       string
	Day        *models.AvailabilityDay
	Selected   []models.TimeSlot
	Error      string
}

// Manager holds the availability of one (facility, date) pair at a time.
type Manager struct {
	mu         sync.Mutex
	status     Status
	facilityID int64
	date       string
	day        *models.AvailabilityDay
	selected   *models.TimeSlot
	err        string

	// seq identifies the latest fetch; older responses are dropped.
	seq uint64

	fetcher Fetcher
	logger  *zerolog.Logger
}

func NewManager(fetcher Fetcher, logger *zerolog.Logger) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Manager{status: StatusIdle, fetcher: fetcher, logger: logger}
}

// Fetch loads the grid for facilityID on date (YYYY-MM-DD), replacing any
// held grid wholesale and clearing the selection.
func (m *Manager) Fetch(ctx context.Context, facilityID int64, date string) error {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	m.status = StatusLoading
	m.facilityID = facilityID
	m.date = date
	m.err = ""
	m.selected = nil
	m.mu.Unlock()

	if _, err := time.Parse(models.DateLayout, date); err != nil {
		err = fmt.Errorf("invalid date %q; expected YYYY-MM-DD", date)
		m.apply(seq, nil, err)
		return err
	}

	day, err := m.fetcher.GetDailyAvailability(ctx, facilityID, date)
	if !m.apply(seq, day, err) {
		m.logger.Debug().Int64("facility_id", facilityID).Str("date", date).Msg("discarding stale availability response")
	}
	return err
}

// apply stores a fetch result if it belongs to the latest fetch.
func (m *Manager) apply(seq uint64, day *models.AvailabilityDay, err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if seq != m.seq {
		return false
	}
	m.selected = nil
	if err != nil {
		m.day = nil
		m.status = StatusErrored
		m.err = api.Message(err, fetchFailedMessage)
		m.logger.Warn().Err(err).Msg("availability fetch failed")
		return true
	}
	m.day = day
	m.status = StatusLoaded
	m.err = ""
	return true
}

// Toggle selects slot, replacing any previous selection. Unavailable slots
// and slots outside the held grid are ignored.
func (m *Manager) Toggle(slot models.TimeSlot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !slot.Available {
		return false
	}
	held, ok := m.day.Slot(slot.Hour)
	if !ok || !held.Available {
		return false
	}
	m.selected = &held
	return true
}

// ToggleHour selects the slot starting at hour.
func (m *Manager) ToggleHour(hour int) bool {
	m.mu.Lock()
	slot, ok := m.day.Slot(hour)
	m.mu.Unlock()
	if !ok {
		return false
	}
	return m.Toggle(slot)
}

func (m *Manager) ClearSelection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected = nil
}

// Reset returns to idle and invalidates any in-flight fetch.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.status = StatusIdle
	m.facilityID = 0
	m.date = ""
	m.day = nil
	m.selected = nil
	m.err = ""
}

// Selected returns the selected slot, if any.
func (m *Manager) Selected() (models.TimeSlot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.selected == nil {
		return models.TimeSlot{}, false
	}
	return *m.selected, true
}

// HasSelection reports whether a slot is selected.
func (m *Manager) HasSelection() bool {
	_, ok := m.Selected()
	return ok
}

// Target returns the facility and date of the held grid.
func (m *Manager) Target() (int64, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.facilityID, m.date
}

func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Snapshot{
		Status:     m.status,
		FacilityID: m.facilityID,
		Date:       m.date,
		Day:        m.day.Clone(),
		Error:      m.err,
	}
	if m.selected != nil {
		s.Selected = []models.TimeSlot{*m.selected}
	}
	return s
}
