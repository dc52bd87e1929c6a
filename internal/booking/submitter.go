package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"bookingclient/internal/api"
	"bookingclient/internal/metrics"
	"bookingclient/internal/models"

	"github.com/rs/zerolog"
)

const failedMessage = "Booking failed"

var (
	// ErrInFlight is returned when a submission is already pending.
	ErrInFlight = errors.New("booking: submission already in flight")
	// ErrUnconsumed is returned when a success has not been consumed yet.
	ErrUnconsumed = errors.New("booking: previous success not consumed")
)

// Creator creates bookings on the server.
type Creator interface {
	CreateBooking(ctx context.Context, details models.BookingDetails) (*models.BookingRecord, error)
}

// Result is the observable submission state.
type Result struct {
	State   State
	Booking *models.BookingRecord
	Reason  string
}

// Submitter runs one booking creation at a time.
type Submitter struct {
	mu      sync.Mutex
	fsm     *FSM
	state   State
	booking *models.BookingRecord
	reason  string

	creator Creator
	logger  *zerolog.Logger
}

func NewSubmitter(creator Creator, logger *zerolog.Logger) *Submitter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Submitter{fsm: NewFSM(), state: StateIdle, creator: creator, logger: logger}
}

// Submit issues one booking creation call. The outcome is recorded as
// succeeded or failed; the error is also returned.
func (s *Submitter) Submit(ctx context.Context, details models.BookingDetails) error {
	s.mu.Lock()
	if !s.fsm.CanTransition(s.state, StatePending) {
		state := s.state
		s.mu.Unlock()
		if state == StatePending {
			return ErrInFlight
		}
		return ErrUnconsumed
	}
	s.state = StatePending
	s.booking = nil
	s.reason = ""
	s.mu.Unlock()

	if err := details.Validate(); err != nil {
		s.finish(nil, err.Error())
		return fmt.Errorf("invalid booking: %w", err)
	}

	rec, err := s.creator.CreateBooking(ctx, details)
	if err != nil {
		s.logger.Error().Err(err).
			Int64("facility_id", details.FacilityID).
			Str("date", details.BookingDate).
			Int("start_hour", details.StartHour).
			Msg("booking error")
		metrics.IncBookingSubmitted("failed")
		s.finish(nil, api.Message(err, failedMessage))
		return err
	}

	metrics.IncBookingSubmitted("ok")
	s.logger.Info().Int64("booking_id", rec.ID).Int64("facility_id", details.FacilityID).Msg("booking created")
	s.finish(rec, "")
	return nil
}

func (s *Submitter) finish(rec *models.BookingRecord, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Reset while pending drops the outcome.
	if s.state != StatePending {
		return
	}
	if reason != "" {
		s.state = StateFailed
		s.reason = reason
		return
	}
	s.state = StateSucceeded
	s.booking = rec
}

// Result returns the current state without consuming it.
func (s *Submitter) Result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Result{State: s.state, Booking: s.booking, Reason: s.reason}
}

// Consume returns a terminal result and resets to idle in one step, so a
// success can be acted on only once. Non-terminal states are returned as-is.
func (s *Submitter) Consume() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := Result{State: s.state, Booking: s.booking, Reason: s.reason}
	if res.State.IsTerminal() {
		s.resetLocked()
	}
	return res
}

// Reset returns to idle from any state.
func (s *Submitter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Submitter) resetLocked() {
	s.state = StateIdle
	s.booking = nil
	s.reason = ""
}
