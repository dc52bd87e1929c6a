package booking

import (
	"context"
	"errors"

	"bookingclient/internal/availability"
	"bookingclient/internal/events"
	"bookingclient/internal/models"

	"github.com/rs/zerolog"
)

var (
	// ErrNoSelection is returned when booking is attempted without a selected slot.
	ErrNoSelection = errors.New("booking: no time slot selected")
	// ErrDiscarded is returned when a reset dropped the submission outcome.
	ErrDiscarded = errors.New("booking: submission discarded")
)

// Workflow books the slot selected in an availability manager.
type Workflow struct {
	avail     *availability.Manager
	submitter *Submitter
	bus       *events.EventBus
	logger    *zerolog.Logger
}

func NewWorkflow(avail *availability.Manager, submitter *Submitter, bus *events.EventBus, logger *zerolog.Logger) *Workflow {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Workflow{avail: avail, submitter: submitter, bus: bus, logger: logger}
}

// BookSelected submits the selected slot. On success the selection is
// cleared, BookingCreated is published and the submission is consumed.
// On failure the failed state is left for the caller to show and reset.
func (w *Workflow) BookSelected(ctx context.Context, notes string) (*models.BookingRecord, error) {
	slot, ok := w.avail.Selected()
	if !ok {
		return nil, ErrNoSelection
	}
	facilityID, date := w.avail.Target()

	details := models.BookingDetails{
		FacilityID:  facilityID,
		BookingDate: date,
		StartHour:   slot.Hour,
		Notes:       notes,
	}
	if err := w.submitter.Submit(ctx, details); err != nil {
		return nil, err
	}

	res := w.submitter.Result()
	if res.State != StateSucceeded {
		return nil, ErrDiscarded
	}
	w.avail.ClearSelection()
	if w.bus != nil {
		w.bus.Publish(events.BookingCreated, res.Booking)
	}
	w.submitter.Consume()
	w.logger.Debug().Int64("booking_id", res.Booking.ID).Msg("booking consumed")
	return res.Booking, nil
}
