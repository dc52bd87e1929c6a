package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"bookingclient/internal/api"
	"bookingclient/internal/availability"
	"bookingclient/internal/events"
	"bookingclient/internal/models"
	"bookingclient/internal/mybookings"
	"bookingclient/internal/session"
	"bookingclient/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// bookingServer is a minimal in-memory backend for the booking flow.
type bookingServer struct {
	mu        sync.Mutex
	created   []models.BookingDetails
	listCalls []string
	unauthed  []string
}

func (s *bookingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.URL.Path != "/auth/login" && r.Header.Get("Authorization") != "Bearer access-1" {
		s.unauthed = append(s.unauthed, r.URL.Path)
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/auth/login":
		writeJSON(w, http.StatusOK, models.AuthResponse{
			AccessToken:  "access-1",
			RefreshToken: "refresh-1",
			User:         models.User{Name: "Ann", Email: "a@x.com"},
		})
	case r.Method == http.MethodGet && r.URL.Path == "/facilities/1/availability/daily":
		writeJSON(w, http.StatusOK, models.AvailabilityDay{
			Date:    r.URL.Query().Get("date"),
			DayName: "Saturday",
			TimeSlots: []models.TimeSlot{
				{Hour: 8, StartTime: "08:00", EndTime: "09:00", Available: false, CurrentBookings: 1, MaxCapacity: 1},
				{Hour: 9, StartTime: "09:00", EndTime: "10:00", Available: true, MaxCapacity: 1},
			},
		})
	case r.Method == http.MethodPost && r.URL.Path == "/facilities/bookings":
		var d models.BookingDetails
		if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		s.created = append(s.created, d)
		writeJSON(w, http.StatusCreated, models.BookingRecord{
			ID: 100, FacilityID: d.FacilityID, BookingDate: d.BookingDate,
			StartHour: d.StartHour, EndHour: d.StartHour + 1, Status: models.StatusBooked,
		})
	case r.Method == http.MethodGet && r.URL.Path == "/facilities/bookings/my":
		s.listCalls = append(s.listCalls, r.URL.Query().Get("page"))
		var page models.BookingPage
		for i, d := range s.created {
			page.Bookings = append(page.Bookings, models.BookingRecord{
				ID: int64(100 + i), FacilityID: d.FacilityID, BookingDate: d.BookingDate,
				StartHour: d.StartHour, EndHour: d.StartHour + 1, Status: models.StatusBooked,
			})
		}
		writeJSON(w, http.StatusOK, page)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestBookSelected_EndToEnd(t *testing.T) {
	backend := &bookingServer{}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	ctx := context.Background()
	bus := events.NewEventBus(nil)
	client := api.NewClient(srv.URL, 2*time.Second, nil)
	sess := session.NewStore(storage.NewMemoryStore(), client, bus, nil)
	client.UseCredentials(sess)
	sess.Restore(ctx)

	require.NoError(t, sess.Login(ctx, "a@x.com", "pw"))
	require.True(t, sess.IsAuthenticated())

	avail := availability.NewManager(client, nil)
	require.NoError(t, avail.Fetch(ctx, 1, "2024-06-01"))
	slot, ok := avail.Snapshot().Day.Slot(9)
	require.True(t, ok)
	require.True(t, slot.Available)
	require.True(t, avail.ToggleHour(9))

	list := mybookings.NewManager(client, 10, nil)
	list.Attach(ctx, bus)

	sub := NewSubmitter(client, nil)
	var seen []State
	bus.Subscribe(events.BookingCreated, func(events.Event) error {
		seen = append(seen, sub.Result().State)
		return nil
	})

	wf := NewWorkflow(avail, sub, bus, nil)
	rec, err := wf.BookSelected(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(100), rec.ID)

	assert.False(t, avail.HasSelection())
	assert.Equal(t, StateIdle, sub.Result().State)
	assert.Equal(t, []State{StateSucceeded}, seen)

	backend.mu.Lock()
	assert.Equal(t, []models.BookingDetails{{FacilityID: 1, BookingDate: "2024-06-01", StartHour: 9}}, backend.created)
	assert.Equal(t, []string{"1"}, backend.listCalls)
	assert.Empty(t, backend.unauthed)
	backend.mu.Unlock()

	snap := list.Snapshot()
	require.Len(t, snap.Bookings, 1)
	assert.Equal(t, 9, snap.Bookings[0].StartHour)
}

func TestBookSelected_NoSelection(t *testing.T) {
	c := new(mockCreator)
	avail := availability.NewManager(nil, nil)
	wf := NewWorkflow(avail, NewSubmitter(c, nil), nil, nil)

	_, err := wf.BookSelected(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoSelection)
	c.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}
