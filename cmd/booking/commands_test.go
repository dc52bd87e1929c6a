package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"bookingclient/internal/config"
	"bookingclient/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	authed := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				reply(w, http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
				return
			}
			h(w, r)
		}
	}
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusOK, models.AuthResponse{AccessToken: "tok", RefreshToken: "ref", User: models.User{Name: "Ann", Email: "a@x.com"}})
	})
	mux.HandleFunc("GET /facilities/{id}/availability/daily", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, models.AvailabilityDay{
			Date: r.URL.Query().Get("date"), DayName: "Saturday",
			TimeSlots: []models.TimeSlot{{Hour: 9, StartTime: "09:00", EndTime: "10:00", Available: true, MaxCapacity: 2}},
		})
	}))
	mux.HandleFunc("POST /facilities/bookings", authed(func(w http.ResponseWriter, r *http.Request) {
		var d models.BookingDetails
		_ = json.NewDecoder(r.Body).Decode(&d)
		reply(w, http.StatusCreated, models.BookingRecord{ID: 5, FacilityID: d.FacilityID, BookingDate: d.BookingDate, StartHour: d.StartHour, EndHour: d.StartHour + 1, Status: models.StatusBooked})
	}))
	mux.HandleFunc("GET /facilities/bookings/my", authed(func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusOK, models.BookingPage{Bookings: []models.BookingRecord{{ID: 5, FacilityID: 1, BookingDate: "2024-06-01", StartHour: 9, EndHour: 10, Status: models.StatusBooked}}})
	}))
	mux.HandleFunc("GET /facilities", authed(func(w http.ResponseWriter, _ *http.Request) {
		reply(w, http.StatusOK, []models.Facility{{ID: 1, Name: "Tennis Court"}})
	}))
	mux.HandleFunc("GET /facilities/{id}", authed(func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, models.Facility{ID: 1, Name: "Tennis Court", Description: "clay"})
	}))
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestApp(t *testing.T, baseURL, dir string) *app {
	t.Helper()
	cfg, err := config.Parse([]byte(fmt.Sprintf("api:\n  base_url: %s\nstorage:\n  driver: file\n  path: %s\n", baseURL, dir)))
	require.NoError(t, err)
	logger := zerolog.Nop()
	a, err := newApp(context.Background(), cfg, &logger)
	require.NoError(t, err)
	t.Cleanup(a.close)
	return a
}

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := stdout
	stdout = &buf
	t.Cleanup(func() { stdout = prev })
	return &buf
}

func TestRun_ProtectedCommandNeedsLogin(t *testing.T) {
	srv := fakeAPI(t)
	a := newTestApp(t, srv.URL, t.TempDir())

	err := a.run(context.Background(), "bookings", nil)
	assert.ErrorIs(t, err, errNotLoggedIn)
}

func TestRun_LoginBookAndExport(t *testing.T) {
	srv := fakeAPI(t)
	dir := t.TempDir()
	out := capture(t)
	ctx := context.Background()

	a := newTestApp(t, srv.URL, dir)
	require.NoError(t, a.run(ctx, "login", []string{"-email", "a@x.com", "-password", "pw"}))
	assert.Contains(t, out.String(), "logged in as Ann <a@x.com>")
	a.close()

	// A new process restores the persisted session.
	b := newTestApp(t, srv.URL, dir)
	out.Reset()
	require.NoError(t, b.run(ctx, "login", nil))
	assert.Contains(t, out.String(), "already logged in as Ann")

	out.Reset()
	require.NoError(t, b.run(ctx, "book", []string{"1", "2024-06-01", "9"}))
	assert.Contains(t, out.String(), "booked #5: facility 1 on 2024-06-01 09:00-10:00")
	assert.Len(t, b.bookings.Snapshot().Bookings, 1, "booking list reloaded after booking")

	out.Reset()
	path := filepath.Join(dir, "bookings.xlsx")
	require.NoError(t, b.run(ctx, "export", []string{path}))
	assert.Contains(t, out.String(), "exported 1 bookings")

	out.Reset()
	require.NoError(t, b.run(ctx, "logout", nil))
	assert.ErrorIs(t, b.run(ctx, "whoami", nil), errNotLoggedIn)
}

func TestRun_BookUnavailableHour(t *testing.T) {
	srv := fakeAPI(t)
	_ = capture(t)
	ctx := context.Background()
	a := newTestApp(t, srv.URL, t.TempDir())
	require.NoError(t, a.run(ctx, "login", []string{"-email", "a@x.com", "-password", "pw"}))

	err := a.run(ctx, "book", []string{"1", "2024-06-01", "11"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hour 11 is not available")
	assert.False(t, a.availability.HasSelection())
}
