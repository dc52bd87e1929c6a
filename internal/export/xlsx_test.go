package export

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"bookingclient/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sample() []models.BookingRecord {
	return []models.BookingRecord{
		{ID: 7, FacilityID: 1, BookingDate: "2024-06-01", StartHour: 9, EndHour: 10, Status: models.StatusBooked,
			CreatedAt: time.Date(2024, 5, 30, 12, 0, 0, 0, time.UTC)},
		{ID: 8, FacilityID: 2, BookingDate: "2024-06-02", StartHour: 14, EndHour: 15, Status: models.StatusCancelled},
	}
}

func TestBookings_Rows(t *testing.T) {
	s, err := Bookings(sample(), map[int64]string{1: "Tennis Court"})
	require.NoError(t, err)
	defer s.Close()

	var buf bytes.Buffer
	require.NoError(t, s.Save(&buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{"7", "Tennis Court", "2024-06-01", "09:00", "10:00", "booked", "2024-05-30T12:00:00Z"}, rows[1])
	// Unknown facility falls back to its id.
	require.GreaterOrEqual(t, len(rows[2]), 6)
	assert.Equal(t, []string{"8", "2", "2024-06-02", "14:00", "15:00", "cancelled"}, rows[2][:6])
}

func TestWriteBookingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookings.xlsx")
	require.NoError(t, WriteBookingsFile(path, sample(), nil))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetName}, f.GetSheetList())
}

func TestNewSheet_TruncatesName(t *testing.T) {
	s, err := NewSheet("a very long sheet name that exceeds the limit")
	require.NoError(t, err)
	defer s.Close()
	assert.Len(t, s.name, 31)
}
