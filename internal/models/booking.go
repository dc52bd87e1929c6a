package models

import (
	"fmt"
	"time"
)

// BookingStatus is the server-computed state of a booking.
type BookingStatus string

const (
	StatusBooked    BookingStatus = "booked"
	StatusCancelled BookingStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	return s == StatusBooked || s == StatusCancelled
}

// SortDirection orders the booking list by creation time.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

func (d SortDirection) Valid() bool {
	return d == SortAsc || d == SortDesc
}

// DateLayout is the wire format of booking and availability dates.
const DateLayout = "2006-01-02"

// BookingDetails is the request body for POST /facilities/bookings.
type BookingDetails struct {
	FacilityID  int64  `json:"facilityId"`
	BookingDate string `json:"bookingDate"`
	StartHour   int    `json:"startHour"`
	Notes       string `json:"notes"`
}

// EndHour returns the exclusive end hour of a single-slot booking.
func (d BookingDetails) EndHour() int {
	return d.StartHour + 1
}

// Validate checks the fields the server would reject anyway.
func (d BookingDetails) Validate() error {
	if d.FacilityID <= 0 {
		return fmt.Errorf("facility id must be positive")
	}
	if _, err := time.Parse(DateLayout, d.BookingDate); err != nil {
		return fmt.Errorf("invalid booking date %q; expected YYYY-MM-DD", d.BookingDate)
	}
	if d.StartHour < 0 || d.StartHour > 23 {
		return fmt.Errorf("start hour %d out of range", d.StartHour)
	}
	return nil
}

// BookingRecord is a booking as returned by the server.
type BookingRecord struct {
	ID          int64         `json:"id"`
	FacilityID  int64         `json:"facilityId"`
	BookingDate string        `json:"bookingDate"`
	StartHour   int           `json:"startHour"`
	EndHour     int           `json:"endHour"`
	Status      BookingStatus `json:"status"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// IsCancelled reports whether the booking was cancelled.
func (b *BookingRecord) IsCancelled() bool {
	return b.Status == StatusCancelled
}

// Duration returns the booked interval length.
func (b *BookingRecord) Duration() time.Duration {
	if b.EndHour <= b.StartHour {
		return 0
	}
	return time.Duration(b.EndHour-b.StartHour) * time.Hour
}

// StartTime returns the booking start as a UTC timestamp.
func (b *BookingRecord) StartTime() (time.Time, error) {
	day, err := time.Parse(DateLayout, b.BookingDate)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(b.StartHour) * time.Hour), nil
}

// BookingPage is one page of GET /facilities/bookings/my.
type BookingPage struct {
	Bookings []BookingRecord `json:"bookings"`
	HasMore  bool            `json:"hasMore"`
}

// BookingQuery holds the list parameters of GET /facilities/bookings/my.
type BookingQuery struct {
	Page          int
	PageSize      int
	Status        BookingStatus // empty means any
	SortBy        string
	SortDirection SortDirection
}
