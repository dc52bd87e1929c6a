package models

import "time"

type FacilityImage struct {
	ID           int64     `json:"id"`
	OriginalName string    `json:"originalName"`
	Filename     string    `json:"filename"`
	FilePath     string    `json:"filePath"`
	MimeType     string    `json:"mimeType"`
	Size         int64     `json:"size"`
	Extension    string    `json:"extension"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Facility struct {
	ID                    int64           `json:"id"`
	Name                  string          `json:"name"`
	Description           string          `json:"description"`
	MaxCapacity           int             `json:"maxCapacity"`
	MaxAdvanceBookingDays int             `json:"maxAdvanceBookingDays"`
	Status                string          `json:"status"`
	CreatedAt             time.Time       `json:"createdAt"`
	UpdatedAt             time.Time       `json:"updatedAt"`
	Images                []FacilityImage `json:"images,omitempty"`
}

// LastBookableDate returns the furthest date that can be booked from now.
func (f *Facility) LastBookableDate(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, f.MaxAdvanceBookingDays)
}
