package models

// TimeSlot is one bookable hour of a facility's day.
type TimeSlot struct {
	Hour            int    `json:"hour"`
	StartTime       string `json:"startTime"`
	EndTime         string `json:"endTime"`
	Available       bool   `json:"available"`
	CurrentBookings int    `json:"currentBookings"`
	MaxCapacity     int    `json:"maxCapacity"`
}

// HasCapacity mirrors the server rule available == currentBookings < maxCapacity.
func (s TimeSlot) HasCapacity() bool {
	return s.CurrentBookings < s.MaxCapacity
}

// Valid checks the slot invariants.
func (s TimeSlot) Valid() bool {
	return s.Hour >= 0 && s.Hour <= 23 && s.CurrentBookings <= s.MaxCapacity
}

// AvailabilityDay is the slot grid of one facility for one date.
type AvailabilityDay struct {
	Date        string     `json:"date"`
	DayName     string     `json:"dayName"`
	FullyBooked bool       `json:"fullyBooked"`
	TimeSlots   []TimeSlot `json:"timeSlots"`
}

// Slot returns the slot starting at hour.
func (d *AvailabilityDay) Slot(hour int) (TimeSlot, bool) {
	if d == nil {
		return TimeSlot{}, false
	}
	for _, s := range d.TimeSlots {
		if s.Hour == hour {
			return s, true
		}
	}
	return TimeSlot{}, false
}

// AvailableSlots returns the slots that can still be booked.
func (d *AvailabilityDay) AvailableSlots() []TimeSlot {
	if d == nil {
		return nil
	}
	var out []TimeSlot
	for _, s := range d.TimeSlots {
		if s.Available {
			out = append(out, s)
		}
	}
	return out
}

// Clone returns a deep copy so callers cannot mutate held state.
func (d *AvailabilityDay) Clone() *AvailabilityDay {
	if d == nil {
		return nil
	}
	cp := *d
	cp.TimeSlots = append([]TimeSlot(nil), d.TimeSlots...)
	return &cp
}
