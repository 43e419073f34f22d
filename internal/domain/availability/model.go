package availability

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeOfDay is a clock time expressed as minutes since midnight. It
// serializes as "HH:MM".
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM" in 24-hour notation.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return NewTimeOfDay(hour, minute), nil
}

// ClockOf extracts the time of day from a timestamp.
func ClockOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeWindow is a half-open [Start, End) stretch of a day during which
// a provider accepts appointments.
type TimeWindow struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Contains reports whether a slot starting at start and running for
// durationMinutes lies fully inside the window. A slot that would run
// past midnight never fits.
func (w TimeWindow) Contains(start TimeOfDay, durationMinutes int) bool {
	end := int(start) + durationMinutes
	return start >= w.Start && end <= int(w.End)
}

// Covers reports whether any window fully contains the slot. Windows
// are not merged: a slot spanning two adjacent windows is not covered.
func Covers(windows []TimeWindow, start TimeOfDay, durationMinutes int) bool {
	for _, w := range windows {
		if w.Contains(start, durationMinutes) {
			return true
		}
	}
	return false
}

// Availability is one bookable window in a provider's calendar, either
// weekly recurring (DayOfWeek set) or for a single date (SpecificDate
// set). The two forms are mutually exclusive.
type Availability struct {
	ID           uuid.UUID     `db:"id" json:"id"`
	ProviderID   uuid.UUID     `db:"provider_id" json:"provider_id"`
	Recurring    bool          `db:"recurring" json:"recurring"`
	DayOfWeek    *time.Weekday `db:"day_of_week" json:"day_of_week,omitempty"`
	SpecificDate *time.Time    `db:"specific_date" json:"specific_date,omitempty"`
	StartTime    TimeOfDay     `db:"start_time" json:"start_time"`
	EndTime      TimeOfDay     `db:"end_time" json:"end_time"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// Validate enforces the recurring/specific-date exclusivity and the
// window ordering invariant.
func (a *Availability) Validate() error {
	if a.StartTime >= a.EndTime {
		return fmt.Errorf("start time must be before end time")
	}
	if a.Recurring {
		if a.DayOfWeek == nil {
			return fmt.Errorf("day_of_week is required for recurring availability")
		}
		if *a.DayOfWeek < time.Sunday || *a.DayOfWeek > time.Saturday {
			return fmt.Errorf("day_of_week must be between 0 (Sunday) and 6 (Saturday)")
		}
		if a.SpecificDate != nil {
			return fmt.Errorf("specific_date cannot be set on recurring availability")
		}
	} else {
		if a.SpecificDate == nil {
			return fmt.Errorf("specific_date is required for non-recurring availability")
		}
		if a.DayOfWeek != nil {
			return fmt.Errorf("day_of_week cannot be set on non-recurring availability")
		}
	}
	return nil
}

// AppliesTo reports whether the availability is in effect on the given
// calendar date.
func (a *Availability) AppliesTo(date time.Time) bool {
	if a.Recurring {
		return a.DayOfWeek != nil && date.Weekday() == *a.DayOfWeek
	}
	if a.SpecificDate == nil {
		return false
	}
	y1, m1, d1 := a.SpecificDate.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Window returns the time window this availability defines.
func (a *Availability) Window() TimeWindow {
	return TimeWindow{Start: a.StartTime, End: a.EndTime}
}
