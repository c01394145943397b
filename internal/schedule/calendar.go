// Package schedule reconciles transit service calendars against target
// date and time-of-day windows.
package schedule

import (
	"time"

	"github.com/jamespfennell/gtfs"
)

// TimeRange is a [Start, End) time-of-day window measured from midnight.
type TimeRange struct {
	Start time.Duration
	End   time.Duration
}

func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.Start < other.End && other.Start < r.End
}

// Calendar is the active-date calendar for one transit service. It is
// immutable once built from a bundle.
type Calendar struct {
	ServiceID string
	StartDate time.Time
	EndDate   time.Time
	// Weekdays is indexed by time.Weekday (Sunday == 0).
	Weekdays [7]bool
	Added    []time.Time
	Removed  []time.Time
	// Span is the service's time-of-day coverage, derived from the stop
	// times of its trips. A nil span means the whole day.
	Span *TimeRange
}

// FromService converts a parsed GTFS service into a Calendar.
func FromService(s *gtfs.Service) Calendar {
	c := Calendar{
		ServiceID: s.Id,
		StartDate: dateOnly(s.StartDate),
		EndDate:   dateOnly(s.EndDate),
		Added:     make([]time.Time, 0, len(s.AddedDates)),
		Removed:   make([]time.Time, 0, len(s.RemovedDates)),
	}
	c.Weekdays[time.Sunday] = s.Sunday
	c.Weekdays[time.Monday] = s.Monday
	c.Weekdays[time.Tuesday] = s.Tuesday
	c.Weekdays[time.Wednesday] = s.Wednesday
	c.Weekdays[time.Thursday] = s.Thursday
	c.Weekdays[time.Friday] = s.Friday
	c.Weekdays[time.Saturday] = s.Saturday
	for _, d := range s.AddedDates {
		c.Added = append(c.Added, dateOnly(d))
	}
	for _, d := range s.RemovedDates {
		c.Removed = append(c.Removed, dateOnly(d))
	}
	return c
}

// ActiveOn reports whether the service runs on the given calendar date.
// Explicit date exceptions take precedence over the weekday mask.
func (c Calendar) ActiveOn(date time.Time) bool {
	d := dateOnly(date)
	for _, r := range c.Removed {
		if r.Equal(d) {
			return false
		}
	}
	for _, a := range c.Added {
		if a.Equal(d) {
			return true
		}
	}
	if d.Before(c.StartDate) || d.After(c.EndDate) {
		return false
	}
	return c.Weekdays[d.Weekday()]
}

// Covers reports whether the service's time-of-day span overlaps the
// given window. A calendar without time granularity covers everything.
func (c Calendar) Covers(times TimeRange) bool {
	if c.Span == nil {
		return true
	}
	return c.Span.Overlaps(times)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
