package schedule

import (
	"fmt"
	"time"
)

// PolicyKind enumerates the date-mapping policies. The set is closed:
// adding a policy means extending this enum and the switch in Match.
type PolicyKind int

const (
	ExactDate PolicyKind = iota
	ExactRange
	NearestDate
	NearestDateTimeRange
)

func (k PolicyKind) String() string {
	switch k {
	case ExactDate:
		return "exact_date"
	case ExactRange:
		return "exact_range"
	case NearestDate:
		return "nearest_date"
	case NearestDateTimeRange:
		return "nearest_date_time_range"
	}
	return "unknown"
}

// ParsePolicyKind maps a policy name from configuration to its kind.
func ParsePolicyKind(s string) (PolicyKind, error) {
	switch s {
	case "exact_date":
		return ExactDate, nil
	case "exact_range":
		return ExactRange, nil
	case "nearest_date":
		return NearestDate, nil
	case "nearest_date_time_range":
		return NearestDateTimeRange, nil
	}
	return 0, fmt.Errorf("unknown date mapping policy %q", s)
}

// Policy selects how a service calendar is matched against a target
// window. It is chosen once per batch run and applied independently to
// every calendar.
type Policy struct {
	Kind PolicyKind
	// DateTolerance bounds the outward search, in days, for the nearest
	// policies.
	DateTolerance int
	// MatchWeekday restricts nearest candidates to dates sharing the
	// target's weekday.
	MatchWeekday bool
}

// Window is the target date window, with an optional time-of-day window.
type Window struct {
	Start time.Time
	End   time.Time
	Times *TimeRange
}

func (w Window) Validate() error {
	if dateOnly(w.End).Before(dateOnly(w.Start)) {
		return fmt.Errorf("end date %s before start date %s",
			w.End.Format("2006-01-02"), w.Start.Format("2006-01-02"))
	}
	if w.Times != nil && w.Times.End <= w.Times.Start {
		return fmt.Errorf("time window end %s not after start %s", w.Times.End, w.Times.Start)
	}
	return nil
}

// MatchResult is the outcome of applying a policy to one calendar. Offset
// is the absolute day distance from the target and serves as the quality
// score when several calendars could satisfy the same window.
type MatchResult struct {
	Matched bool
	Date    time.Time
	Times   *TimeRange
	Offset  int
}

// NoMatch is the zero result: the calendar cannot satisfy the window.
var NoMatch = MatchResult{}

// Match resolves whether and how the calendar satisfies the target
// window under this policy. Structurally invalid windows are errors, not
// non-matches.
func (p Policy) Match(c Calendar, w Window) (MatchResult, error) {
	if err := w.Validate(); err != nil {
		return NoMatch, err
	}
	switch p.Kind {
	case ExactDate:
		return p.matchExactDate(c, w)
	case ExactRange:
		return p.matchExactRange(c, w)
	case NearestDate:
		return p.matchNearest(c, w, false)
	case NearestDateTimeRange:
		return p.matchNearest(c, w, true)
	}
	return NoMatch, fmt.Errorf("unknown policy kind %d", p.Kind)
}

func (p Policy) matchExactDate(c Calendar, w Window) (MatchResult, error) {
	start := dateOnly(w.Start)
	if !start.Equal(dateOnly(w.End)) {
		return NoMatch, fmt.Errorf("exact_date requires a single-day window, got [%s, %s]",
			w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"))
	}
	if !c.ActiveOn(start) {
		return NoMatch, nil
	}
	return MatchResult{Matched: true, Date: start, Times: w.Times}, nil
}

func (p Policy) matchExactRange(c Calendar, w Window) (MatchResult, error) {
	for d := dateOnly(w.Start); !d.After(dateOnly(w.End)); d = d.AddDate(0, 0, 1) {
		if !c.ActiveOn(d) {
			return NoMatch, nil
		}
	}
	return MatchResult{Matched: true, Date: dateOnly(w.Start), Times: w.Times}, nil
}

// matchNearest searches outward from the target date, probing offset 0,
// then -k before +k for each k up to the tolerance so that ties at equal
// distance resolve to the earlier date. With MatchWeekday only dates
// sharing the target's weekday qualify, still bounded by the tolerance.
func (p Policy) matchNearest(c Calendar, w Window, withTimes bool) (MatchResult, error) {
	target := dateOnly(w.Start)
	for k := 0; k <= p.DateTolerance; k++ {
		for _, sign := range []int{-1, 1} {
			if k == 0 && sign == 1 {
				continue
			}
			candidate := target.AddDate(0, 0, sign*k)
			if p.MatchWeekday && candidate.Weekday() != target.Weekday() {
				continue
			}
			if !c.ActiveOn(candidate) {
				continue
			}
			if withTimes && w.Times != nil && !c.Covers(*w.Times) {
				continue
			}
			return MatchResult{Matched: true, Date: candidate, Times: w.Times, Offset: k}, nil
		}
	}
	return NoMatch, nil
}

// Best returns the higher-quality of two results: matched beats
// unmatched, then smaller offset, then the earlier date.
func Best(a, b MatchResult) MatchResult {
	if !b.Matched {
		return a
	}
	if !a.Matched {
		return b
	}
	if b.Offset < a.Offset {
		return b
	}
	if b.Offset == a.Offset && b.Date.Before(a.Date) {
		return b
	}
	return a
}
