// Package period turns a reporting period (weekly, monthly, yearly or an
// explicit date range) into an inclusive range of calendar dates.
package period

import (
	"net/url"
	"strings"
	"time"

	"github.com/travelcrm/backend/internal/apperr"
)

const (
	Weekly  = "weekly"
	Monthly = "monthly"
	Yearly  = "yearly"
)

// DateLayout is the wire format for every date (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// Range is an inclusive [Start, End] span of dates, both at 00:00 UTC.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the calendar date of d falls inside r.
func (r Range) Contains(d time.Time) bool {
	day := truncate(d)
	return !day.Before(r.Start) && !day.After(r.End)
}

func (r Range) StartDate() string { return r.Start.Format(DateLayout) }
func (r Range) EndDate() string   { return r.End.Format(DateLayout) }

// ValidName reports whether name is weekly, monthly or yearly.
func ValidName(name string) bool {
	return name == Weekly || name == Monthly || name == Yearly
}

// ParseDate parses a YYYY-MM-DD date into 00:00 UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// Resolve returns the concrete range for a request. When both start and end
// are given they are used verbatim; otherwise the range is derived from name
// relative to now. Weeks run Monday to Sunday.
func Resolve(name string, start, end *time.Time, now time.Time) (Range, error) {
	if start != nil && end != nil {
		r := Range{Start: truncate(*start), End: truncate(*end)}
		if r.End.Before(r.Start) {
			return Range{}, apperr.Validation("ResolvePeriod").
				Add("end_date", "The end date must be a date after or equal to start date.")
		}
		return r, nil
	}

	today := truncate(now)
	switch name {
	case Weekly:
		offset := (int(today.Weekday()) + 6) % 7
		s := today.AddDate(0, 0, -offset)
		return Range{Start: s, End: s.AddDate(0, 0, 6)}, nil
	case Monthly:
		s := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Range{Start: s, End: s.AddDate(0, 1, -1)}, nil
	case Yearly:
		s := time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return Range{Start: s, End: time.Date(today.Year(), time.December, 31, 0, 0, 0, 0, time.UTC)}, nil
	}
	return Range{}, apperr.Validation("ResolvePeriod").
		Add("period", "The selected period is invalid.")
}

// Query is the period selection parsed from a request's query string.
type Query struct {
	Name  string
	Start *time.Time
	End   *time.Time
}

// Empty reports whether no period and no complete explicit range was given.
func (q Query) Empty() bool {
	return q.Name == "" && (q.Start == nil || q.End == nil)
}

// FromValues parses period, start_date and end_date. With required set, a
// missing period is a validation error (as for the financial summaries).
func FromValues(v url.Values, required bool) (Query, error) {
	verr := apperr.Validation("ParsePeriod")
	q := Query{Name: strings.TrimSpace(v.Get("period"))}

	switch {
	case q.Name == "" && required:
		verr.Add("period", "The period field is required.")
	case q.Name != "" && !ValidName(q.Name):
		verr.Add("period", "The selected period is invalid.")
	}
	if s := v.Get("start_date"); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			verr.Add("start_date", "The start date is not a valid date.")
		} else {
			q.Start = &d
		}
	}
	if s := v.Get("end_date"); s != "" {
		d, err := ParseDate(s)
		if err != nil {
			verr.Add("end_date", "The end date is not a valid date.")
		} else {
			q.End = &d
		}
	}
	// Without a period, a lone date cannot select a window.
	hasStart, hasEnd := v.Get("start_date") != "", v.Get("end_date") != ""
	if q.Name == "" && hasStart != hasEnd {
		if hasStart {
			verr.Add("end_date", "The end date field is required when start date is present.")
		} else {
			verr.Add("start_date", "The start date field is required when end date is present.")
		}
	}
	if q.Start != nil && q.End != nil && q.End.Before(*q.Start) {
		verr.Add("end_date", "The end date must be a date after or equal to start date.")
	}
	if err := verr.OrNil(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Optional resolves q when it selects anything and returns nil otherwise.
func (q Query) Optional(now time.Time) (*Range, error) {
	if q.Empty() {
		return nil, nil
	}
	r, err := Resolve(q.Name, q.Start, q.End, now)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func truncate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
