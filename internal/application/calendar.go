package application

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/at"
	"github.com/rickar/cal/v2/be"
	"github.com/rickar/cal/v2/ca"
	"github.com/rickar/cal/v2/de"
	"github.com/rickar/cal/v2/dk"
	"github.com/rickar/cal/v2/es"
	"github.com/rickar/cal/v2/fi"
	"github.com/rickar/cal/v2/fr"
	"github.com/rickar/cal/v2/gb"
	"github.com/rickar/cal/v2/ie"
	"github.com/rickar/cal/v2/it"
	"github.com/rickar/cal/v2/nl"
	"github.com/rickar/cal/v2/no"
	"github.com/rickar/cal/v2/se"
	"github.com/rickar/cal/v2/us"
)

// holidaySets maps the supported region codes (ISO 3166-1 alpha-2) to their national
// holiday lists. Regional and state holidays are not included.
var holidaySets = map[string][]*cal.Holiday{
	"AT": at.Holidays,
	"BE": be.Holidays,
	"CA": ca.Holidays,
	"DE": de.Holidays,
	"DK": dk.Holidays,
	"ES": es.Holidays,
	"FI": fi.Holidays,
	"FR": fr.Holidays,
	"GB": gb.Holidays,
	"IE": ie.Holidays,
	"IT": it.Holidays,
	"NL": nl.Holidays,
	"NO": no.Holidays,
	"SE": se.Holidays,
	"US": us.Holidays,
}

// SupportedRegions lists the accepted holiday region codes in sorted order. The empty
// code means weekends only.
func SupportedRegions() []string {
	return slices.Sorted(maps.Keys(holidaySets))
}

// BusinessCalendar decides which days count toward staleness and measures business time
// between two instants.
type BusinessCalendar struct {
	cal   *cal.BusinessCalendar
	extra map[string]struct{}
	loc   *time.Location
}

// NewBusinessCalendar builds a calendar for region (case-insensitive, "" for none), with
// extra holiday dates, evaluated in loc. A nil loc means UTC.
func NewBusinessCalendar(region string, extra []time.Time, loc *time.Location) (*BusinessCalendar, error) {
	if loc == nil {
		loc = time.UTC
	}

	bc := cal.NewBusinessCalendar()
	region = strings.ToUpper(strings.TrimSpace(region))
	if region != "" {
		holidays, ok := holidaySets[region]
		if !ok {
			return nil, fmt.Errorf("unsupported holiday region %q (supported: %s)",
				region, strings.Join(SupportedRegions(), ", "))
		}
		bc.AddHoliday(holidays...)
	}

	extraDays := make(map[string]struct{}, len(extra))
	for _, d := range extra {
		extraDays[d.Format(sinceLayout)] = struct{}{}
	}

	return &BusinessCalendar{cal: bc, extra: extraDays, loc: loc}, nil
}

// IsBusinessDay reports whether the calendar day containing t (in the calendar's zone) is
// a working day.
func (c *BusinessCalendar) IsBusinessDay(t time.Time) bool {
	local := t.In(c.loc)
	if _, ok := c.extra[local.Format(sinceLayout)]; ok {
		return false
	}
	noon := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, c.loc)
	return c.cal.IsWorkday(noon)
}

// BusinessDaysBetween returns the business time in [from, to] measured in days. Each
// business day contributes the fraction of its length covered by the interval, so an
// interval starting on a weekend or holiday begins counting at the next business day.
// The result is zero when to is not after from.
func (c *BusinessCalendar) BusinessDaysBetween(from, to time.Time) float64 {
	if !to.After(from) {
		return 0
	}

	from = from.In(c.loc)
	to = to.In(c.loc)

	var days float64
	dayStart := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, c.loc)
	for dayStart.Before(to) {
		dayEnd := time.Date(dayStart.Year(), dayStart.Month(), dayStart.Day()+1, 0, 0, 0, 0, c.loc)

		if c.IsBusinessDay(dayStart) {
			start := later(from, dayStart)
			end := earlier(to, dayEnd)
			if end.After(start) {
				days += float64(end.Sub(start)) / float64(dayEnd.Sub(dayStart))
			}
		}

		dayStart = dayEnd
	}

	return days
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
