package reporting

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PeriodType is the bucketing granularity of a report series.
type PeriodType string

const (
	PeriodWeekly    PeriodType = "WEEKLY"
	PeriodMonthly   PeriodType = "MONTHLY"
	PeriodQuarterly PeriodType = "QUARTERLY"
	PeriodYearly    PeriodType = "YEARLY"
)

const dateLayout = "2006-01-02"

// ParsePeriodType normalises user input into a PeriodType.
func ParsePeriodType(raw string) (PeriodType, error) {
	pt := PeriodType(strings.ToUpper(strings.TrimSpace(raw)))
	if !pt.Valid() {
		return "", invalidf("unknown period type %q", raw)
	}
	return pt, nil
}

// Valid reports whether the type is one of the supported granularities.
func (t PeriodType) Valid() bool {
	switch t {
	case PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

// DateFilter overrides the anchor date. Zero fields are absent.
type DateFilter struct {
	Year    int `json:"year,omitempty"`
	Month   int `json:"month,omitempty"`
	Quarter int `json:"quarter,omitempty"`
}

// IsZero reports whether no override is set.
func (f *DateFilter) IsZero() bool {
	return f == nil || (f.Year == 0 && f.Month == 0 && f.Quarter == 0)
}

func (f *DateFilter) validate() error {
	if f == nil {
		return nil
	}
	if f.Year < 0 || f.Year > 9999 {
		return invalidf("year %d out of range", f.Year)
	}
	if f.Month < 0 || f.Month > 12 {
		return invalidf("month %d out of range", f.Month)
	}
	if f.Quarter < 0 || f.Quarter > 4 {
		return invalidf("quarter %d out of range", f.Quarter)
	}
	return nil
}

// Period is an inclusive calendar date range.
type Period struct {
	Type  PeriodType
	Start time.Time
	End   time.Time
}

// Label renders a compact human identifier for the period.
func (p Period) Label() string {
	switch p.Type {
	case PeriodMonthly:
		return p.Start.Format("2006-01")
	case PeriodQuarterly:
		return fmt.Sprintf("%d-Q%d", p.Start.Year(), (int(p.Start.Month())-1)/3+1)
	case PeriodYearly:
		return p.Start.Format("2006")
	default:
		return p.Start.Format(dateLayout)
	}
}

// Contains reports whether the calendar date of d lies inside the period.
func (p Period) Contains(d time.Time) bool {
	key := dateKey(d)
	return key >= dateKey(p.Start) && key <= dateKey(p.End)
}

// ContainsTime converts an instant into the period's zone before comparing dates.
func (p Period) ContainsTime(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return p.Contains(t.In(p.Start.Location()))
}

// Overlaps reports whether [start, end] intersects the period. A nil end is open-ended.
func (p Period) Overlaps(start time.Time, end *time.Time) bool {
	if dateKey(start) > dateKey(p.End) {
		return false
	}
	return end == nil || dateKey(*end) >= dateKey(p.Start)
}

type periodJSON struct {
	Type      PeriodType `json:"type"`
	Label     string     `json:"label"`
	StartDate string     `json:"startDate"`
	EndDate   string     `json:"endDate"`
}

// MarshalJSON renders plain calendar dates.
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(periodJSON{
		Type:      p.Type,
		Label:     p.Label(),
		StartDate: p.Start.Format(dateLayout),
		EndDate:   p.End.Format(dateLayout),
	})
}

// UnmarshalJSON parses the calendar dates written by MarshalJSON.
func (p *Period) UnmarshalJSON(data []byte) error {
	var raw periodJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	start, err := time.Parse(dateLayout, raw.StartDate)
	if err != nil {
		return err
	}
	end, err := time.Parse(dateLayout, raw.EndDate)
	if err != nil {
		return err
	}
	*p = Period{Type: raw.Type, Start: start, End: end}
	return nil
}

// dateKey maps a date to yyyymmdd so comparisons ignore clock and zone.
func dateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}

// PeriodCalculator produces calendar periods in one fixed time zone.
type PeriodCalculator struct {
	loc *time.Location
	now func() time.Time
}

// NewPeriodCalculator builds a calculator for loc. A nil loc means UTC.
func NewPeriodCalculator(loc *time.Location) *PeriodCalculator {
	if loc == nil {
		loc = time.UTC
	}
	return &PeriodCalculator{loc: loc, now: time.Now}
}

// WithNow overrides the wall clock for testing.
func (c *PeriodCalculator) WithNow(fn func() time.Time) *PeriodCalculator {
	if fn != nil {
		c.now = fn
	}
	return c
}

// Location returns the zone periods are computed in.
func (c *PeriodCalculator) Location() *time.Location { return c.loc }

// Today returns the current calendar date at midnight.
func (c *PeriodCalculator) Today() time.Time {
	n := c.now().In(c.loc)
	return c.date(n.Year(), int(n.Month()), n.Day())
}

func (c *PeriodCalculator) date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, c.loc)
}

// ComputePeriods returns count periods of periodType, most recent first.
// WEEKLY windows are Sunday-aligned and always derive from the current date;
// the filter only applies to the calendar granularities.
func (c *PeriodCalculator) ComputePeriods(periodType PeriodType, count int, filter *DateFilter) ([]Period, error) {
	if !periodType.Valid() {
		return nil, invalidf("unknown period type %q", periodType)
	}
	if err := filter.validate(); err != nil {
		return nil, err
	}
	if count <= 0 {
		return []Period{}, nil
	}

	periods := make([]Period, 0, count)
	if periodType == PeriodWeekly {
		today := c.Today()
		weekStart := today.AddDate(0, 0, -int(today.Weekday()))
		for i := 0; i < count; i++ {
			start := weekStart.AddDate(0, 0, -7*i)
			periods = append(periods, Period{Type: periodType, Start: start, End: start.AddDate(0, 0, 6)})
		}
		return periods, nil
	}

	anchor := c.anchor(filter)
	year, month := anchor.Year(), int(anchor.Month())-1
	switch periodType {
	case PeriodMonthly:
		for i := 0; i < count; i++ {
			y, m := rollMonth(year, month-i)
			periods = append(periods, Period{
				Type:  periodType,
				Start: c.date(y, m+1, 1),
				End:   c.date(y, m+2, 0),
			})
		}
	case PeriodQuarterly:
		quarterStart := (month / 3) * 3
		for i := 0; i < count; i++ {
			y, m := rollMonth(year, quarterStart-3*i)
			periods = append(periods, Period{
				Type:  periodType,
				Start: c.date(y, m+1, 1),
				End:   c.date(y, m+4, 0),
			})
		}
	case PeriodYearly:
		for i := 0; i < count; i++ {
			periods = append(periods, Period{
				Type:  periodType,
				Start: c.date(year-i, 1, 1),
				End:   c.date(year-i, 12, 31),
			})
		}
	}
	return periods, nil
}

// anchor resolves the filter: month wins over quarter, quarter over a bare year.
// A bare past or future year anchors on its last day so a series covers that year.
func (c *PeriodCalculator) anchor(filter *DateFilter) time.Time {
	today := c.Today()
	if filter.IsZero() {
		return today
	}
	year := filter.Year
	if year == 0 {
		year = today.Year()
	}
	switch {
	case filter.Month != 0:
		return c.date(year, filter.Month, 1)
	case filter.Quarter != 0:
		return c.date(year, (filter.Quarter-1)*3+1, 1)
	case year == today.Year():
		return today
	default:
		return c.date(year, 12, 31)
	}
}

// rollMonth normalises a zero-based month index that may be negative.
func rollMonth(year, month int) (int, int) {
	y := year + floorDiv(month, 12)
	m := month - floorDiv(month, 12)*12
	return y, m
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
