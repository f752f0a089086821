// Package trend aggregates diet logs into one summary row per day.
package trend

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-ports/dietvault/internal/models"
)

// ErrInvalidRange is returned for malformed or inverted trend bounds.
var ErrInvalidRange = errors.New("invalid range")

// DefaultWindowDays is the trend window used when none is configured.
const DefaultWindowDays = 7

// Range is an inclusive day range in YYYY-MM-DD form.
type Range struct {
	From string
	To   string
}

// Contains reports whether day falls inside r.
func (r Range) Contains(day string) bool {
	return day >= r.From && day <= r.To
}

// Aggregate groups logs by day. Intake is summed and deficit is the minimum.
// Weight and mode come from the day's calibration row when present, else from
// the last row of the day. Rows are expected oldest first; output is sorted
// by day.
func Aggregate(logs []models.DietLogEntry) []models.DailySummary {
	type acc struct {
		sum        models.DailySummary
		calibrated bool
	}
	byDay := make(map[string]*acc)
	for i := range logs {
		l := &logs[i]
		a, ok := byDay[l.Day]
		if !ok {
			a = &acc{sum: models.DailySummary{Day: l.Day, Deficit: l.Deficit}}
			byDay[l.Day] = a
		}
		a.sum.Intake += l.Intake
		if l.Deficit < a.sum.Deficit {
			a.sum.Deficit = l.Deficit
		}
		switch {
		case l.Kind == models.KindCalibration:
			a.calibrated = true
			a.sum.Weight, a.sum.Mode = l.Weight, l.Mode
		case !a.calibrated:
			a.sum.Weight, a.sum.Mode = l.Weight, l.Mode
		}
	}

	out := make([]models.DailySummary, 0, len(byDay))
	for _, a := range byDay {
		out = append(out, a.sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}

// DefaultRange returns the window of windowDays ending at the latest day,
// clamped to the earliest day. ok is false when days is empty.
func DefaultRange(days []models.DailySummary, windowDays int) (Range, bool) {
	if len(days) == 0 {
		return Range{}, false
	}
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	first, last := days[0].Day, days[len(days)-1].Day
	to, err := time.Parse(models.DayLayout, last)
	if err != nil {
		return Range{From: first, To: last}, true
	}
	from := models.DayString(to.AddDate(0, 0, -(windowDays - 1)))
	if from < first {
		from = first
	}
	return Range{From: from, To: last}, true
}

// Filter returns the days inside r, inclusive on both ends.
func Filter(days []models.DailySummary, r Range) []models.DailySummary {
	var out []models.DailySummary
	for _, d := range days {
		if r.Contains(d.Day) {
			out = append(out, d)
		}
	}
	return out
}

// ResolveRange picks the range to show. Explicit from/to override the
// default window; a missing bound falls back to the default's.
func ResolveRange(days []models.DailySummary, windowDays int, from, to string) (Range, error) {
	r, ok := DefaultRange(days, windowDays)
	for _, v := range []string{from, to} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(models.DayLayout, v); err != nil {
			return Range{}, fmt.Errorf("%w: date %q, want YYYY-MM-DD", ErrInvalidRange, v)
		}
	}
	if from != "" {
		r.From = from
	}
	if to != "" {
		r.To = to
	}
	if !ok && (from == "" || to == "") {
		return r, nil
	}
	if r.From > r.To {
		return Range{}, fmt.Errorf("%w: %s is after %s", ErrInvalidRange, r.From, r.To)
	}
	return r, nil
}
