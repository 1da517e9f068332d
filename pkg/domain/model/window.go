package model

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

// TimeWindow bounds the logical dates of DAG runs included in a report.
// Both ends are inclusive.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

func NewTimeWindow(start, end time.Time) (TimeWindow, error) {
	if start.After(end) {
		return TimeWindow{}, goerr.New("time window start is after end",
			goerr.V("start", start),
			goerr.V("end", end),
		)
	}
	return TimeWindow{Start: start.UTC(), End: end.UTC()}, nil
}

// LastWindow returns the window of length d ending at now.
func LastWindow(now time.Time, d time.Duration) (TimeWindow, error) {
	if d < 0 {
		return TimeWindow{}, goerr.New("time window length cannot be negative", goerr.V("length", d.String()))
	}
	return NewTimeWindow(now.Add(-d), now)
}

func (w TimeWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

func (w TimeWindow) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

func (w TimeWindow) String() string {
	return w.Start.Format(time.RFC3339) + " - " + w.End.Format(time.RFC3339)
}

var namedPeriods = map[string]time.Duration{
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"6h":  6 * time.Hour,
	"12h": 12 * time.Hour,
	"1d":  24 * time.Hour,
	"2d":  2 * 24 * time.Hour,
	"7d":  7 * 24 * time.Hour,
	"14d": 14 * 24 * time.Hour,
	"1mo": 30 * 24 * time.Hour,
}

var (
	shortPeriodPattern = regexp.MustCompile(`^(\d+)\s*(m|h|d|w|mo)$`)
	lastPeriodPattern  = regexp.MustCompile(`^last\s+(\d+)\s+(minute|hour|day|week|month)s?$`)
)

var periodUnits = map[string]time.Duration{
	"m":      time.Minute,
	"minute": time.Minute,
	"h":      time.Hour,
	"hour":   time.Hour,
	"d":      24 * time.Hour,
	"day":    24 * time.Hour,
	"w":      7 * 24 * time.Hour,
	"week":   7 * 24 * time.Hour,
	"mo":     30 * 24 * time.Hour,
	"month":  30 * 24 * time.Hour,
}

// ParseTimePeriod parses a relative period such as "1h", "7d", "1mo" or
// "last 7 days". A month is 30 days.
func ParseTimePeriod(s string) (time.Duration, error) {
	label := strings.ToLower(strings.TrimSpace(s))
	if d, ok := namedPeriods[label]; ok {
		return d, nil
	}

	var count, unit string
	if m := shortPeriodPattern.FindStringSubmatch(label); m != nil {
		count, unit = m[1], m[2]
	} else if m := lastPeriodPattern.FindStringSubmatch(label); m != nil {
		count, unit = m[1], m[2]
	} else {
		return 0, goerr.New("invalid time period", goerr.V("period", s))
	}

	n, err := strconv.Atoi(count)
	if err != nil || n <= 0 {
		return 0, goerr.New("time period must be positive", goerr.V("period", s))
	}
	step := periodUnits[unit]
	if int64(n) > math.MaxInt64/int64(step) {
		return 0, goerr.New("time period is too long", goerr.V("period", s))
	}
	return time.Duration(n) * step, nil
}
