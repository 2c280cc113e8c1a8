package nespreso

import (
	"fmt"
	"iter"
	"math"
	"time"
)

// dateLayout is the wire format for calendar dates.
const dateLayout = "2006-01-02"

// GenerateDateRange returns the calendar days from start to end, both
// inclusive, as a lazy, restartable sequence of YYYY-MM-DD strings in
// ascending order. Invalid dates and reversed bounds are reported before
// the first element is produced.
func GenerateDateRange(start, end string) (iter.Seq[string], error) {
	from, err := time.Parse(dateLayout, start)
	if err != nil {
		return nil, ErrInvalidDate.WithErr(err)
	}
	to, err := time.Parse(dateLayout, end)
	if err != nil {
		return nil, ErrInvalidDate.WithErr(err)
	}
	if to.Before(from) {
		return nil, ErrInvalidDateRange.WithErr(fmt.Errorf("%s precedes %s", end, start))
	}
	return func(yield func(string) bool) {
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			if !yield(d.Format(dateLayout)) {
				return
			}
		}
	}, nil
}

// DateStrings collects GenerateDateRange into a slice.
func DateStrings(start, end string) ([]string, error) {
	seq, err := GenerateDateRange(start, end)
	if err != nil {
		return nil, err
	}
	var out []string
	for d := range seq {
		out = append(out, d)
	}
	return out, nil
}

// matlabEpoch is the MATLAB datenum of 0001-01-01: day 1 is 0000-01-01 and
// MATLAB's proleptic year zero is a leap year.
const matlabEpoch = 367

// DatenumToDate converts a MATLAB datenum to a YYYY-MM-DD string. The
// fractional part (time of day) is ignored.
func DatenumToDate(datenum float64) string {
	days := int(math.Floor(datenum)) - matlabEpoch
	base := time.Date(1, time.January, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, days).Format(dateLayout)
}

// DatesFromDatenums converts MATLAB datenums to YYYY-MM-DD strings.
func DatesFromDatenums(datenums []float64) []string {
	out := make([]string, len(datenums))
	for i, d := range datenums {
		out[i] = DatenumToDate(d)
	}
	return out
}

// DatesFromTimes formats times as YYYY-MM-DD strings.
func DatesFromTimes(times []time.Time) []string {
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = t.Format(dateLayout)
	}
	return out
}
