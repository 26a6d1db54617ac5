// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package rule

import (
	"time"
)

// dateLayouts are tried in order when parsing a date string; this is the
// "lenient ISO-8601 extension" spec.md §4.6 calls for — a handful of common
// truncations of full RFC 3339, not a general natural-language parser.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// parseDate converts a resolved value into a UTC time per spec.md §4.6:
// a number is milliseconds since epoch, a string is parsed leniently, any
// other shape (including an already-absent value) fails to parse.
func parseDate(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), true
	case float64:
		return time.UnixMilli(int64(x)).UTC(), true
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, x); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// dateDiff computes the signed difference from `from` to `to` in unit,
// per spec.md §4.6's exact formulas.
func dateDiff(from, to time.Time, unit DiffUnit) int {
	switch unit {
	case UnitDays:
		return diffDays(from, to)
	case UnitWeeks:
		return floorDiv(int64(diffDays(from, to)), 7)
	case UnitMonths:
		return diffMonths(from, to)
	case UnitYears:
		return to.Year() - from.Year()
	default:
		return 0
	}
}

func diffDays(from, to time.Time) int {
	const msPerDay = 86_400_000
	deltaMs := to.UnixMilli() - from.UnixMilli()
	return floorDiv(deltaMs, msPerDay)
}

func diffMonths(from, to time.Time) int {
	return (to.Year()-from.Year())*12 + (int(to.Month()) - int(from.Month()))
}

// floorDiv is integer division that rounds toward negative infinity,
// matching spec.md §4.6's `floor((to − from) / 86_400_000)` for negative
// deltas (e.g. $diff from > to).
func floorDiv(a, b int64) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return int(q)
}

// nthWeekdayAfter finds the nth occurrence of dayOfWeek strictly after
// from, where nth=1 is the first such occurrence — spec.md §4.6 and §9's
// adopted "strictly after" resolution of the nthDayAfter open question.
func nthWeekdayAfter(from time.Time, dayOfWeek, nth int) time.Time {
	cur := from
	count := 0
	for {
		cur = cur.AddDate(0, 0, 1)
		if int(cur.Weekday()) == dayOfWeek {
			count++
			if count == nth {
				return cur
			}
		}
	}
}

// isoDate renders t as yyyy-mm-dd (spec.md §4.6).
func isoDate(t time.Time) string {
	return t.Format("2006-01-02")
}
