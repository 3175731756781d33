// Package interval parses duration literals attached to external events.
//
// Two notations are accepted: the postgres-style interval form
// ("3 days 02:00:00", "02:00:00", "02:00:00.5") and the ISO-8601 day/time
// form ("P3DT2H30M15S"). Year and month components are rejected: event
// durations are exact spans, and days are assumed to be 24 hours.
package interval

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// ErrInvalidFormat reports a literal that cannot be decomposed into
// days/hours/minutes/seconds components.
var ErrInvalidFormat = errors.New("invalid duration format")

const (
	millisPerSecond = int64(1000)
	millisPerMinute = 60 * millisPerSecond
	millisPerHour   = 60 * millisPerMinute
	millisPerDay    = 24 * millisPerHour
)

var (
	// [N day[s]] [HH:MM[:SS[.frac]]] with at least one part present.
	postgresRe = regexp.MustCompile(
		`^(?:(\d+)\s+days?)?\s*(?:(\d+):([0-5]?\d)(?::([0-5]?\d)(\.\d{1,6})?)?)?$`)

	// PnDTnHnMnS, all components optional but the literal must not be bare "P".
	isoRe = regexp.MustCompile(
		`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d{1,6})?)S)?)?$`)
)

// ParseMillis converts a duration literal to integer milliseconds.
// An empty literal yields 0 by policy: durations are optional and an
// absent one means an instantaneous event.
func ParseMillis(literal string) (int64, error) {
	if literal == "" {
		return 0, nil
	}
	if literal[0] == 'P' {
		return parseISO(literal)
	}
	return parsePostgres(literal)
}

func parsePostgres(literal string) (int64, error) {
	m := postgresRe.FindStringSubmatch(literal)
	if m == nil || (m[1] == "" && m[2] == "") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, literal)
	}

	var total int64
	if m[1] != "" {
		days, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, literal)
		}
		total += days * millisPerDay
	}
	if m[2] != "" {
		hours, _ := strconv.ParseInt(m[2], 10, 64)
		minutes, _ := strconv.ParseInt(m[3], 10, 64)
		total += hours*millisPerHour + minutes*millisPerMinute
		if m[4] != "" {
			seconds, _ := strconv.ParseInt(m[4], 10, 64)
			total += seconds * millisPerSecond
		}
		if m[5] != "" {
			frac, _ := strconv.ParseFloat(m[5], 64)
			total += int64(math.Round(frac * float64(millisPerSecond)))
		}
	}
	return total, nil
}

func parseISO(literal string) (int64, error) {
	m := isoRe.FindStringSubmatch(literal)
	if m == nil || (m[1] == "" && m[2] == "" && m[3] == "" && m[4] == "") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidFormat, literal)
	}

	var total int64
	if m[1] != "" {
		days, _ := strconv.ParseInt(m[1], 10, 64)
		total += days * millisPerDay
	}
	if m[2] != "" {
		hours, _ := strconv.ParseInt(m[2], 10, 64)
		total += hours * millisPerHour
	}
	if m[3] != "" {
		minutes, _ := strconv.ParseInt(m[3], 10, 64)
		total += minutes * millisPerMinute
	}
	if m[4] != "" {
		seconds, _ := strconv.ParseFloat(m[4], 64)
		total += int64(math.Round(seconds * float64(millisPerSecond)))
	}
	return total, nil
}
