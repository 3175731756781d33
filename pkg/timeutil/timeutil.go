// Package timeutil normalizes the two timestamp encodings accepted on
// external source documents: calendar form (YYYY-MM-DDThh:mm:ss) and
// day-of-year form (YYYY-DDDThh:mm:ss), each with an optional fractional
// second and an optional UTC suffix ("Z" or "+00:00").
//
// Comparisons must never be made on the raw strings. Convert both sides
// with EpochMillis, which funnels every encoding through the same
// calendar normalization first.
package timeutil

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparsable reports a string that matches neither timestamp grammar.
var ErrUnparsable = errors.New("unparsable timestamp")

// DefaultFractionDigits bounds the fractional-second group when no
// explicit limit is given.
const DefaultFractionDigits = 6

// Parsed holds the numeric components of a timestamp. Exactly one of
// (Month, Day) or DOY is populated, reported by IsDOY.
type Parsed struct {
	Year   int
	Month  int
	Day    int
	DOY    int
	Hour   int
	Minute int
	Second int
	// Millis is the fractional-second part converted to milliseconds.
	Millis float64

	isDOY bool
}

// IsDOY reports whether the input used the day-of-year encoding.
func (p *Parsed) IsDOY() bool { return p.isDOY }

const grammar = `^(?P<year>\d{4})-(?:(?P<month>(?:0?[0-9])|(?:1[0-2]))-(?P<day>(?:[0-2]?[0-9])|(?:3[0-1]))|(?P<doy>\d{1,3}))` +
	`(?:T(?P<hour>[0-9]|[0-2][0-9])(?::(?P<min>[0-9]|[0-5][0-9]))?(?::(?P<sec>[0-9]|[0-5][0-9])(?P<frac>\.\d{1,%d})?)?)?$`

var defaultGrammar = regexp.MustCompile(fmt.Sprintf(grammar, DefaultFractionDigits))

// Parse splits a timestamp into components, accepting at most
// maxFractionDigits fractional-second digits. A trailing UTC suffix is
// tolerated and discarded. Omitted time-of-day components default to zero.
func Parse(s string, maxFractionDigits int) (*Parsed, error) {
	re := defaultGrammar
	if maxFractionDigits > 0 && maxFractionDigits != DefaultFractionDigits {
		var err error
		re, err = regexp.Compile(fmt.Sprintf(grammar, maxFractionDigits))
		if err != nil {
			return nil, err
		}
	}

	m := re.FindStringSubmatch(stripUTCSuffix(s))
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnparsable, s)
	}

	group := func(name string) string {
		return m[re.SubexpIndex(name)]
	}
	atoi := func(v string) int {
		n, _ := strconv.Atoi(v)
		return n
	}

	p := &Parsed{
		Year:   atoi(group("year")),
		Hour:   atoi(group("hour")),
		Minute: atoi(group("min")),
		Second: atoi(group("sec")),
	}
	if frac := group("frac"); frac != "" {
		f, _ := strconv.ParseFloat(frac, 64)
		p.Millis = math.Round(f*1000*1e6) / 1e6
	}
	if doy := group("doy"); doy != "" {
		p.isDOY = true
		p.DOY = atoi(doy)
		return p, nil
	}
	p.Month = atoi(group("month"))
	p.Day = atoi(group("day"))
	return p, nil
}

func stripUTCSuffix(s string) string {
	switch {
	case strings.HasSuffix(s, "Z"):
		return strings.TrimSuffix(s, "Z")
	case strings.HasSuffix(s, "+00:00"):
		return strings.TrimSuffix(s, "+00:00")
	default:
		return s
	}
}

// ToCalendar converts a timestamp of either encoding to calendar form
// with a trailing "Z". Day-of-year inputs are resolved through the
// Gregorian calendar of the embedded year; calendar inputs pass through
// with only the suffix canonicalized.
func ToCalendar(s string) (string, error) {
	p, err := Parse(s, DefaultFractionDigits)
	if err != nil {
		return "", err
	}

	year, month, day := p.Year, p.Month, p.Day
	if p.IsDOY() {
		// time.Date normalizes out-of-range days, so January p.DOY
		// resolves ordinal dates including leap years.
		d := time.Date(p.Year, time.January, p.DOY, 0, 0, 0, 0, time.UTC)
		year, month, day = d.Year(), int(d.Month()), d.Day()
	}

	return fmt.Sprintf("%04d-%02d-%02dT%s%sZ",
		year, month, day, clock(p), fraction(p.Millis)), nil
}

// ToDayOfYear converts a calendar timestamp to day-of-year form.
// Day-of-year inputs are returned unchanged.
func ToDayOfYear(s string) (string, error) {
	p, err := Parse(s, DefaultFractionDigits)
	if err != nil {
		return "", err
	}
	if p.IsDOY() {
		return s, nil
	}

	d := time.Date(p.Year, time.Month(p.Month), p.Day, 0, 0, 0, 0, time.UTC)
	return fmt.Sprintf("%04d-%03dT%s%sZ",
		p.Year, d.YearDay(), clock(p), fraction(p.Millis)), nil
}

// SwitchTimezoneSuffix swaps a trailing "Z" for "+00:00" and vice versa.
// Strings with any other ending are returned unchanged; callers that
// require a UTC suffix must check for one beforehand.
func SwitchTimezoneSuffix(s string) string {
	switch {
	case strings.HasSuffix(s, "Z"):
		return strings.TrimSuffix(s, "Z") + "+00:00"
	case strings.HasSuffix(s, "+00:00"):
		return strings.TrimSuffix(s, "+00:00") + "Z"
	default:
		return s
	}
}

// EpochMillis converts a timestamp of either encoding to Unix epoch
// milliseconds. This is the single comparison path for window checks:
// both sides of any ordering test must come through here.
func EpochMillis(s string) (int64, error) {
	calendar, err := ToCalendar(s)
	if err != nil {
		return 0, err
	}
	t, err := time.Parse(time.RFC3339Nano, calendar)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparsable, s)
	}
	return t.UnixMilli(), nil
}

func clock(p *Parsed) string {
	return fmt.Sprintf("%02d:%02d:%02d", p.Hour, p.Minute, p.Second)
}

func fraction(millis float64) string {
	if millis == 0 {
		return ""
	}
	// Render as fractional seconds, trimming trailing zeros.
	s := strconv.FormatFloat(millis/1000, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimPrefix(s, "0")
}
