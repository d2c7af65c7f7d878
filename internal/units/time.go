package units

import (
	"fmt"
	"strings"
	"time"
)

const (
	utcLayout   = "2006-01-02T15:04:05Z"
	localLayout = "2006-01-02T15:04:05"
)

// FormatError reports a timestamp that does not have the shape a service promises
type FormatError struct {
	Value  string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing timestamp %q: %s: %v", e.Value, e.Reason, e.Err)
	}
	return fmt.Sprintf("parsing timestamp %q: %s", e.Value, e.Reason)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ParseUTC parses a Zulu timestamp such as "2016-11-17T15:59:56Z"
func ParseUTC(s string) (time.Time, error) {
	t, err := time.Parse(utcLayout, s)
	if err != nil {
		return time.Time{}, &FormatError{Value: s, Reason: "expected UTC timestamp", Err: err}
	}
	return t, nil
}

// ParseLocalOffset parses "2016-11-17T07:11:00-08:00". The last six
// characters are taken as the offset: a sign, two hour digits, a separator
// and two minute digits. The instant keeps that fixed offset as its zone.
func ParseLocalOffset(s string) (time.Time, error) {
	if len(s) < len(localLayout)+6 {
		return time.Time{}, &FormatError{Value: s, Reason: "too short for a local time with offset"}
	}
	base, tz := s[:len(s)-6], s[len(s)-6:]

	sign := 1
	switch tz[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return time.Time{}, &FormatError{Value: s, Reason: "offset must start with + or -"}
	}

	hours, ok := twoDigits(tz[1:3])
	if !ok {
		return time.Time{}, &FormatError{Value: s, Reason: "offset hours are not two digits"}
	}
	minutes, ok := twoDigits(tz[4:6])
	if !ok {
		return time.Time{}, &FormatError{Value: s, Reason: "offset minutes are not two digits"}
	}

	offset := sign * (hours*3600 + minutes*60)
	t, err := time.ParseInLocation(localLayout, base, time.FixedZone(tz, offset))
	if err != nil {
		return time.Time{}, &FormatError{Value: s, Reason: "bad local time", Err: err}
	}
	return t, nil
}

func twoDigits(s string) (int, bool) {
	if len(s) != 2 || s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

// ParseBadgeTime parses a UTC timestamp without zone designator, with or
// without fractional seconds ("2016-11-17T15:59:56.123")
func ParseBadgeTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(localLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, &FormatError{Value: s, Reason: "expected UTC timestamp without zone", Err: err}
	}
	return t, nil
}

// ZoneFromStrava resolves a Strava timezone label such as
// "(GMT-08:00) America/Los_Angeles" to a location, falling back to time.Local
func ZoneFromStrava(label string) *time.Location {
	name := label
	if i := strings.LastIndex(label, ") "); i >= 0 {
		name = label[i+2:]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// InZone returns t as seen from the named Strava timezone
func InZone(t time.Time, label string) time.Time {
	return t.In(ZoneFromStrava(label))
}
