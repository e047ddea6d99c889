package entsoe

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// The API serializes timestamps as ISO-8601, sometimes without seconds
// (interval boundaries) and sometimes without an offset. A trailing "Z" or a
// missing offset both mean UTC wall-clock time.
var decodeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// DecodeTime parses an ISO-8601 timestamp. A trailing "Z" or a naive
// timestamp is interpreted as UTC wall-clock time; an explicit offset is
// preserved as given.
func DecodeTime(text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return time.Time{}, &ParsingError{Field: "datetime", Detail: "empty timestamp"}
	}

	for _, layout := range decodeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &ParsingError{
		Field:  "datetime",
		Detail: fmt.Sprintf("unrecognized timestamp %q", s),
	}
}

// EncodeTime serializes a timestamp as ISO-8601. Zero-offset instants
// serialize with a trailing "Z"; other offsets and sub-second precision are
// preserved verbatim.
func EncodeTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

// ParseResolution parses an ISO-8601 duration (PT15M, PT1H, P1D, ...) into a
// fixed duration. Calendar-variable units (months, years) are rejected
// because they cannot anchor point positions to clock timestamps.
func ParseResolution(text string) (time.Duration, error) {
	s := strings.TrimSpace(text)
	if s == "" || s[0] != 'P' {
		return 0, &ParsingError{Field: "resolution", Detail: fmt.Sprintf("invalid duration %q", text)}
	}

	rest := s[1:]
	var total time.Duration
	inTime := false
	num := ""

	for _, r := range rest {
		switch {
		case r >= '0' && r <= '9':
			num += string(r)
		case r == 'T':
			if inTime || num != "" {
				return 0, &ParsingError{Field: "resolution", Detail: fmt.Sprintf("invalid duration %q", text)}
			}
			inTime = true
		default:
			if num == "" {
				return 0, &ParsingError{Field: "resolution", Detail: fmt.Sprintf("invalid duration %q", text)}
			}
			n, err := strconv.Atoi(num)
			if err != nil {
				return 0, &ParsingError{Field: "resolution", Detail: fmt.Sprintf("invalid duration %q", text), Err: err}
			}
			num = ""

			switch {
			case !inTime && r == 'D':
				total += time.Duration(n) * 24 * time.Hour
			case !inTime && r == 'W':
				total += time.Duration(n) * 7 * 24 * time.Hour
			case !inTime && (r == 'M' || r == 'Y'):
				return 0, &ParsingError{Field: "resolution", Detail: fmt.Sprintf("calendar-variable duration %q not supported", text)}
			case inTime && r == 'H':
				total += time.Duration(n) * time.Hour
			case inTime && r == 'M':
				total += time.Duration(n) * time.Minute
			case inTime && r == 'S':
				total += time.Duration(n) * time.Second
			default:
				return 0, &ParsingError{Field: "resolution", Detail: fmt.Sprintf("invalid duration %q", text)}
			}
		}
	}

	if num != "" || total == 0 {
		return 0, &ParsingError{Field: "resolution", Detail: fmt.Sprintf("invalid duration %q", text)}
	}

	return total, nil
}
