// Package transformer projects source batches onto the canonical schema.
//
// Values are typed once by the batched reader (ParseValue) and then cast into
// their canonical representation (Cast) while an Arrow record is assembled in
// registry order. The Go representation of each semantic type is:
//
//	text     string
//	boolean  bool
//	integer  int64
//	float    float64
//	date     time.Time (UTC midnight)
//	time     time.Duration since midnight
//
// nil is null for every type.
package transformer

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"stopprep/internal/schema"
)

// ErrInvalidValue is the cause of every failed parse or cast.
var ErrInvalidValue = errors.New("invalid value")

// dateLayouts are tried in order after the ISO fast path.
var dateLayouts = []string{
	"01/02/2006",
	"2006/01/02",
	"1/2/2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

var timeLayouts = []string{
	"15:04:05.999999999",
	"15:04:05",
	"15:04",
}

// ParseValue converts the raw text s into the Go representation of t.
// The caller handles null sentinels; s is never treated as null here.
func ParseValue(t schema.Type, s string) (any, error) {
	switch t {
	case schema.Text:
		return s, nil
	case schema.Boolean:
		if b, ok := toBoolFast(s); ok {
			return b, nil
		}
	case schema.Integer:
		if i, ok := toIntFast(s); ok {
			return i, nil
		}
	case schema.Float:
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return f, nil
		}
	case schema.Date:
		if d, ok := parseDate(s); ok {
			return d, nil
		}
	case schema.Time:
		if d, ok := parseTimeOfDay(s); ok {
			return d, nil
		}
	}
	return nil, errors.Wrapf(ErrInvalidValue, "%q is not a valid %s", s, t)
}

// Cast coerces an already-parsed value into the canonical representation of
// t. It accepts the value either in its final form, as text, or as a
// losslessly convertible neighbour (int64 <-> float64, time.Time -> date).
func Cast(t schema.Type, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && t != schema.Text {
		return ParseValue(t, s)
	}

	switch t {
	case schema.Text:
		switch x := v.(type) {
		case string:
			return x, nil
		case bool:
			return strconv.FormatBool(x), nil
		case int64:
			return strconv.FormatInt(x, 10), nil
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), nil
		}
	case schema.Boolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case schema.Integer:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case float64:
			if x == math.Trunc(x) && !math.IsInf(x, 0) {
				return int64(x), nil
			}
		}
	case schema.Float:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int64:
			return float64(x), nil
		case int:
			return float64(x), nil
		}
	case schema.Date:
		if d, ok := v.(time.Time); ok {
			y, m, day := d.Date()
			return time.Date(y, m, day, 0, 0, 0, 0, time.UTC), nil
		}
	case schema.Time:
		if d, ok := v.(time.Duration); ok && d >= 0 && d < 24*time.Hour {
			return d, nil
		}
	}
	return nil, errors.Wrapf(ErrInvalidValue, "%T value %v is not coercible to %s", v, v, t)
}

// toIntFast parses integers and only falls back to float parsing when the
// field contains a '.' (inputs like "42.0").
func toIntFast(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if strings.IndexByte(s, '.') >= 0 {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			if f == float64(int64(f)) {
				return int64(f), true
			}
		}
	}
	return 0, false
}

func toBoolFast(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "yes", "y":
		return true, true
	case "0", "f", "false", "no", "n":
		return false, true
	default:
		return false, false
	}
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, ok := parseISODate(s); ok {
		return t, true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

// parseISODate is an allocation-free parser for "2006-01-02".
func parseISODate(s string) (time.Time, bool) {
	if len(s) != 10 || s[4] != '-' || s[7] != '-' {
		return time.Time{}, false
	}
	y3, y2, y1, y0 := s[0]-'0', s[1]-'0', s[2]-'0', s[3]-'0'
	m1, m0 := s[5]-'0', s[6]-'0'
	d1, d0 := s[8]-'0', s[9]-'0'
	if y3 > 9 || y2 > 9 || y1 > 9 || y0 > 9 || m1 > 9 || m0 > 9 || d1 > 9 || d0 > 9 {
		return time.Time{}, false
	}
	year := int(y3)*1000 + int(y2)*100 + int(y1)*10 + int(y0)
	mon := int(m1)*10 + int(m0)
	day := int(d1)*10 + int(d0)
	if mon < 1 || mon > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(mon), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		// 2021-02-30 normalises into March.
		return time.Time{}, false
	}
	return t, true
}

func parseTimeOfDay(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		h, m, sec := t.Clock()
		return time.Duration(h)*time.Hour +
			time.Duration(m)*time.Minute +
			time.Duration(sec)*time.Second +
			time.Duration(t.Nanosecond()), true
	}
	return 0, false
}
