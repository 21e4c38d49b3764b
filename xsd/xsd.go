// Package xsd contains the XML Schema primitive types used by ONVIF requests.
package xsd

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Boolean is an xs:boolean. It always marshals as "true" or "false".
type Boolean bool

// MarshalText implements encoding.TextMarshaler.
func (b Boolean) MarshalText() ([]byte, error) {
	return []byte(strconv.FormatBool(bool(b))), nil
}

// UnmarshalText accepts true/false/1/0 in any case.
func (b *Boolean) UnmarshalText(text []byte) error {
	v, ok := ParseBool(string(text))
	if !ok {
		return fmt.Errorf("invalid xs:boolean %q", string(text))
	}
	*b = Boolean(v)
	return nil
}

// ParseBool parses an xs:boolean leniently. The second return value is false if s is not a boolean.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1":
		return true, true
	case "false", "0":
		return false, true
	default:
		return false, false
	}
}

// AnyURI is an xs:anyURI.
type AnyURI string

// Duration is an xs:duration in its lexical form, e.g. PT1M30S.
type Duration string

// FormatDuration renders d as an xs:duration.
func FormatDuration(d time.Duration) (Duration, error) {
	if d < 0 {
		return "", fmt.Errorf("duration must be non-negative, got %v", d)
	}
	totalSeconds := int64(d / time.Second)
	nanos := int64(d % time.Second)
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	var sb strings.Builder
	sb.WriteString("PT")
	if hours > 0 {
		fmt.Fprintf(&sb, "%dH", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&sb, "%dM", minutes)
	}
	if seconds > 0 || nanos > 0 || (hours == 0 && minutes == 0) {
		if nanos == 0 {
			fmt.Fprintf(&sb, "%dS", seconds)
		} else {
			frac := strings.TrimRight(fmt.Sprintf("%09d", nanos), "0")
			fmt.Fprintf(&sb, "%d.%sS", seconds, frac)
		}
	}
	return Duration(sb.String()), nil
}

// ParseDuration parses the subset of xs:duration cameras actually send: PnDTnHnMnS with
// fractional seconds. Years and months are rejected since they have no fixed length.
func ParseDuration(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if !strings.HasPrefix(s, "P") || len(s) < 2 {
		return 0, fmt.Errorf("invalid xs:duration %q", raw)
	}
	s = s[1:]

	var total time.Duration
	inTime := false
	timeParts := 0
	num := ""
	for _, r := range s {
		switch {
		case r == 'T':
			if inTime || num != "" {
				return 0, fmt.Errorf("invalid xs:duration %q", raw)
			}
			inTime = true
		case (r >= '0' && r <= '9') || r == '.':
			num += string(r)
		default:
			if num == "" {
				return 0, fmt.Errorf("invalid xs:duration %q", raw)
			}
			f, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return 0, fmt.Errorf("invalid xs:duration %q: %w", raw, err)
			}
			num = ""
			var unit time.Duration
			switch {
			case r == 'D' && !inTime:
				unit = 24 * time.Hour
			case r == 'H' && inTime:
				unit = time.Hour
			case r == 'M' && inTime:
				unit = time.Minute
			case r == 'S' && inTime:
				unit = time.Second
			default:
				return 0, fmt.Errorf("unsupported xs:duration component %q in %q", string(r), raw)
			}
			if inTime {
				timeParts++
			}
			total += time.Duration(f * float64(unit))
		}
	}
	// A T designator must be followed by at least one time component.
	if num != "" || (inTime && timeParts == 0) {
		return 0, fmt.Errorf("invalid xs:duration %q", raw)
	}
	if neg {
		total = -total
	}
	return total, nil
}
