package adapter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseISO8601Duration parses a restricted ISO-8601 duration of the form
// "PT<n>H", "PT<n>M", or "PT<n>S" (also additive combinations like
// "PT1H30M"), as used by the schedules configuration surface. Calendar
// components (years, months, days) are not supported since schedules only
// ever express sub-day periods.
func parseISO8601Duration(s string) (time.Duration, error) {
	if !strings.HasPrefix(s, "PT") {
		return 0, fmt.Errorf("adapter: schedule duration %q must start with \"PT\"", s)
	}
	rest := s[2:]
	if rest == "" {
		return 0, fmt.Errorf("adapter: schedule duration %q has no time component", s)
	}

	var total time.Duration
	var num strings.Builder

	for _, r := range rest {
		switch {
		case r >= '0' && r <= '9':
			num.WriteRune(r)
		case r == '.':
			num.WriteRune(r)
		case r == 'H', r == 'M', r == 'S':
			if num.Len() == 0 {
				return 0, fmt.Errorf("adapter: schedule duration %q has a unit with no value", s)
			}
			v, err := strconv.ParseFloat(num.String(), 64)
			if err != nil {
				return 0, fmt.Errorf("adapter: schedule duration %q is malformed: %w", s, err)
			}
			num.Reset()
			switch r {
			case 'H':
				total += time.Duration(v * float64(time.Hour))
			case 'M':
				total += time.Duration(v * float64(time.Minute))
			case 'S':
				total += time.Duration(v * float64(time.Second))
			}
		default:
			return 0, fmt.Errorf("adapter: schedule duration %q contains unsupported component %q", s, r)
		}
	}

	if num.Len() != 0 {
		return 0, fmt.Errorf("adapter: schedule duration %q has a trailing value with no unit", s)
	}
	if total <= 0 {
		return 0, fmt.Errorf("adapter: schedule duration %q must be positive", s)
	}
	return total, nil
}
