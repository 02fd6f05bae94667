package service

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeRange is a normalized 24-hour clock range.
type TimeRange struct {
	Start string
	End   string
}

// ParseTimeRange parses free-text ranges such as "6:00pm - 9:00pm" or
// "18:00 - 21:00" into normalized 24-hour "HH:MM" bounds. Each side may
// independently use either notation; parsing the normalized output again
// yields the same result.
func ParseTimeRange(raw string) (TimeRange, error) {
	parts := strings.SplitN(raw, "-", 2)
	if len(parts) != 2 {
		return TimeRange{}, fmt.Errorf("time range %q must contain exactly one '-' separator", raw)
	}

	start, err := parseClock(strings.TrimSpace(parts[0]))
	if err != nil {
		return TimeRange{}, fmt.Errorf("start of range %q: %w", raw, err)
	}
	end, err := parseClock(strings.TrimSpace(parts[1]))
	if err != nil {
		return TimeRange{}, fmt.Errorf("end of range %q: %w", raw, err)
	}

	return TimeRange{Start: start, End: end}, nil
}

// parseClock accepts 24-hour "HH:MM" or 12-hour "h:mm am/pm" (meridiem
// case-insensitive, optional space) and returns 24-hour "HH:MM".
func parseClock(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("empty time")
	}

	lower := strings.ToLower(raw)
	meridiem := ""
	switch {
	case strings.HasSuffix(lower, "am"):
		meridiem = "am"
	case strings.HasSuffix(lower, "pm"):
		meridiem = "pm"
	}
	if meridiem != "" {
		lower = strings.TrimSpace(strings.TrimSuffix(lower, meridiem))
	}

	hourPart, minutePart, found := strings.Cut(lower, ":")
	if !found {
		return "", fmt.Errorf("time %q must be HH:MM or h:mm am/pm", raw)
	}

	hour, err := strconv.Atoi(strings.TrimSpace(hourPart))
	if err != nil {
		return "", fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(strings.TrimSpace(minutePart))
	if err != nil {
		return "", fmt.Errorf("invalid minute in %q", raw)
	}
	if minute < 0 || minute > 59 {
		return "", fmt.Errorf("minute out of range in %q", raw)
	}

	switch meridiem {
	case "am":
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("hour out of range in %q", raw)
		}
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("hour out of range in %q", raw)
		}
		if hour != 12 {
			hour += 12
		}
	default:
		if hour < 0 || hour > 23 {
			return "", fmt.Errorf("hour out of range in %q", raw)
		}
	}

	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}
