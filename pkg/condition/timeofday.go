package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

var (
	hhmmPattern    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	hhmmssPattern  = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	dateTimeLayout = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04Z07:00",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02",
	}
)

// ParseDateTime parses an ISO-8601 timestamp. Timestamps without an offset are
// read as UTC; timestamps with an offset keep it.
func ParseDateTime(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range dateTimeLayout {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, appErrors.Clone(appErrors.ErrInvalidTimeFormat, fmt.Sprintf("invalid ISO datetime %q", value))
}

// ExtractTimeOfDay returns minutes since midnight read from the wall-clock
// fields of the timestamp as written, without converting to another zone.
func ExtractTimeOfDay(iso string) (int, error) {
	ts, err := ParseDateTime(iso)
	if err != nil {
		return 0, err
	}
	return ts.Hour()*60 + ts.Minute(), nil
}

// ParseTimeOfDay converts "HH:MM" into minutes since midnight.
func ParseTimeOfDay(value string) (int, error) {
	m := hhmmPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0, invalidTime(value)
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	if hours > 23 || minutes > 59 {
		return 0, invalidTime(value)
	}
	return hours*60 + minutes, nil
}

// IsWithinTimeOfDayRange reports whether the timestamp falls in [start, end).
// Either bound may be empty. When start > end the range wraps past midnight.
func IsWithinTimeOfDayRange(iso, start, end string) (bool, error) {
	if start == "" && end == "" {
		return true, nil
	}
	minute, err := ExtractTimeOfDay(iso)
	if err != nil {
		return false, err
	}
	return minuteWithinRange(minute, start, end)
}

func minuteWithinRange(minute int, start, end string) (bool, error) {
	switch {
	case start == "" && end == "":
		return true, nil
	case end == "":
		from, err := ParseTimeOfDay(start)
		if err != nil {
			return false, err
		}
		return minute >= from, nil
	case start == "":
		to, err := ParseTimeOfDay(end)
		if err != nil {
			return false, err
		}
		return minute < to, nil
	}

	from, err := ParseTimeOfDay(start)
	if err != nil {
		return false, err
	}
	to, err := ParseTimeOfDay(end)
	if err != nil {
		return false, err
	}
	if from <= to {
		return minute >= from && minute < to, nil
	}
	return minute >= from || minute < to, nil
}

// TimeRangesOverlap reports strict half-open overlap of [aStart, aEnd) and [bStart, bEnd).
func TimeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// clockMinutes converts "HH:MM" or "HH:MM:SS" to (fractional) minutes since midnight.
func clockMinutes(value string) (float64, bool) {
	m := hhmmssPattern.FindStringSubmatch(strings.TrimSpace(value))
	if m == nil {
		return 0, false
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds := 0
	if m[3] != "" {
		seconds, _ = strconv.Atoi(m[3])
	}
	if hours > 23 || minutes > 59 || seconds > 59 {
		return 0, false
	}
	return float64(hours*60+minutes) + float64(seconds)/60, true
}

func invalidTime(value string) error {
	return appErrors.Clone(appErrors.ErrInvalidTimeFormat, fmt.Sprintf("invalid time of day %q (expected HH:MM between 00:00 and 23:59)", value))
}
