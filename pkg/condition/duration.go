package condition

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/noah-isme/practice-rules-api/pkg/errors"
)

var durationToken = regexp.MustCompile(`(\d+)(h|min)`)

// ParseDuration parses texts such as "1h30min", "2h" or "35min". Tokens must be
// consecutive and are summed in order; a unit may repeat ("1h1h" is two hours).
func ParseDuration(text string) (time.Duration, error) {
	trimmed := strings.TrimSpace(text)
	matches := durationToken.FindAllStringSubmatchIndex(trimmed, -1)
	if len(matches) == 0 {
		return 0, invalidDuration(text)
	}

	var (
		total time.Duration
		next  int
	)
	for _, m := range matches {
		if m[0] != next {
			return 0, invalidDuration(text)
		}
		next = m[1]

		amount, err := strconv.ParseInt(trimmed[m[2]:m[3]], 10, 64)
		if err != nil {
			return 0, invalidDuration(text)
		}
		unit := time.Minute
		if trimmed[m[4]:m[5]] == "h" {
			unit = time.Hour
		}
		total += time.Duration(amount) * unit
	}
	if next != len(trimmed) {
		return 0, invalidDuration(text)
	}
	return total, nil
}

func invalidDuration(text string) error {
	return appErrors.Clone(appErrors.ErrInvalidDurationFormat, fmt.Sprintf("invalid duration format %q (expected e.g. 1h30min)", text))
}
