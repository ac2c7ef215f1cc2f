package reading

import (
	"strings"
	"time"
)

const birthDateLayout = "02.01.2006"

var birthDateLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"02.1.2006",
	"2.01.2006",
}

// parseBirthDate accepts DD.MM.YYYY with optional leading zeros and
// returns it normalized. Dates after now are rejected.
func parseBirthDate(input string, now time.Time) (string, bool) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", false
	}
	for _, layout := range birthDateLayouts {
		t, err := time.ParseInLocation(layout, s, time.UTC)
		if err != nil {
			continue
		}
		if t.After(now) || t.Year() < 1900 {
			return "", false
		}
		return t.Format(birthDateLayout), true
	}
	return "", false
}
