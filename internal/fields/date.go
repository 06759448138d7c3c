package fields

import (
	"regexp"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/araddon/dateparse"
)

var (
	isoDatePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)
	atSeparator    = regexp.MustCompile(`(?i) at `)
	ordinalSuffix  = regexp.MustCompile(`\b(\d{1,2})(st|nd|rd|th)\b`)
)

// dateLayouts are tried in order before falling back to dateparse.
var dateLayouts = []string{
	"2 January 2006 15:04",
	"2 January 2006 15:04:05",
	"2 January 2006",
	"2 Jan 2006 15:04",
	"2 Jan 2006 15:04:05",
	"2 Jan 2006",
	"January 2, 2006 15:04",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Monday, 2 January 2006",
	"Mon, 2 Jan 2006",
	time.RFC3339,
	time.RFC1123,
}

// Today returns the current UTC calendar date.
func Today(now time.Time) civil.Date {
	return civil.DateOf(now.UTC())
}

// ExtractDate resolves the calendar date of a record from its raw "time" or
// "date" value. Anything absent or unparseable resolves to today; a record is
// never left without a date.
func ExtractDate(raw string, today civil.Date) civil.Date {
	s := strings.TrimSpace(raw)
	if s == "" {
		return today
	}

	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		if d, err := civil.ParseDate(m[1]); err == nil {
			return d
		}
	}

	if d, ok := parseFreeForm(s); ok {
		return d
	}

	return today
}

func parseFreeForm(s string) (civil.Date, bool) {
	normalized := atSeparator.ReplaceAllString(s, " ")
	normalized = ordinalSuffix.ReplaceAllString(normalized, "$1")
	normalized = strings.Join(strings.Fields(normalized), " ")

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, normalized); err == nil {
			return civil.DateOf(t), true
		}
	}

	// dateparse accepts "Aug 22" and returns year 0 for it.
	t, err := dateparse.ParseIn(normalized, time.UTC)
	if err != nil || t.Year() == 0 {
		return civil.Date{}, false
	}
	return civil.DateOf(t), true
}
