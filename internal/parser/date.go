package parser

import (
	"strings"
	"time"

	"github.com/jinzhu/now"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.RFC822Z,
	time.RFC822,
	time.UnixDate,
	time.ANSIC,
	"Mon Jan 2 2006",
	"Mon, Jan 2, 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2, 2006 3:04 PM",
	"January 2, 2006 3:04 PM",
	"2 Jan 2006",
	"2 January 2006",
	"01/02/2006",
	"1/2/2006",
	"2006/01/02",
}

// ParseDate tries the known layouts and then jinzhu/now's looser formats.
func ParseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	if t, err := now.Parse(value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ParseFlexibleDate never fails: unparseable input yields the current time.
func ParseFlexibleDate(value string) time.Time {
	if t, ok := ParseDate(value); ok {
		return t
	}
	return time.Now()
}
