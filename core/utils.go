package core

import (
	"strings"
	"time"
)

// DateFormat is the wire and storage format for calendar dates.
const DateFormat = "2006-01-02"

// NowFunc returns the current time; mockable in tests.
var NowFunc = time.Now

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// Today returns the server-local date at the midnight boundary, formatted as DateFormat.
// ISO dates compare correctly as strings.
func Today() string {
	return NowFunc().Format(DateFormat)
}

// ValidDate reports whether s is a valid DateFormat date.
func ValidDate(s string) bool {
	_, err := time.Parse(DateFormat, s)
	return err == nil
}
