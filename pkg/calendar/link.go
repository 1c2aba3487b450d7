package calendar

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const eventEditBase = "https://calendar.google.com/calendar/r/eventedit"

// BuildLink builds a Google Calendar deep link for an event. It is a pure
// string transform: no network call, no side effect. Free-text fields are
// URL-encoded; date is YYYY-MM-DD and time, when present, HH:MM.
func BuildLink(title, date, timeStr, description string) (string, error) {
	if strings.TrimSpace(title) == "" {
		return "", fmt.Errorf("event title is required")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return "", fmt.Errorf("invalid event date %q: %w", date, err)
	}

	dt := date
	if timeStr != "" {
		if _, err := time.Parse("15:04", timeStr); err != nil {
			return "", fmt.Errorf("invalid event time %q: %w", timeStr, err)
		}
		dt = date + "T" + timeStr + ":00"
	}
	compact := strings.NewReplacer("-", "", ":", "").Replace(dt)

	link := fmt.Sprintf("%s?text=%s&dates=%s/%s", eventEditBase, url.QueryEscape(title), compact, compact)
	if description != "" {
		link += "&details=" + url.QueryEscape(description)
	}
	return link, nil
}
