package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/gophertribe/voxnote/pkg/notes"

	googleauth "github.com/gophertribe/voxnote/pkg/integration/google"
	gcal "google.golang.org/api/calendar/v3"
)

// Default duration for events extracted without an explicit end.
const defaultEventDuration = time.Hour

// API is the calendar-insertion interface used by the pipeline, kept narrow
// for testability.
type API interface {
	CreateEvent(ctx context.Context, ev notes.Event) (string, error)
}

// Service inserts extracted events into a real Google Calendar. This is in
// addition to the pure deep-link builder; both consume the same Event record.
type Service struct {
	srv        *gcal.Service
	calendarID string
}

var _ API = (*Service)(nil)

// NewService creates a Calendar service using service account credentials.
func NewService(ctx context.Context, credentialsFile, calendarID string) (*Service, error) {
	opt := googleauth.ClientOption(credentialsFile)
	srv, err := gcal.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}
	return &Service{srv: srv, calendarID: calendarID}, nil
}

// CreateEvent inserts the event and returns its calendar ID. Events without a
// time become all-day events.
func (s *Service) CreateEvent(ctx context.Context, ev notes.Event) (string, error) {
	gcalEvent, err := toGCalEvent(ev)
	if err != nil {
		return "", err
	}
	created, err := s.srv.Events.Insert(s.calendarID, gcalEvent).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create event: %w", err)
	}
	return created.Id, nil
}

func toGCalEvent(ev notes.Event) (*gcal.Event, error) {
	out := &gcal.Event{
		Summary:     ev.Title,
		Description: ev.Description,
	}

	if ev.Time == "" {
		day, err := time.Parse("2006-01-02", ev.Date)
		if err != nil {
			return nil, fmt.Errorf("invalid event date %q: %w", ev.Date, err)
		}
		out.Start = &gcal.EventDateTime{Date: ev.Date}
		out.End = &gcal.EventDateTime{Date: day.AddDate(0, 0, 1).Format("2006-01-02")}
		return out, nil
	}

	start, err := time.Parse("2006-01-02 15:04", ev.Date+" "+ev.Time)
	if err != nil {
		return nil, fmt.Errorf("invalid event datetime %q %q: %w", ev.Date, ev.Time, err)
	}
	out.Start = &gcal.EventDateTime{DateTime: start.Format(time.RFC3339)}
	out.End = &gcal.EventDateTime{DateTime: start.Add(defaultEventDuration).Format(time.RFC3339)}
	return out, nil
}
