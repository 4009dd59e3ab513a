package eventstore

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/tradeboard/calendar-sync/internal/models"
)

const icsProductID = "-//Tradeboard//TeamCalendar//EN"

// ExportICS writes the store's events as a VCALENDAR so they can be
// imported into any external calendar application. All-day events are
// emitted as date values; timed events without an explicit end get the
// default job duration.
func (s *Store) ExportICS(w io.Writer) error {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)

	now := time.Now()
	for _, event := range s.Events() {
		vevent := cal.AddEvent(fmt.Sprintf("%s@tradeboard.com", event.ID))
		vevent.SetDtStampTime(now)
		vevent.SetSummary(event.Title)
		if event.Location != "" {
			vevent.SetLocation(event.Location)
		}

		if event.AllDay {
			vevent.SetAllDayStartAt(event.Start)
			vevent.SetAllDayEndAt(event.Start.AddDate(0, 0, 1))
			continue
		}

		vevent.SetStartAt(event.Start)
		end := event.Start.Add(models.DefaultEventDuration)
		if event.End != nil {
			end = *event.End
		}
		vevent.SetEndAt(end)
	}

	if err := cal.SerializeTo(w); err != nil {
		return fmt.Errorf("failed to serialize calendar: %w", err)
	}
	return nil
}
