package export

import (
	"fmt"
	"strconv"
	"time"

	ical "github.com/arran4/golang-ical"
)

const productID = "-//agenda-api//appointments//EN"

// Event is one calendar entry to serialize as a VEVENT.
type Event struct {
	UID         string
	Summary     string
	Description string
	Location    string
	Start       time.Time
	End         time.Time
	Priority    int
	Cancelled   bool
	Sequence    int
	Modified    time.Time
}

// ICSExporter renders events as an iCalendar document.
type ICSExporter struct {
	now func() time.Time
}

// NewICSExporter constructs an iCalendar exporter.
func NewICSExporter() *ICSExporter {
	return &ICSExporter{now: time.Now}
}

// Render serializes events into a PUBLISH calendar named name. Times are written in UTC.
func (e *ICSExporter) Render(name string, events []Event) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetName(name)
	}
	stamp := e.now().UTC()

	for _, ev := range events {
		if ev.UID == "" {
			return nil, fmt.Errorf("ics event %q has no uid", ev.Summary)
		}
		if !ev.Start.Before(ev.End) {
			return nil, fmt.Errorf("ics event %s ends before it starts", ev.UID)
		}
		vevent := cal.AddEvent(ev.UID)
		vevent.SetDtStampTime(stamp)
		vevent.SetStartAt(ev.Start.UTC())
		vevent.SetEndAt(ev.End.UTC())
		vevent.SetSummary(ev.Summary)
		if ev.Description != "" {
			vevent.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			vevent.SetLocation(ev.Location)
		}
		if !ev.Modified.IsZero() {
			vevent.SetModifiedAt(ev.Modified.UTC())
		}
		status := "CONFIRMED"
		if ev.Cancelled {
			status = "CANCELLED"
		}
		vevent.SetProperty(ical.ComponentPropertyStatus, status)
		vevent.SetProperty(ical.ComponentPropertyPriority, strconv.Itoa(icsPriority(ev.Priority)))
		vevent.SetProperty(ical.ComponentPropertySequence, strconv.Itoa(ev.Sequence))
	}

	return []byte(cal.Serialize()), nil
}

// icsPriority maps the 1..5 scale onto RFC 5545, where 1 is highest and 9 lowest.
func icsPriority(p int) int {
	if p < 1 || p > 5 {
		return 0
	}
	return 2*p - 1
}
