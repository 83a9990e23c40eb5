package models

import "time"

// FreeBlock is a contiguous free interval inside a working window.
type FreeBlock struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Seconds int64     `json:"seconds"`
}

// DayUtilization holds the raw metrics of one day.
type DayUtilization struct {
	Date             string     `json:"date"`
	WindowStart      time.Time  `json:"window_start"`
	WindowEnd        time.Time  `json:"window_end"`
	FreeSeconds      int64      `json:"free_seconds"`
	BusySeconds      int64      `json:"busy_seconds"`
	LargestFreeBlock *FreeBlock `json:"largest_free_block,omitempty"`
	AppointmentCount int        `json:"appointment_count"`
}

// FreeHours converts FreeSeconds to hours.
func (d DayUtilization) FreeHours() float64 {
	return float64(d.FreeSeconds) / 3600
}

// DayReport is the per-day analysis of a calendar over a date range.
type DayReport struct {
	CalendarID   string           `json:"calendar_id"`
	WorkingStart string           `json:"working_start"`
	WorkingEnd   string           `json:"working_end"`
	Days         []DayUtilization `json:"days"`
	BusiestDay   string           `json:"busiest_day,omitempty"`
	MostOpenDay  string           `json:"most_open_day,omitempty"`
}

// Underutilized returns days whose free hours exceed the caller's cutoff.
func (r DayReport) Underutilized(minFreeHours float64) []DayUtilization {
	out := make([]DayUtilization, 0)
	for _, d := range r.Days {
		if d.FreeHours() > minFreeHours {
			out = append(out, d)
		}
	}
	return out
}
