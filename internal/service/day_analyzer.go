package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
	"github.com/noah-isme/agenda-api/pkg/timeutil"
)

const oneDay = 24 * time.Hour

// DayAnalyzer reports per-day free time inside working hours.
type DayAnalyzer struct {
	store  AppointmentStore
	cfg    EngineConfig
	logger *zap.Logger
}

// NewDayAnalyzer constructs the analyzer.
func NewDayAnalyzer(store AppointmentStore, cfg EngineConfig, logger *zap.Logger) *DayAnalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DayAnalyzer{store: store, cfg: cfg.withDefaults(), logger: logger}
}

// AnalyzeDays covers every date from the day of `from` through the day of `to`, inclusive.
// A nil workingHours uses the configured default.
func (a *DayAnalyzer) AnalyzeDays(ctx context.Context, calendarID string, from, to time.Time, workingHours *WorkingHours) (*models.DayReport, error) {
	wh := a.cfg.WorkingHours
	if workingHours != nil {
		wh = *workingHours
	}
	first, last := timeutil.StartOfDay(from), timeutil.StartOfDay(to)
	if from.IsZero() || to.IsZero() || last.Before(first) {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "day range end must not precede its start"),
			map[string]interface{}{"calendar_id": calendarID, "from": from, "to": to},
		)
	}
	if !wh.Valid() {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "working hours start must be before end"),
			map[string]interface{}{"calendar_id": calendarID, "start": wh.Start.String(), "end": wh.End.String()},
		)
	}
	if last.Sub(first)+oneDay > a.cfg.MaxSearchWindow {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrSearchBudgetExceeded, "day range too long"),
			map[string]interface{}{"calendar_id": calendarID, "from": first, "to": last, "max_window": a.cfg.MaxSearchWindow.String()},
		)
	}

	rangeStart, _ := wh.Window(first)
	_, rangeEnd := wh.Window(last)
	appointments, err := a.store.GetRange(ctx, calendarID, rangeStart, rangeEnd, false)
	if err != nil {
		return nil, storeError(err, "failed to load appointments for day analysis")
	}

	report := &models.DayReport{
		CalendarID:   calendarID,
		WorkingStart: wh.Start.String(),
		WorkingEnd:   wh.End.String(),
		Days:         make([]models.DayUtilization, 0, int(last.Sub(first)/oneDay)+1),
	}
	for d := first; !d.After(last); d = d.Add(oneDay) {
		report.Days = append(report.Days, utilization(appointments, d, wh))
	}
	report.BusiestDay, report.MostOpenDay = rankDays(report.Days)

	a.logger.Debug("days analysed",
		zap.String("calendar_id", calendarID),
		zap.Int("days", len(report.Days)),
		zap.String("busiest_day", report.BusiestDay),
	)
	return report, nil
}

func utilization(appointments []models.Appointment, date time.Time, wh WorkingHours) models.DayUtilization {
	ws, we := wh.Window(date)
	u := models.DayUtilization{Date: date.Format("2006-01-02"), WindowStart: ws, WindowEnd: we}
	for _, appt := range appointments {
		if appt.IsConfirmed() && appt.Overlaps(ws, we) {
			u.AppointmentCount++
		}
	}
	for _, block := range freeBlocks(appointments, ws, we) {
		u.FreeSeconds += block.Seconds
		if u.LargestFreeBlock == nil || block.Seconds > u.LargestFreeBlock.Seconds {
			b := block
			u.LargestFreeBlock = &b
		}
	}
	u.BusySeconds = int64(we.Sub(ws).Seconds()) - u.FreeSeconds
	return u
}

// rankDays picks the busiest day (least free, then most appointments, then earliest)
// and the most open day (most free, then earliest).
func rankDays(days []models.DayUtilization) (string, string) {
	if len(days) == 0 {
		return "", ""
	}
	busiest, open := days[0], days[0]
	for _, d := range days[1:] {
		if d.FreeSeconds < busiest.FreeSeconds ||
			(d.FreeSeconds == busiest.FreeSeconds && d.AppointmentCount > busiest.AppointmentCount) {
			busiest = d
		}
		if d.FreeSeconds > open.FreeSeconds {
			open = d
		}
	}
	return busiest.Date, open.Date
}

// freeBlocks returns the gaps between confirmed appointments inside [ws, we), in order.
func freeBlocks(appointments []models.Appointment, ws, we time.Time) []models.FreeBlock {
	busy := make([]interval, 0, len(appointments))
	for _, appt := range appointments {
		if !appt.IsConfirmed() || !appt.Overlaps(ws, we) {
			continue
		}
		s, e := appt.Start, appt.End
		if s.Before(ws) {
			s = ws
		}
		if e.After(we) {
			e = we
		}
		busy = append(busy, interval{start: s, end: e})
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].start.Before(busy[j].start) })

	blocks := make([]models.FreeBlock, 0, len(busy)+1)
	cursor := ws
	for _, b := range busy {
		if b.start.After(cursor) {
			blocks = append(blocks, newFreeBlock(cursor, b.start))
		}
		if b.end.After(cursor) {
			cursor = b.end
		}
	}
	if we.After(cursor) {
		blocks = append(blocks, newFreeBlock(cursor, we))
	}
	return blocks
}

func newFreeBlock(start, end time.Time) models.FreeBlock {
	return models.FreeBlock{Start: start, End: end, Seconds: int64(end.Sub(start).Seconds())}
}
