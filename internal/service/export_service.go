package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
	"github.com/noah-isme/agenda-api/pkg/export"
	"github.com/noah-isme/agenda-api/pkg/timeutil"
)

// ExportFormat names a day report rendering.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type dayReporter interface {
	AnalyzeDays(ctx context.Context, calendarID string, query DayRangeQuery) (*models.DayReport, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type icsRenderer interface {
	Render(name string, events []export.Event) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders day reports and appointment ranges into downloadable files.
type ExportService struct {
	reports dayReporter
	store   AppointmentStore
	csv     csvRenderer
	pdf     pdfRenderer
	ics     icsRenderer
	logger  *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back to the pkg/export implementations.
func NewExportService(reports dayReporter, store AppointmentStore, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, ics icsRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if ics == nil {
		ics = export.NewICSExporter()
	}
	return &ExportService{reports: reports, store: store, csv: csv, pdf: pdf, ics: ics, logger: logger}
}

var dayReportHeaders = []string{"date", "window_start", "window_end", "free_hours", "busy_hours", "appointments", "largest_free_start", "largest_free_end", "flag"}

// ExportDayReport analyses the range and renders it in the requested format.
func (s *ExportService) ExportDayReport(ctx context.Context, calendarID string, query DayRangeQuery, format ExportFormat) (*ExportFile, error) {
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "unsupported export format"),
			map[string]interface{}{"format": string(format)},
		)
	}
	report, err := s.reports.AnalyzeDays(ctx, calendarID, query)
	if err != nil {
		return nil, err
	}
	dataset := dayReportDataset(report)
	base := fmt.Sprintf("days_%s_%s_%s", calendarID, query.From.UTC().Format("20060102"), query.To.UTC().Format("20060102"))

	var file *ExportFile
	switch format {
	case ExportFormatPDF:
		title := fmt.Sprintf("Day report %s to %s (%s-%s)", query.From.UTC().Format("2006-01-02"), query.To.UTC().Format("2006-01-02"), report.WorkingStart, report.WorkingEnd)
		body, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		file = &ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Body: body}
	default:
		body, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		file = &ExportFile{Filename: base + ".csv", ContentType: "text/csv", Body: body}
	}
	s.logger.Info("day report exported", zap.String("calendar_id", calendarID), zap.String("format", string(format)), zap.Int("days", len(report.Days)))
	return file, nil
}

// ExportCalendar renders every appointment overlapping [start, end) as iCalendar, cancelled ones included.
func (s *ExportService) ExportCalendar(ctx context.Context, calendarID string, start, end time.Time) (*ExportFile, error) {
	start, end = timeutil.Normalize(start), timeutil.Normalize(end)
	if !start.Before(end) {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "export window start must be before end"),
			map[string]interface{}{"calendar_id": calendarID, "start": start, "end": end},
		)
	}
	appointments, err := s.store.GetRange(ctx, calendarID, start, end, true)
	if err != nil {
		return nil, storeError(err, "failed to load appointments for export")
	}
	events := make([]export.Event, 0, len(appointments))
	for _, appt := range appointments {
		events = append(events, appointmentEvent(appt.WithType()))
	}
	body, err := s.ics.Render(calendarID, events)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render calendar")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("%s_%s.ics", calendarID, start.Format("20060102")),
		ContentType: "text/calendar; charset=utf-8",
		Body:        body,
	}, nil
}

func dayReportDataset(report *models.DayReport) export.Dataset {
	rows := make([]map[string]string, 0, len(report.Days))
	for _, day := range report.Days {
		row := map[string]string{
			"date":         day.Date,
			"window_start": day.WindowStart.Format("15:04"),
			"window_end":   day.WindowEnd.Format("15:04"),
			"free_hours":   strconv.FormatFloat(day.FreeHours(), 'f', 2, 64),
			"busy_hours":   strconv.FormatFloat(float64(day.BusySeconds)/3600, 'f', 2, 64),
			"appointments": strconv.Itoa(day.AppointmentCount),
		}
		if day.LargestFreeBlock != nil {
			row["largest_free_start"] = day.LargestFreeBlock.Start.Format("15:04")
			row["largest_free_end"] = day.LargestFreeBlock.End.Format("15:04")
		}
		switch day.Date {
		case report.BusiestDay:
			row["flag"] = "busiest"
		case report.MostOpenDay:
			row["flag"] = "most_open"
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: dayReportHeaders, Rows: rows}
}

func appointmentEvent(appt models.Appointment) export.Event {
	ev := export.Event{
		UID:       appt.ID,
		Summary:   appt.Title,
		Start:     appt.Start,
		End:       appt.End,
		Priority:  appt.Priority,
		Cancelled: !appt.IsConfirmed(),
		Sequence:  appt.Version - 1,
		Modified:  appt.UpdatedAt,
	}
	if appt.Description != nil {
		ev.Description = *appt.Description
	}
	if appt.Location != nil {
		ev.Location = *appt.Location
	}
	if appt.Type != "" {
		if ev.Description != "" {
			ev.Description += "\n"
		}
		ev.Description += "Type: " + string(appt.Type)
	}
	if ev.Sequence < 0 {
		ev.Sequence = 0
	}
	return ev
}
