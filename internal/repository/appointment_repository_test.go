package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/agenda-api/internal/models"
	appErrors "github.com/noah-isme/agenda-api/pkg/errors"
)

var appointmentRowColumns = []string{"id", "calendar_id", "title", "start_time", "end_time", "priority", "status", "description", "location", "version", "created_at", "updated_at"}

func newAppointmentRepoMock(t *testing.T) (*AppointmentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	repo := NewAppointmentRepository(sqlxDB)
	repo.now = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) }
	return repo, mock, func() {
		_ = sqlxDB.Close()
	}
}

func appointmentRow(rows *sqlmock.Rows, id, status string, start, end time.Time, priority, version int) *sqlmock.Rows {
	created := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return rows.AddRow(id, "cal-1", "Viewing "+id, start, end, priority, status, nil, nil, version, created, created)
}

func TestAppointmentRepositoryGetRangeConfirmedOnly(t *testing.T) {
	repo, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	start := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 2, 17, 0, 0, 0, time.UTC)
	rows := appointmentRow(sqlmock.NewRows(appointmentRowColumns), "a-1", "confirmed", start, start.Add(time.Hour), 3, 1)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM appointments WHERE calendar_id = $1 AND start_time < $3 AND end_time > $2 AND status = 'confirmed' ORDER BY start_time ASC, id ASC`)).
		WithArgs("cal-1", start, end).
		WillReturnRows(rows)

	appts, err := repo.GetRange(context.Background(), "cal-1", start, end, false)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "a-1", appts[0].ID)
	assert.Equal(t, models.AppointmentStatusConfirmed, appts[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryGetRangeIncludingCancelled(t *testing.T) {
	repo, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	start := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(8 * time.Hour)
	mock.ExpectQuery(`end_time > \$2 ORDER BY start_time ASC`).
		WithArgs("cal-1", start, end).
		WillReturnRows(sqlmock.NewRows(appointmentRowColumns))

	appts, err := repo.GetRange(context.Background(), "cal-1", start, end, true)
	require.NoError(t, err)
	assert.NotNil(t, appts)
	assert.Empty(t, appts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryGetNotFound(t *testing.T) {
	repo, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	mock.ExpectQuery("FROM appointments WHERE calendar_id = \\$1 AND id = \\$2").
		WithArgs("cal-1", "missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "cal-1", "missing")
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	assert.Equal(t, "missing", appErrors.FromError(err).Details["appointment_id"])
}

func TestAppointmentRepositoryCreateUnknownCalendar(t *testing.T) {
	repo, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO appointments").WillReturnError(&pq.Error{Code: pqForeignKeyViolation})

	_, err := repo.Create(context.Background(), "ghost", models.AppointmentFields{
		Title: "Viewing", Start: time.Date(2025, 3, 2, 14, 0, 0, 0, time.UTC), End: time.Date(2025, 3, 2, 15, 0, 0, 0, time.UTC), Priority: 3,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestAppointmentRepositoryCreate(t *testing.T) {
	repo, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO appointments").WillReturnResult(sqlmock.NewResult(1, 1))

	start := time.Date(2025, 3, 2, 16, 0, 0, 0, time.FixedZone("EET", 2*3600))
	appt, err := repo.Create(context.Background(), "cal-1", models.AppointmentFields{
		Title: "Condo Viewing", Start: start, End: start.Add(time.Hour), Priority: 3,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, 1, appt.Version)
	assert.Equal(t, models.AppointmentStatusConfirmed, appt.Status)
	assert.Equal(t, time.UTC, appt.Start.Location())
	assert.Equal(t, 14, appt.Start.Hour())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryUpdateStaleVersion(t *testing.T) {
	repo, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	start := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM appointments WHERE calendar_id").
		WithArgs("cal-1", "a-1").
		WillReturnRows(appointmentRow(sqlmock.NewRows(appointmentRowColumns), "a-1", "confirmed", start, start.Add(time.Hour), 3, 3))

	expected := 2
	_, err := repo.Update(context.Background(), "cal-1", "a-1", models.AppointmentPatch{ExpectedVersion: &expected})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConcurrentModification))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryUpdateLostRace(t *testing.T) {
	repo, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	start := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM appointments WHERE calendar_id").
		WithArgs("cal-1", "a-1").
		WillReturnRows(appointmentRow(sqlmock.NewRows(appointmentRowColumns), "a-1", "confirmed", start, start.Add(time.Hour), 3, 1))
	mock.ExpectExec(regexp.QuoteMeta("WHERE calendar_id = $10 AND id = $11 AND version = $12")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	newStart := start.Add(2 * time.Hour)
	newEnd := newStart.Add(time.Hour)
	_, err := repo.Update(context.Background(), "cal-1", "a-1", models.AppointmentPatch{Start: &newStart, End: &newEnd})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrConcurrentModification))
}

func TestAppointmentRepositoryUpdate(t *testing.T) {
	repo, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	start := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("FROM appointments WHERE calendar_id").
		WithArgs("cal-1", "a-1").
		WillReturnRows(appointmentRow(sqlmock.NewRows(appointmentRowColumns), "a-1", "confirmed", start, start.Add(time.Hour), 3, 1))

	newStart := start.Add(2 * time.Hour)
	newEnd := newStart.Add(time.Hour)
	mock.ExpectExec("UPDATE appointments SET").
		WithArgs("Viewing a-1", newStart, newEnd, 3, models.AppointmentStatusConfirmed, nil, nil, 2, sqlmock.AnyArg(), "cal-1", "a-1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	expected := 1
	appt, err := repo.Update(context.Background(), "cal-1", "a-1", models.AppointmentPatch{Start: &newStart, End: &newEnd, ExpectedVersion: &expected})
	require.NoError(t, err)
	assert.Equal(t, 2, appt.Version)
	assert.Equal(t, newStart, appt.Start)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppointmentRepositoryCancelIsIdempotent(t *testing.T) {
	repo, mock, cleanup := newAppointmentRepoMock(t)
	defer cleanup()

	start := time.Date(2025, 3, 2, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery("UPDATE appointments SET status = 'cancelled'").
		WithArgs(sqlmock.AnyArg(), "cal-1", "a-1").
		WillReturnRows(sqlmock.NewRows(appointmentRowColumns))
	mock.ExpectQuery("FROM appointments WHERE calendar_id").
		WithArgs("cal-1", "a-1").
		WillReturnRows(appointmentRow(sqlmock.NewRows(appointmentRowColumns), "a-1", "cancelled", start, start.Add(time.Hour), 3, 2))

	appt, err := repo.Cancel(context.Background(), "cal-1", "a-1")
	require.NoError(t, err)
	assert.Equal(t, models.AppointmentStatusCancelled, appt.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
