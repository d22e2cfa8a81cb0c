package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
)

func TestScheduleExceptionFindByOccurrence(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleExceptionRepository(db)

	date := recurrence.Date(2024, 1, 8)
	start := recurrence.TimeOfDay{Hour: 16}
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "schedule_id", "original_date", "original_start_time", "is_cancelled", "new_date", "new_start_time", "new_duration_minutes", "created_at", "updated_at"}).
		AddRow("ex-1", "sch-1", date, "16:00:00", false, recurrence.Date(2024, 1, 9), "17:30:00", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE schedule_id = $1 AND original_date = $2 AND original_start_time = $3")).
		WithArgs("sch-1", date, start).
		WillReturnRows(rows)

	exception, err := repo.FindByOccurrence(context.Background(), "sch-1", date, start)
	require.NoError(t, err)
	require.NotNil(t, exception.NewStartTime)
	assert.Equal(t, recurrence.TimeOfDay{Hour: 17, Minute: 30}, *exception.NewStartTime)
	assert.Nil(t, exception.NewDurationMinutes)
	assert.Equal(t, models.OccurrenceKey{Date: date, Start: start}, exception.Key())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleExceptionSaveInsertsWithUpsert(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleExceptionRepository(db)

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (schedule_id, original_date, original_start_time)")).
		WithArgs(sqlmock.AnyArg(), "sch-1", recurrence.Date(2024, 1, 8), recurrence.TimeOfDay{Hour: 16}, true, nil, nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("ex-existing", created))

	exception := &models.ScheduleException{
		ScheduleID:        "sch-1",
		OriginalDate:      recurrence.Date(2024, 1, 8),
		OriginalStartTime: recurrence.TimeOfDay{Hour: 16},
		IsCancelled:       true,
	}
	require.NoError(t, repo.Save(context.Background(), exception))
	assert.Equal(t, "ex-existing", exception.ID)
	assert.Equal(t, created, exception.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleExceptionSaveUpdatesByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewScheduleExceptionRepository(db)

	duration := 45
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_exceptions SET is_cancelled = $2")).
		WithArgs("ex-1", false, nil, nil, duration, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), &models.ScheduleException{ID: "ex-1", ScheduleID: "sch-1", NewDurationMinutes: &duration})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
