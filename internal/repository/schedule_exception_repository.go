package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
)

const scheduleExceptionColumns = `id, schedule_id, original_date, original_start_time, is_cancelled, new_date, new_start_time, new_duration_minutes, created_at, updated_at`

// ScheduleExceptionRepository persists per-occurrence overrides.
type ScheduleExceptionRepository struct {
	db *sqlx.DB
}

// NewScheduleExceptionRepository constructs a ScheduleExceptionRepository.
func NewScheduleExceptionRepository(db *sqlx.DB) *ScheduleExceptionRepository {
	return &ScheduleExceptionRepository{db: db}
}

// ListByScheduleIDs returns overrides for the given schedules.
func (r *ScheduleExceptionRepository) ListByScheduleIDs(ctx context.Context, scheduleIDs []string) ([]models.ScheduleException, error) {
	if len(scheduleIDs) == 0 {
		return []models.ScheduleException{}, nil
	}
	query := `SELECT ` + scheduleExceptionColumns + ` FROM schedule_exceptions WHERE schedule_id = ANY($1) ORDER BY schedule_id, original_date, original_start_time`
	var exceptions []models.ScheduleException
	if err := r.db.SelectContext(ctx, &exceptions, query, pq.Array(scheduleIDs)); err != nil {
		return nil, fmt.Errorf("list schedule exceptions: %w", err)
	}
	return exceptions, nil
}

// FindByOccurrence fetches the override keyed by the original occurrence.
func (r *ScheduleExceptionRepository) FindByOccurrence(ctx context.Context, scheduleID string, date time.Time, start recurrence.TimeOfDay) (*models.ScheduleException, error) {
	query := `SELECT ` + scheduleExceptionColumns + ` FROM schedule_exceptions
WHERE schedule_id = $1 AND original_date = $2 AND original_start_time = $3`
	var exception models.ScheduleException
	if err := r.db.GetContext(ctx, &exception, query, scheduleID, date, start); err != nil {
		return nil, err
	}
	return &exception, nil
}

// FindByRescheduled fetches the override that moved an occurrence to the given date and time.
// Overrides without a new start time keep their original start time.
func (r *ScheduleExceptionRepository) FindByRescheduled(ctx context.Context, scheduleID string, date time.Time, start recurrence.TimeOfDay) (*models.ScheduleException, error) {
	query := `SELECT ` + scheduleExceptionColumns + ` FROM schedule_exceptions
WHERE schedule_id = $1 AND new_date = $2 AND COALESCE(new_start_time, original_start_time) = $3
ORDER BY updated_at DESC LIMIT 1`
	var exception models.ScheduleException
	if err := r.db.GetContext(ctx, &exception, query, scheduleID, date, start); err != nil {
		return nil, err
	}
	return &exception, nil
}

// Save inserts a new override or updates an existing one. Concurrent inserts
// for the same occurrence collapse onto one row.
func (r *ScheduleExceptionRepository) Save(ctx context.Context, exception *models.ScheduleException) error {
	now := time.Now().UTC()
	exception.UpdatedAt = now
	if exception.ID != "" {
		const update = `UPDATE schedule_exceptions SET is_cancelled = $2, new_date = $3, new_start_time = $4, new_duration_minutes = $5, updated_at = $6
WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, update, exception.ID, exception.IsCancelled, exception.NewDate, exception.NewStartTime, exception.NewDurationMinutes, exception.UpdatedAt); err != nil {
			return fmt.Errorf("update schedule exception: %w", err)
		}
		return nil
	}

	exception.ID = uuid.NewString()
	exception.CreatedAt = now
	const insert = `INSERT INTO schedule_exceptions (id, schedule_id, original_date, original_start_time, is_cancelled, new_date, new_start_time, new_duration_minutes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (schedule_id, original_date, original_start_time)
DO UPDATE SET is_cancelled = EXCLUDED.is_cancelled, new_date = EXCLUDED.new_date, new_start_time = EXCLUDED.new_start_time,
new_duration_minutes = EXCLUDED.new_duration_minutes, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, insert, exception.ID, exception.ScheduleID, exception.OriginalDate, exception.OriginalStartTime,
		exception.IsCancelled, exception.NewDate, exception.NewStartTime, exception.NewDurationMinutes, exception.CreatedAt, exception.UpdatedAt)
	if err := row.Scan(&exception.ID, &exception.CreatedAt); err != nil {
		return fmt.Errorf("insert schedule exception: %w", err)
	}
	return nil
}
