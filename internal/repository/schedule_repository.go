package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
)

const scheduleColumns = `id, course_id, day_of_week, start_time, start_date, duration_minutes, recurrence_rule, created_at, updated_at`

// ScheduleRepository reads course schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a ScheduleRepository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// FindByID fetches one schedule.
func (r *ScheduleRepository) FindByID(ctx context.Context, id string) (*models.Schedule, error) {
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// ListByCourseIDs returns schedules of the given courses ordered by course then ID.
func (r *ScheduleRepository) ListByCourseIDs(ctx context.Context, courseIDs []string) ([]models.Schedule, error) {
	if len(courseIDs) == 0 {
		return []models.Schedule{}, nil
	}
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE course_id = ANY($1) ORDER BY course_id, id`
	var schedules []models.Schedule
	if err := r.db.SelectContext(ctx, &schedules, query, pq.Array(courseIDs)); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return schedules, nil
}
