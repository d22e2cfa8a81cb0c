package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
)

const paymentScheduleColumns = `id, student_id, course_id, billing_rrule, amount, start_date, item, note, created_at, updated_at`

// PaymentScheduleRepository persists billing rules.
type PaymentScheduleRepository struct {
	db *sqlx.DB
}

// NewPaymentScheduleRepository constructs a PaymentScheduleRepository.
func NewPaymentScheduleRepository(db *sqlx.DB) *PaymentScheduleRepository {
	return &PaymentScheduleRepository{db: db}
}

// ListByStudent returns the student's billing rules ordered by ID.
func (r *PaymentScheduleRepository) ListByStudent(ctx context.Context, studentID string) ([]models.PaymentSchedule, error) {
	query := `SELECT ` + paymentScheduleColumns + ` FROM payment_schedules WHERE student_id = $1 ORDER BY id`
	var schedules []models.PaymentSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, studentID); err != nil {
		return nil, fmt.Errorf("list payment schedules: %w", err)
	}
	return schedules, nil
}

// FindByID fetches one billing rule.
func (r *PaymentScheduleRepository) FindByID(ctx context.Context, id string) (*models.PaymentSchedule, error) {
	var schedule models.PaymentSchedule
	if err := r.db.GetContext(ctx, &schedule, `SELECT `+paymentScheduleColumns+` FROM payment_schedules WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Create inserts a billing rule.
func (r *PaymentScheduleRepository) Create(ctx context.Context, schedule *models.PaymentSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
	const query = `INSERT INTO payment_schedules (id, student_id, course_id, billing_rrule, amount, start_date, item, note, created_at, updated_at)
VALUES (:id, :student_id, :course_id, :billing_rrule, :amount, :start_date, :item, :note, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create payment schedule: %w", err)
	}
	return nil
}

// Delete removes a billing rule, optionally inside a transaction.
func (r *PaymentScheduleRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := pick(r.db, exec).ExecContext(ctx, `DELETE FROM payment_schedules WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete payment schedule: %w", err)
	}
	return nil
}
