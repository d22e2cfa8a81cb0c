package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
)

const paymentEventColumns = `id, student_id, payment_schedule_id, course_id, item, amount, due_date, paid_date, status, note, created_at, updated_at`

// InsertResult reports the outcome of an insert-or-ignore batch.
type InsertResult struct {
	Inserted  int
	Conflicts int
}

// PaymentEventRepository persists materialized payment events.
type PaymentEventRepository struct {
	db *sqlx.DB
}

// NewPaymentEventRepository constructs a PaymentEventRepository.
func NewPaymentEventRepository(db *sqlx.DB) *PaymentEventRepository {
	return &PaymentEventRepository{db: db}
}

// ListByStudentInRange returns events with due dates in [from, to] ascending.
func (r *PaymentEventRepository) ListByStudentInRange(ctx context.Context, studentID string, from, to time.Time) ([]models.PaymentEvent, error) {
	query := `SELECT ` + paymentEventColumns + ` FROM payment_events
WHERE student_id = $1 AND due_date BETWEEN $2 AND $3 ORDER BY due_date ASC, payment_schedule_id ASC`
	var events []models.PaymentEvent
	if err := r.db.SelectContext(ctx, &events, query, studentID, from, to); err != nil {
		return nil, fmt.Errorf("list payment events: %w", err)
	}
	return events, nil
}

// ListKeysByStudent returns the natural keys of every event of the student.
func (r *PaymentEventRepository) ListKeysByStudent(ctx context.Context, studentID string) ([]models.PaymentEventKey, error) {
	const query = `SELECT payment_schedule_id, due_date FROM payment_events WHERE student_id = $1`
	rows, err := r.db.QueryxContext(ctx, query, studentID)
	if err != nil {
		return nil, fmt.Errorf("list payment event keys: %w", err)
	}
	defer rows.Close()

	keys := make([]models.PaymentEventKey, 0)
	for rows.Next() {
		var event models.PaymentEvent
		if err := rows.Scan(&event.PaymentScheduleID, &event.DueDate); err != nil {
			return nil, fmt.Errorf("scan payment event key: %w", err)
		}
		keys = append(keys, event.Key())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payment event keys: %w", err)
	}
	return keys, nil
}

// ExistsByKey checks storage for an event with the natural key.
func (r *PaymentEventRepository) ExistsByKey(ctx context.Context, studentID string, key models.PaymentEventKey) (bool, error) {
	const query = `SELECT 1 FROM payment_events WHERE student_id = $1 AND payment_schedule_id = $2 AND due_date = $3 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, key.ScheduleID, key.DueDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check payment event: %w", err)
	}
	return true, nil
}

// InsertIgnoreConflicts inserts the batch in one transaction. Rows that collide
// with the (student, schedule, due date) constraint are skipped and counted.
func (r *PaymentEventRepository) InsertIgnoreConflicts(ctx context.Context, events []models.PaymentEvent) (InsertResult, error) {
	var result InsertResult
	if len(events) == 0 {
		return result, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin payment event batch: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			tx.Rollback()
		}
	}()

	const query = `INSERT INTO payment_events (id, student_id, payment_schedule_id, course_id, item, amount, due_date, status, note, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (student_id, payment_schedule_id, due_date) DO NOTHING RETURNING id`
	now := time.Now().UTC()
	for i := range events {
		ev := &events[i]
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		if ev.Status == "" {
			ev.Status = models.PaymentStatusPending
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = now
		}
		ev.UpdatedAt = now
		var insertedID string
		err := tx.QueryRowxContext(ctx, query, ev.ID, ev.StudentID, ev.PaymentScheduleID, ev.CourseID, ev.Item, ev.Amount,
			ev.DueDate, ev.Status, ev.Note, ev.CreatedAt, ev.UpdatedAt).Scan(&insertedID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				result.Conflicts++
				continue
			}
			return InsertResult{}, fmt.Errorf("insert payment event: %w", err)
		}
		result.Inserted++
	}
	if err := tx.Commit(); err != nil {
		return InsertResult{}, fmt.Errorf("commit payment event batch: %w", err)
	}
	commit = true
	return result, nil
}

// FindByID fetches one event.
func (r *PaymentEventRepository) FindByID(ctx context.Context, id string) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	if err := r.db.GetContext(ctx, &event, `SELECT `+paymentEventColumns+` FROM payment_events WHERE id = $1`, id); err != nil {
		return nil, err
	}
	return &event, nil
}

// MarkPaid moves a pending event to paid. It reports false when the event was not pending.
func (r *PaymentEventRepository) MarkPaid(ctx context.Context, id string, paidDate time.Time) (bool, error) {
	const query = `UPDATE payment_events SET status = $2, paid_date = $3, updated_at = $4 WHERE id = $1 AND status = $5`
	res, err := r.db.ExecContext(ctx, query, id, models.PaymentStatusPaid, paidDate, time.Now().UTC(), models.PaymentStatusPending)
	if err != nil {
		return false, fmt.Errorf("mark payment event paid: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark payment event paid: %w", err)
	}
	return affected == 1, nil
}

// ListPaidBefore returns paid events of the student due strictly before the date.
func (r *PaymentEventRepository) ListPaidBefore(ctx context.Context, studentID string, before time.Time) ([]models.PaymentEvent, error) {
	query := `SELECT ` + paymentEventColumns + ` FROM payment_events
WHERE student_id = $1 AND status = $2 AND due_date < $3 ORDER BY due_date ASC`
	var events []models.PaymentEvent
	if err := r.db.SelectContext(ctx, &events, query, studentID, models.PaymentStatusPaid, before); err != nil {
		return nil, fmt.Errorf("list paid payment events: %w", err)
	}
	return events, nil
}

// DeleteFutureBySchedule removes events of the schedule due strictly after the date.
func (r *PaymentEventRepository) DeleteFutureBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string, after time.Time) (int64, error) {
	res, err := pick(r.db, exec).ExecContext(ctx, `DELETE FROM payment_events WHERE payment_schedule_id = $1 AND due_date > $2`, scheduleID, after)
	if err != nil {
		return 0, fmt.Errorf("delete future payment events: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete future payment events: %w", err)
	}
	return affected, nil
}

// Delete removes one event.
func (r *PaymentEventRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM payment_events WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete payment event: %w", err)
	}
	return nil
}
