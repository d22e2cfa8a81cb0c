package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
)

// EnrollmentRepository reads course enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListByStudent returns every enrollment of the student, active or not.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	const query = `SELECT id, course_id, child_id, enrolled_at, status, deactivated_at
FROM course_enrollments WHERE child_id = $1 ORDER BY course_id, id`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}
