package models

import (
	"strings"
	"time"
)

// EnrollmentStatusActive is the only status that keeps a course running.
const EnrollmentStatusActive = "active"

// Enrollment links a student to a course.
type Enrollment struct {
	ID            string     `db:"id" json:"id"`
	CourseID      string     `db:"course_id" json:"course_id"`
	StudentID     string     `db:"child_id" json:"student_id"`
	EnrolledAt    *time.Time `db:"enrolled_at" json:"enrolled_at,omitempty"`
	Status        string     `db:"status" json:"status"`
	DeactivatedAt *time.Time `db:"deactivated_at" json:"deactivated_at,omitempty"`
}

// Active reports whether the enrollment is active.
func (e Enrollment) Active() bool {
	return strings.EqualFold(strings.TrimSpace(e.Status), EnrollmentStatusActive)
}
