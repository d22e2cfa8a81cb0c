package models

import "time"

// Course is a tutoring course with a finite number of sessions.
type Course struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Code          *string   `db:"code" json:"code,omitempty"`
	Description   *string   `db:"description" json:"description,omitempty"`
	TeacherName   *string   `db:"teacher_name" json:"teacher_name,omitempty"`
	MaxStudents   *int      `db:"max_students" json:"max_students,omitempty"`
	TotalSessions int       `db:"total_sessions" json:"total_sessions"`
	Location      *string   `db:"location" json:"location,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CourseStatus is the status a course shows to one student.
type CourseStatus string

const (
	CourseStatusActive   CourseStatus = "active"
	CourseStatusInactive CourseStatus = "inactive"
)
