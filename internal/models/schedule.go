package models

import (
	"time"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
)

// Schedule is one weekly slot of a course.
type Schedule struct {
	ID              string               `db:"id" json:"id"`
	CourseID        string               `db:"course_id" json:"course_id"`
	DayOfWeek       string               `db:"day_of_week" json:"day_of_week"`
	StartTime       recurrence.TimeOfDay `db:"start_time" json:"start_time"`
	StartDate       time.Time            `db:"start_date" json:"start_date"`
	DurationMinutes int                  `db:"duration_minutes" json:"duration_minutes"`
	RecurrenceRule  *string              `db:"recurrence_rule" json:"recurrence_rule,omitempty"`
	CreatedAt       time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time            `db:"updated_at" json:"updated_at"`
}

// Rule returns the recurrence descriptor, empty when unset.
func (s Schedule) Rule() string {
	if s.RecurrenceRule == nil {
		return ""
	}
	return *s.RecurrenceRule
}

// ScheduleException overrides a single occurrence of a schedule.
type ScheduleException struct {
	ID                 string                `db:"id" json:"id"`
	ScheduleID         string                `db:"schedule_id" json:"schedule_id"`
	OriginalDate       time.Time             `db:"original_date" json:"original_date"`
	OriginalStartTime  recurrence.TimeOfDay  `db:"original_start_time" json:"original_start_time"`
	IsCancelled        bool                  `db:"is_cancelled" json:"is_cancelled"`
	NewDate            *time.Time            `db:"new_date" json:"new_date,omitempty"`
	NewStartTime       *recurrence.TimeOfDay `db:"new_start_time" json:"new_start_time,omitempty"`
	NewDurationMinutes *int                  `db:"new_duration_minutes" json:"new_duration_minutes,omitempty"`
	CreatedAt          time.Time             `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time             `db:"updated_at" json:"updated_at"`
}

// OccurrenceKey identifies one raw occurrence of a schedule.
type OccurrenceKey struct {
	Date  time.Time
	Start recurrence.TimeOfDay
}

// Key returns the occurrence the exception applies to.
func (e ScheduleException) Key() OccurrenceKey {
	return OccurrenceKey{Date: recurrence.DateOf(e.OriginalDate), Start: e.OriginalStartTime}
}

// ClassEvent is one projected class session.
type ClassEvent struct {
	ScheduleID      string
	CourseID        string
	Start           time.Time
	End             time.Time
	DurationMinutes int
	Rescheduled     bool
	OriginalDate    time.Time
}
