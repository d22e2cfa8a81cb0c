package service

import (
	"strings"
	"time"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
)

// CourseLifecycle is the state of a course for one student.
type CourseLifecycle struct {
	Status string
	// InactiveDate is the last day events are projected; nil while active.
	InactiveDate *time.Time
}

// Active reports whether the course is still running for the student.
func (l CourseLifecycle) Active() bool {
	return l.InactiveDate == nil
}

// buildLifecycles folds enrollments into one lifecycle per course. Any active
// enrollment pins the course active regardless of order; otherwise the earliest
// deactivation wins and a missing deactivation date counts as today.
func buildLifecycles(enrollments []models.Enrollment, today time.Time) map[string]CourseLifecycle {
	active := make(map[string]bool)
	lifecycles := make(map[string]CourseLifecycle)
	for _, enrollment := range enrollments {
		if enrollment.CourseID == "" {
			continue
		}
		if enrollment.Active() || strings.TrimSpace(enrollment.Status) == "" {
			active[enrollment.CourseID] = true
			lifecycles[enrollment.CourseID] = CourseLifecycle{Status: models.EnrollmentStatusActive}
			continue
		}
		if active[enrollment.CourseID] {
			continue
		}

		deactivated := recurrence.DateOf(today)
		if enrollment.DeactivatedAt != nil {
			deactivated = recurrence.DateOf(*enrollment.DeactivatedAt)
		}
		current, seen := lifecycles[enrollment.CourseID]
		if !seen {
			current.Status = strings.ToLower(strings.TrimSpace(enrollment.Status))
		}
		if current.InactiveDate == nil || deactivated.Before(*current.InactiveDate) {
			current.InactiveDate = &deactivated
		}
		lifecycles[enrollment.CourseID] = current
	}
	return lifecycles
}

// bound returns the expansion upper bound for the window, or false when the
// course went inactive before the effective start.
func (l CourseLifecycle) bound(effectiveStart, windowEnd time.Time) (time.Time, bool) {
	if l.InactiveDate == nil {
		return windowEnd, true
	}
	if l.InactiveDate.Before(effectiveStart) {
		return time.Time{}, false
	}
	return recurrence.MinDate(windowEnd, *l.InactiveDate), true
}
