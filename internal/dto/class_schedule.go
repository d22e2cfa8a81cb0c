package dto

import "time"

// ClassScheduleQuery bounds a class-schedule projection. Zero dates take the
// service defaults; a nil MaxCount means no caller cap.
type ClassScheduleQuery struct {
	Start    time.Time
	End      time.Time
	MaxCount *int
}

// ClassScheduleCourse describes one course the student is or was enrolled in.
type ClassScheduleCourse struct {
	CourseID     string  `json:"courseId"`
	Name         string  `json:"name"`
	TeacherName  *string `json:"teacherName"`
	Location     *string `json:"location"`
	Description  *string `json:"description"`
	Status       string  `json:"status"`
	InactiveDate *string `json:"inactiveDate,omitempty"`
}

// ClassScheduleEvent is one projected class session.
type ClassScheduleEvent struct {
	ScheduleID      string    `json:"scheduleId"`
	CourseID        string    `json:"courseId"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationMinutes int       `json:"durationMinutes"`
	Rescheduled     bool      `json:"rescheduled,omitempty"`
	OriginalDate    *string   `json:"originalDate,omitempty"`
}

// ClassScheduleResponse is the projection result.
type ClassScheduleResponse struct {
	Courses []ClassScheduleCourse `json:"courses"`
	Events  []ClassScheduleEvent  `json:"events"`
}
