package dto

// CreateScheduleExceptionRequest overrides one occurrence of a schedule. Dates
// are YYYY-MM-DD and times HH:MM[:SS]; empty strings mean "unchanged".
type CreateScheduleExceptionRequest struct {
	ScheduleID         string `json:"schedule_id" validate:"required,uuid"`
	OriginalDate       string `json:"original_date"`
	OriginalStartTime  string `json:"original_start_time"`
	IsCancelled        *bool  `json:"is_cancelled"`
	NewDate            string `json:"new_date"`
	NewStartTime       string `json:"new_start_time"`
	NewDurationMinutes *int   `json:"new_duration_minutes" validate:"omitempty,min=1"`
}

// ScheduleExceptionResponse is the stored exception.
type ScheduleExceptionResponse struct {
	ScheduleExceptionID string  `json:"scheduleExceptionId"`
	ScheduleID          string  `json:"scheduleId"`
	OriginalDate        string  `json:"originalDate"`
	OriginalStartTime   string  `json:"originalStartTime"`
	IsCancelled         bool    `json:"isCancelled"`
	NewDate             *string `json:"newDate"`
	NewStartTime        *string `json:"newStartTime"`
	NewDurationMinutes  *int    `json:"newDurationMinutes"`
}
