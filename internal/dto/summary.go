package dto

import "github.com/shopspring/decimal"

// CourseSummary aggregates hours and payments for one course.
type CourseSummary struct {
	CourseID        string          `json:"courseId"`
	CourseName      string          `json:"courseName"`
	TotalPaidAmount decimal.Decimal `json:"totalPaidAmount"`
	HoursTaken      decimal.Decimal `json:"hoursTaken"`
	PendingHours    decimal.Decimal `json:"pendingHours"`
}

// StudentSummaryResponse is the per-student summary as of SummaryDate.
type StudentSummaryResponse struct {
	StudentID   string          `json:"studentId"`
	SummaryDate string          `json:"summaryDate"`
	Courses     []CourseSummary `json:"courses"`
}

// SummaryExport is a rendered summary document.
type SummaryExport struct {
	Filename    string
	ContentType string
	Content     []byte
}
