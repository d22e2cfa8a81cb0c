package dto

import "github.com/shopspring/decimal"

// CreateBillingRuleRequest creates a recurring payment schedule for a student.
type CreateBillingRuleRequest struct {
	StudentID    string           `json:"studentId" validate:"required,uuid"`
	CourseID     *string          `json:"courseId" validate:"omitempty,uuid"`
	BillingRRule string           `json:"billingRrule" validate:"required"`
	Amount       *decimal.Decimal `json:"amount" validate:"required"`
	StartDate    string           `json:"startDate" validate:"required"`
	Item         *string          `json:"item" validate:"omitempty,max=255"`
	Note         *string          `json:"note"`
}

// BillingRuleResponse is the stored billing rule.
type BillingRuleResponse struct {
	ScheduleID   string          `json:"scheduleId"`
	BillingRule  string          `json:"billingRule"`
	StartDate    string          `json:"startDate"`
	Amount       decimal.Decimal `json:"amount"`
	Item         *string         `json:"item,omitempty"`
	Note         *string         `json:"note,omitempty"`
	CourseID     *string         `json:"courseId,omitempty"`
	WarmupQueued bool            `json:"warmupQueued"`
}
