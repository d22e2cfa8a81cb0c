package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status labels exposed to clients.
const (
	PaymentLabelPaid   = "PAID"
	PaymentLabelUnpaid = "UNPAID"
)

// PaymentEventQuery bounds a payment materialization.
type PaymentEventQuery struct {
	Start    time.Time
	End      time.Time
	MaxCount *int
}

// PaymentScheduleItem is a billing rule as returned to clients.
type PaymentScheduleItem struct {
	PaymentScheduleID string           `json:"paymentScheduleId"`
	CourseID          *string          `json:"courseId,omitempty"`
	BillingRRule      string           `json:"billingRrule"`
	Amount            *decimal.Decimal `json:"amount"`
	StartDate         string           `json:"startDate"`
	Item              *string          `json:"item"`
	Note              *string          `json:"note"`
}

// PaymentEventItem is a payment event as returned to clients.
type PaymentEventItem struct {
	PaymentEventID    string           `json:"paymentEventId"`
	PaymentScheduleID string           `json:"paymentScheduleId"`
	CourseID          *string          `json:"courseId,omitempty"`
	Item              *string          `json:"item"`
	Amount            *decimal.Decimal `json:"amount"`
	Status            string           `json:"status"`
	RawStatus         string           `json:"rawStatus"`
	DueDate           string           `json:"dueDate"`
	PaidDate          *string          `json:"paidDate"`
	Note              *string          `json:"note"`
}

// PaymentEventsResponse lists the student's billing rules and the events in the window.
type PaymentEventsResponse struct {
	Schedules []PaymentScheduleItem `json:"schedules"`
	Events    []PaymentEventItem    `json:"events"`
}

// UpdatePaymentStatusRequest is the body of a status change.
type UpdatePaymentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// DeletePaymentScheduleResponse reports what a schedule deletion removed.
type DeletePaymentScheduleResponse struct {
	Success             bool   `json:"success"`
	PaymentScheduleID   string `json:"paymentScheduleId"`
	FutureEventsDeleted int64  `json:"futureEventsDeleted"`
}

// DeletePaymentEventResponse acknowledges an event deletion.
type DeletePaymentEventResponse struct {
	Success        bool   `json:"success"`
	PaymentEventID string `json:"paymentEventId"`
}
