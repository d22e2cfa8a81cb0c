package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the lifecycle state of a payment event.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusOverdue   PaymentStatus = "overdue"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// Valid reports whether the status is known.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusOverdue, PaymentStatusCancelled:
		return true
	}
	return false
}

// PaymentSchedule is a recurring billing rule for one student.
type PaymentSchedule struct {
	ID           string              `db:"id" json:"id"`
	StudentID    string              `db:"student_id" json:"student_id"`
	CourseID     *string             `db:"course_id" json:"course_id,omitempty"`
	BillingRRule string              `db:"billing_rrule" json:"billing_rrule"`
	Amount       decimal.NullDecimal `db:"amount" json:"amount"`
	StartDate    time.Time           `db:"start_date" json:"start_date"`
	Item         *string             `db:"item" json:"item,omitempty"`
	Note         *string             `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updated_at"`
}

// PaymentEvent is one materialized due date of a payment schedule.
type PaymentEvent struct {
	ID                string              `db:"id" json:"id"`
	StudentID         string              `db:"student_id" json:"student_id"`
	PaymentScheduleID string              `db:"payment_schedule_id" json:"payment_schedule_id"`
	CourseID          *string             `db:"course_id" json:"course_id,omitempty"`
	Item              *string             `db:"item" json:"item,omitempty"`
	Amount            decimal.NullDecimal `db:"amount" json:"amount"`
	DueDate           time.Time           `db:"due_date" json:"due_date"`
	PaidDate          *time.Time          `db:"paid_date" json:"paid_date,omitempty"`
	Status            PaymentStatus       `db:"status" json:"status"`
	Note              *string             `db:"note" json:"note,omitempty"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}

// PaymentEventKey is the natural key of a payment event within one student.
type PaymentEventKey struct {
	ScheduleID string
	DueDate    time.Time
}

// Key returns the natural key of the event.
func (e PaymentEvent) Key() PaymentEventKey {
	y, m, d := e.DueDate.Date()
	return PaymentEventKey{ScheduleID: e.PaymentScheduleID, DueDate: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}
