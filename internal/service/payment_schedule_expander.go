package service

import (
	"time"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
)

// ExpandPaymentSchedule returns the due dates of the schedule in
// [max(from, schedule start), to], honouring the rule's interval.
func ExpandPaymentSchedule(schedule models.PaymentSchedule, rule recurrence.Rule, from, to time.Time) []time.Time {
	anchor := recurrence.DateOf(schedule.StartDate)
	return rule.Expand(anchor, recurrence.MaxDate(anchor, recurrence.DateOf(from)), recurrence.DateOf(to), recurrence.Unbounded)
}

// billingRule parses the schedule's billing descriptor.
func billingRule(schedule models.PaymentSchedule, legacy bool) (recurrence.Rule, error) {
	return recurrence.ParseBilling(schedule.BillingRRule, recurrence.DateOf(schedule.StartDate), recurrence.ParseOptions{LegacyFallback: legacy})
}
