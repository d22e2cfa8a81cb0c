package service

import (
	"time"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/models"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
)

// overlayOutcome tells what an exception did to a raw occurrence.
type overlayOutcome int

const (
	occurrenceKept overlayOutcome = iota
	occurrenceCancelled
	occurrenceRescheduled
)

// exceptionOverlay indexes exceptions by schedule and original occurrence.
type exceptionOverlay map[string]map[models.OccurrenceKey]models.ScheduleException

func newExceptionOverlay(exceptions []models.ScheduleException) exceptionOverlay {
	overlay := make(exceptionOverlay)
	for _, exception := range exceptions {
		bySchedule, ok := overlay[exception.ScheduleID]
		if !ok {
			bySchedule = make(map[models.OccurrenceKey]models.ScheduleException)
			overlay[exception.ScheduleID] = bySchedule
		}
		bySchedule[exception.Key()] = exception
	}
	return overlay
}

// apply turns a raw occurrence of the schedule into at most one event.
func (o exceptionOverlay) apply(schedule models.Schedule, date time.Time) (models.ClassEvent, overlayOutcome) {
	event := models.ClassEvent{
		ScheduleID:      schedule.ID,
		CourseID:        schedule.CourseID,
		Start:           schedule.StartTime.On(date),
		DurationMinutes: schedule.DurationMinutes,
	}
	event.End = event.Start.Add(time.Duration(event.DurationMinutes) * time.Minute)

	key := models.OccurrenceKey{Date: recurrence.DateOf(date), Start: schedule.StartTime}
	exception, ok := o[schedule.ID][key]
	if !ok {
		return event, occurrenceKept
	}
	if exception.IsCancelled {
		return models.ClassEvent{}, occurrenceCancelled
	}

	newDate := key.Date
	if exception.NewDate != nil {
		newDate = recurrence.DateOf(*exception.NewDate)
	}
	newStart := key.Start
	if exception.NewStartTime != nil {
		newStart = *exception.NewStartTime
	}
	if exception.NewDurationMinutes != nil {
		event.DurationMinutes = *exception.NewDurationMinutes
	}
	event.Start = newStart.On(newDate)
	event.End = event.Start.Add(time.Duration(event.DurationMinutes) * time.Minute)
	event.Rescheduled = true
	event.OriginalDate = key.Date
	return event, occurrenceRescheduled
}
