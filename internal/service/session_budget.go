package service

import (
	"sort"
	"time"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
)

// Allocate splits a course's sessions across its schedules. Each schedule gets
// totalSessions/N; unless floor is set, the first totalSessions%N schedules in
// id order get one more so the allocations add up to totalSessions.
func Allocate(totalSessions int, scheduleIDs []string, floor bool) map[string]int {
	allocation := make(map[string]int, len(scheduleIDs))
	if len(scheduleIDs) == 0 {
		return allocation
	}
	ids := append([]string(nil), scheduleIDs...)
	sort.Strings(ids)

	if totalSessions < 0 {
		totalSessions = 0
	}
	base := totalSessions / len(ids)
	extra := totalSessions % len(ids)
	for i, id := range ids {
		allocation[id] = base
		if !floor && i < extra {
			allocation[id]++
		}
	}
	return allocation
}

// remainingSessions is the allocation minus the occurrences already held
// between the anchor and the effective start.
func remainingSessions(rule recurrence.Rule, anchor, effectiveStart time.Time, allocation int) int {
	remaining := allocation - rule.CountBefore(anchor, effectiveStart)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// sessionCap bounds the expansion by the remaining budget and the caller's limit.
func sessionCap(remaining int, maxCount *int) int {
	if maxCount != nil && *maxCount < remaining {
		if *maxCount < 0 {
			return 0
		}
		return *maxCount
	}
	return remaining
}
