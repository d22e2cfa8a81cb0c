package handler

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/EduCollab-AI/EduCollab-Backend/internal/middleware"
	"github.com/EduCollab-AI/EduCollab-Backend/internal/recurrence"
	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
)

// canAccessStudent reports whether the caller may act for the student. Routes
// mounted without authentication carry no claims and are not restricted.
func canAccessStudent(c *gin.Context, studentID string) bool {
	claims := middleware.Claims(c)
	return claims == nil || claims.CanAccessStudent(studentID)
}

type windowQuery struct {
	StudentID string
	Start     time.Time
	End       time.Time
	MaxCount  *int
}

// parseWindowQuery reads studentId, startDate, endDate and maximumCount.
// Dates are YYYY-MM-DD; a full timestamp is truncated to its date.
func parseWindowQuery(c *gin.Context) (windowQuery, error) {
	query := windowQuery{StudentID: strings.TrimSpace(c.Query("studentId"))}

	var err error
	if query.Start, err = parseQueryDate(c.Query("startDate")); err != nil {
		return query, appErrors.Clone(appErrors.ErrValidation, "invalid startDate")
	}
	if query.End, err = parseQueryDate(c.Query("endDate")); err != nil {
		return query, appErrors.Clone(appErrors.ErrValidation, "invalid endDate")
	}
	if raw := strings.TrimSpace(c.Query("maximumCount")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return query, appErrors.Clone(appErrors.ErrValidation, "invalid maximumCount")
		}
		query.MaxCount = &n
	}
	return query, nil
}

func parseQueryDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return recurrence.DateOf(t), nil
	}
	return recurrence.ParseDate(raw)
}
