package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
	"github.com/EduCollab-AI/EduCollab-Backend/pkg/response"
)

// RBAC enforces role-based access control for routes.
func RBAC(allowed ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !lo.Contains(allowed, claims.Role) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// StudentScope rejects requests whose studentId query parameter names a
// student the caller may not access.
func StudentScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if studentID := c.Query("studentId"); studentID != "" && !claims.CanAccessStudent(studentID) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "student not accessible"))
			c.Abort()
			return
		}
		c.Next()
	}
}
