package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/samber/lo"
)

// Roles carried in access tokens.
const (
	RoleAdmin   = "ADMIN"
	RoleTeacher = "TEACHER"
	RoleParent  = "PARENT"
)

// JWTClaims are the access token claims issued by the identity provider.
type JWTClaims struct {
	Role       string   `json:"role"`
	StudentIDs []string `json:"student_ids,omitempty"`
	jwt.RegisteredClaims
}

// CanAccessStudent reports whether the caller may read or change the student's data.
// Parents are limited to the students listed in their token.
func (c *JWTClaims) CanAccessStudent(studentID string) bool {
	if c == nil {
		return false
	}
	if c.Role != RoleParent {
		return true
	}
	return lo.Contains(c.StudentIDs, studentID)
}
