package models

import "time"

// Student is a learner whose enrollments and billing are tracked.
type Student struct {
	ID                 string     `db:"id" json:"id"`
	Name               string     `db:"name" json:"name"`
	InstitutionID      *string    `db:"institution_id" json:"institution_id,omitempty"`
	ParentEmail        *string    `db:"parent_email" json:"parent_email,omitempty"`
	ParentPhone        *string    `db:"parent_phone" json:"parent_phone,omitempty"`
	BirthDate          *time.Time `db:"birthdate" json:"birthdate,omitempty"`
	AssociatedParentID *string    `db:"associated_parent_id" json:"associated_parent_id,omitempty"`
	IsAssociated       bool       `db:"is_associated" json:"is_associated"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}
