package models

import "time"

// Department is an academic department referenced by students and courses.
type Department struct {
	ID               int64     `db:"department_id" json:"department_id"`
	Code             string    `db:"department_code" json:"department_code"`
	Name             string    `db:"department_name" json:"department_name"`
	HeadOfDepartment *string   `db:"head_of_department" json:"head_of_department,omitempty"`
	EstablishedYear  *int      `db:"established_year" json:"established_year,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}
