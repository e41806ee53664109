package models

import "time"

// Semesters accepted by the store.
var Semesters = []string{"Fall", "Spring", "Summer", "Winter"}

// Course is one offering of a subject in a semester.
type Course struct {
	ID            int64     `db:"course_id" json:"course_id"`
	Code          string    `db:"course_code" json:"course_code"`
	Name          string    `db:"course_name" json:"course_name"`
	Description   *string   `db:"description" json:"description,omitempty"`
	Credits       int       `db:"credits" json:"credits"`
	DepartmentID  *int64    `db:"department_id" json:"department_id,omitempty"`
	Instructor    *string   `db:"instructor" json:"instructor,omitempty"`
	MaxEnrollment int       `db:"max_enrollment" json:"max_enrollment"`
	Semester      string    `db:"semester" json:"semester"`
	AcademicYear  int       `db:"academic_year" json:"academic_year"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail adds department labels and the current seat usage.
type CourseDetail struct {
	Course
	DepartmentCode *string `db:"department_code" json:"department_code,omitempty"`
	EnrolledCount  int     `db:"enrolled_count" json:"enrolled_count"`
	SeatsRemaining int     `db:"seats_remaining" json:"seats_remaining"`
}

// CourseFilter narrows course listings.
type CourseFilter struct {
	DepartmentCode string
	ActiveOnly     bool
	Page           int
	PageSize       int
}
