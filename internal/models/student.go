package models

import "time"

// StudentStatus is the administrative standing of a student.
type StudentStatus string

// Possible student statuses.
const (
	StudentStatusActive    StudentStatus = "Active"
	StudentStatusInactive  StudentStatus = "Inactive"
	StudentStatusGraduated StudentStatus = "Graduated"
	StudentStatusSuspended StudentStatus = "Suspended"
	StudentStatusOnLeave   StudentStatus = "On Leave"
)

// Genders accepted by the store.
var Genders = []string{"Male", "Female", "Other", "Prefer not to say"}

// Student is a registered learner. GPA is derived from completed enrollments and never set directly.
type Student struct {
	ID             int64         `db:"student_id" json:"student_id"`
	Code           string        `db:"student_code" json:"student_code"`
	FirstName      string        `db:"first_name" json:"first_name"`
	LastName       string        `db:"last_name" json:"last_name"`
	Email          string        `db:"email" json:"email"`
	DateOfBirth    *time.Time    `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender         *string       `db:"gender" json:"gender,omitempty"`
	Phone          *string       `db:"phone" json:"phone,omitempty"`
	DepartmentID   *int64        `db:"department_id" json:"department_id,omitempty"`
	EnrollmentDate time.Time     `db:"enrollment_date" json:"enrollment_date"`
	GraduationYear *int          `db:"graduation_year" json:"graduation_year,omitempty"`
	GPA            *float64      `db:"gpa" json:"gpa"`
	Status         StudentStatus `db:"status" json:"status"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentDetail adds the department labels joined from departments.
type StudentDetail struct {
	Student
	DepartmentCode *string `db:"department_code" json:"department_code,omitempty"`
	DepartmentName *string `db:"department_name" json:"department_name,omitempty"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Status         StudentStatus
	DepartmentCode string
	Page           int
	PageSize       int
}
