package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "Enrolled"
	EnrollmentStatusCompleted EnrollmentStatus = "Completed"
	EnrollmentStatusDropped   EnrollmentStatus = "Dropped"
	EnrollmentStatusWithdrawn EnrollmentStatus = "Withdrawn"
	EnrollmentStatusFailed    EnrollmentStatus = "Failed"
)

// Blocking reports whether a row in this status prevents enrolling the same pair again.
func (s EnrollmentStatus) Blocking() bool {
	return s == EnrollmentStatusEnrolled || s == EnrollmentStatusCompleted
}

// Enrollment links one student to one course; the pair is unique.
type Enrollment struct {
	ID             int64            `db:"enrollment_id" json:"enrollment_id"`
	StudentID      int64            `db:"student_id" json:"student_id"`
	CourseID       int64            `db:"course_id" json:"course_id"`
	EnrollmentDate time.Time        `db:"enrollment_date" json:"enrollment_date"`
	Grade          *string          `db:"grade" json:"grade,omitempty"`
	GradePoints    *float64         `db:"grade_points" json:"grade_points,omitempty"`
	Status         EnrollmentStatus `db:"status" json:"status"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updated_at"`
}
