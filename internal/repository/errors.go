package repository

import "errors"

// Outcomes of the transactional enrollment operations that callers branch on.
var (
	ErrEnrollmentExists      = errors.New("enrollment already exists")
	ErrCourseFull            = errors.New("course at maximum capacity")
	ErrEnrollmentNotEnrolled = errors.New("enrollment not in enrolled status")
)
