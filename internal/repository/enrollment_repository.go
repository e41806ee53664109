package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-records-api/internal/models"
)

const enrollmentColumns = `enrollment_id, student_id, course_id, enrollment_date, grade, grade_points, status, created_at, updated_at`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// FindByPair returns the enrollment of a student in a course or sql.ErrNoRows.
func (r *EnrollmentRepository) FindByPair(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE student_id = $1 AND course_id = $2`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, courseID); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// Enroll places the student in the course. The course row is locked for the
// whole transaction, so concurrent enrollments into one course are serialised
// and the seat count read below cannot go stale before the insert.
//
// A previous Dropped, Withdrawn or Failed row for the pair is reactivated
// rather than duplicated.
func (r *EnrollmentRepository) Enroll(ctx context.Context, studentID, courseID int64) (enrollment *models.Enrollment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin enrollment transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var capacity int
	if err = tx.GetContext(ctx, &capacity, `SELECT max_enrollment FROM courses WHERE course_id = $1 FOR UPDATE`, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock course: %w", err)
	}

	var existing struct {
		ID     int64                   `db:"enrollment_id"`
		Status models.EnrollmentStatus `db:"status"`
	}
	hasExisting := true
	if err = tx.GetContext(ctx, &existing, `SELECT enrollment_id, status FROM enrollments WHERE student_id = $1 AND course_id = $2 FOR UPDATE`, studentID, courseID); err != nil {
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("lock existing enrollment: %w", err)
		}
		hasExisting = false
		err = nil
	}
	if hasExisting && existing.Status.Blocking() {
		err = ErrEnrollmentExists
		return nil, err
	}

	var enrolled int
	if err = tx.GetContext(ctx, &enrolled, `SELECT COUNT(*) FROM enrollments WHERE course_id = $1 AND status = $2`, courseID, models.EnrollmentStatusEnrolled); err != nil {
		return nil, fmt.Errorf("count enrolled seats: %w", err)
	}
	if enrolled >= capacity {
		err = ErrCourseFull
		return nil, err
	}

	var created models.Enrollment
	if hasExisting {
		const reactivate = `UPDATE enrollments SET status = $2, enrollment_date = CURRENT_DATE, grade = NULL, grade_points = NULL, updated_at = NOW()
        WHERE enrollment_id = $1 RETURNING ` + enrollmentColumns
		if err = tx.GetContext(ctx, &created, reactivate, existing.ID, models.EnrollmentStatusEnrolled); err != nil {
			return nil, fmt.Errorf("reactivate enrollment: %w", err)
		}
	} else {
		const insert = `INSERT INTO enrollments (student_id, course_id, status) VALUES ($1, $2, $3) RETURNING ` + enrollmentColumns
		if err = tx.GetContext(ctx, &created, insert, studentID, courseID, models.EnrollmentStatusEnrolled); err != nil {
			return nil, fmt.Errorf("insert enrollment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit enrollment: %w", err)
	}
	return &created, nil
}

// Drop moves an Enrolled row to Dropped. It returns sql.ErrNoRows when the pair
// has no enrollment and ErrEnrollmentNotEnrolled when the row is in another status.
func (r *EnrollmentRepository) Drop(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error) {
	const query = `UPDATE enrollments SET status = $3, updated_at = NOW()
        WHERE student_id = $1 AND course_id = $2 AND status = $4 RETURNING ` + enrollmentColumns
	var dropped models.Enrollment
	err := r.db.GetContext(ctx, &dropped, query, studentID, courseID, models.EnrollmentStatusDropped, models.EnrollmentStatusEnrolled)
	if err == nil {
		return &dropped, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("drop enrollment: %w", err)
	}
	if _, findErr := r.FindByPair(ctx, studentID, courseID); findErr != nil {
		return nil, findErr
	}
	return nil, ErrEnrollmentNotEnrolled
}

// GradeParams describes a grade to record on a student's enrollment in a course.
type GradeParams struct {
	StudentID   int64
	CourseID    int64
	Grade       string
	GradePoints *float64
}

// RecordGrade marks the enrollment Completed with the grade and recomputes the
// student's GPA in the same transaction. The student row is locked first so that
// concurrent gradings of one student recompute against each other's results.
// It returns sql.ErrNoRows when the enrollment does not exist.
func (r *EnrollmentRepository) RecordGrade(ctx context.Context, params GradeParams) (gpa *float64, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin grade transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var locked int64
	if err = tx.GetContext(ctx, &locked, `SELECT student_id FROM students WHERE student_id = $1 FOR UPDATE`, params.StudentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock student: %w", err)
	}

	var enrollmentID int64
	if err = tx.GetContext(ctx, &enrollmentID, `SELECT enrollment_id FROM enrollments WHERE student_id = $1 AND course_id = $2 FOR UPDATE`, params.StudentID, params.CourseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock enrollment: %w", err)
	}

	const updateEnrollment = `UPDATE enrollments SET grade = $2, grade_points = $3, status = $4, updated_at = NOW() WHERE enrollment_id = $1`
	if _, err = tx.ExecContext(ctx, updateEnrollment, enrollmentID, params.Grade, params.GradePoints, models.EnrollmentStatusCompleted); err != nil {
		return nil, fmt.Errorf("update enrollment grade: %w", err)
	}

	const recompute = `UPDATE students SET gpa = (
            SELECT ROUND(AVG(grade_points), 2) FROM enrollments
            WHERE student_id = $1 AND status = $2 AND grade_points IS NOT NULL
        ), updated_at = NOW()
        WHERE student_id = $1 RETURNING gpa`
	if err = tx.GetContext(ctx, &gpa, recompute, params.StudentID, models.EnrollmentStatusCompleted); err != nil {
		return nil, fmt.Errorf("recompute gpa: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit grade: %w", err)
	}
	return gpa, nil
}
