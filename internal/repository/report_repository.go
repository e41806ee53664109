package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-records-api/internal/models"
)

// ReportRepository runs the read-only aggregate queries behind transcripts and department statistics.
type ReportRepository struct {
	db *sqlx.DB
}

// NewReportRepository constructs the repository.
func NewReportRepository(db *sqlx.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Transcript lists every enrollment of the student, newest academic year first.
// Within a year, semesters sort by name, not by calendar position, then by course code.
func (r *ReportRepository) Transcript(ctx context.Context, studentID int64) ([]models.TranscriptLine, error) {
	const query = `SELECT c.course_code, c.course_name, c.credits, c.semester, c.academic_year, e.grade, e.grade_points, e.status
        FROM enrollments e
        JOIN courses c ON c.course_id = e.course_id
        WHERE e.student_id = $1
        ORDER BY c.academic_year DESC, c.semester ASC, c.course_code ASC`
	lines := []models.TranscriptLine{}
	if err := r.db.SelectContext(ctx, &lines, query, studentID); err != nil {
		return nil, fmt.Errorf("load transcript: %w", err)
	}
	return lines, nil
}

// DepartmentMetrics aggregates student and course counts for a department.
func (r *ReportRepository) DepartmentMetrics(ctx context.Context, departmentID int64) (*models.DepartmentMetrics, error) {
	const query = `SELECT
            (SELECT COUNT(*) FROM students WHERE department_id = $1) AS total_students,
            (SELECT COUNT(*) FROM students WHERE department_id = $1 AND status = $2) AS active_students,
            (SELECT ROUND(AVG(gpa), 2) FROM students WHERE department_id = $1) AS average_gpa,
            (SELECT COUNT(*) FROM courses WHERE department_id = $1) AS total_courses,
            (SELECT COUNT(*) FROM courses WHERE department_id = $1 AND is_active = TRUE) AS active_courses`
	var metrics models.DepartmentMetrics
	if err := r.db.GetContext(ctx, &metrics, query, departmentID, models.StudentStatusActive); err != nil {
		return nil, fmt.Errorf("department metrics: %w", err)
	}
	return &metrics, nil
}
