package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-records-api/internal/models"
)

const courseDetailColumns = `c.course_id, c.course_code, c.course_name, c.description, c.credits, c.department_id, c.instructor,
        c.max_enrollment, c.semester, c.academic_year, c.is_active, c.created_at, c.updated_at,
        d.department_code, v.enrolled_count, v.seats_remaining`

const courseDetailFrom = `FROM courses c
        JOIN course_enrollment_summary v ON v.course_id = c.course_id
        LEFT JOIN departments d ON d.department_id = c.department_id`

// CourseRepository reads course offerings together with their seat usage.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns courses filtered by department and activity.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	var conditions []string
	var args []interface{}
	if filter.DepartmentCode != "" {
		conditions = append(conditions, fmt.Sprintf("d.department_code = $%d", len(args)+1))
		args = append(args, strings.ToUpper(filter.DepartmentCode))
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "c.is_active = TRUE")
	}
	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	_, size, offset := models.PageWindow(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s\n        %s%s ORDER BY c.course_code LIMIT %d OFFSET %d", courseDetailColumns, courseDetailFrom, clause, size, offset)

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM courses c LEFT JOIN departments d ON d.department_id = c.department_id" + clause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByCode returns a course or sql.ErrNoRows.
func (r *CourseRepository) FindByCode(ctx context.Context, code string) (*models.CourseDetail, error) {
	query := fmt.Sprintf("SELECT %s\n        %s WHERE c.course_code = $1", courseDetailColumns, courseDetailFrom)
	var course models.CourseDetail
	if err := r.db.GetContext(ctx, &course, query, code); err != nil {
		return nil, err
	}
	return &course, nil
}
