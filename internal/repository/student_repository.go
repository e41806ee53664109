package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/student-records-api/internal/models"
)

const studentDetailColumns = `s.student_id, s.student_code, s.first_name, s.last_name, s.email, s.date_of_birth, s.gender, s.phone,
        s.department_id, s.enrollment_date, s.graduation_year, s.gpa, s.status, s.created_at, s.updated_at,
        d.department_code, d.department_name`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s LEFT JOIN departments d ON d.department_id = s.department_id"
	var conditions []string
	var args []interface{}

	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.DepartmentCode != "" {
		conditions = append(conditions, fmt.Sprintf("d.department_code = $%d", len(args)+1))
		args = append(args, strings.ToUpper(filter.DepartmentCode))
	}
	if len(conditions) > 0 {
		base += " WHERE " + strings.Join(conditions, " AND ")
	}

	_, size, offset := models.PageWindow(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s\n        %s ORDER BY s.student_id LIMIT %d OFFSET %d", studentDetailColumns, base, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// FindByCode returns a student with department labels or sql.ErrNoRows.
func (r *StudentRepository) FindByCode(ctx context.Context, code string) (*models.StudentDetail, error) {
	query := fmt.Sprintf("SELECT %s\n        FROM students s LEFT JOIN departments d ON d.department_id = s.department_id\n        WHERE s.student_code = $1", studentDetailColumns)
	var student models.StudentDetail
	if err := r.db.GetContext(ctx, &student, query, code); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsByEmail checks whether any student already uses the email.
func (r *StudentRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM students WHERE email = $1 LIMIT 1", email)
}

// ExistsByCode checks whether the student code is taken.
func (r *StudentRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return r.exists(ctx, "SELECT 1 FROM students WHERE student_code = $1 LIMIT 1", code)
}

func (r *StudentRepository) exists(ctx context.Context, query string, arg interface{}) (bool, error) {
	var found int
	if err := r.db.GetContext(ctx, &found, query, arg); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student existence: %w", err)
	}
	return true, nil
}

// Create inserts the student and fills in the identity and store defaults.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}
	const query = `INSERT INTO students (student_code, first_name, last_name, email, date_of_birth, gender, phone, department_id, graduation_year, status)
        VALUES (:student_code, :first_name, :last_name, :email, :date_of_birth, :gender, :phone, :department_id, :graduation_year, :status)
        RETURNING student_id, enrollment_date, gpa, created_at, updated_at`
	rows, err := r.db.NamedQueryContext(ctx, query, student)
	if err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("create student: %w", err)
		}
		return fmt.Errorf("create student: no row returned")
	}
	if err := rows.Scan(&student.ID, &student.EnrollmentDate, &student.GPA, &student.CreatedAt, &student.UpdatedAt); err != nil {
		return fmt.Errorf("scan created student: %w", err)
	}
	return nil
}
