package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/repository"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type gradeRepository interface {
	RecordGrade(ctx context.Context, params repository.GradeParams) (*float64, error)
}

// UpdateGradeRequest carries the grade literal for an enrollment.
type UpdateGradeRequest struct {
	Grade string `json:"grade" validate:"required,max=2"`
}

// GradeResult reports the recomputed GPA after a grade is recorded.
type GradeResult struct {
	StudentCode string   `json:"student_code"`
	CourseCode  string   `json:"course_code"`
	Grade       string   `json:"grade"`
	GradePoints *float64 `json:"grade_points"`
	GPA         *float64 `json:"gpa"`
	Message     string   `json:"message"`
}

// GradeService records grades and keeps student GPAs in step.
type GradeService struct {
	repo      gradeRepository
	students  studentReader
	courses   courseReader
	cache     cacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs the grade service.
func NewGradeService(repo gradeRepository, students studentReader, courses courseReader, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{repo: repo, students: students, courses: courses, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// UpdateGrade sets the grade on the student's enrollment, marks it Completed and
// returns the recomputed GPA. Grades without points (W, I, P) are stored but do not count.
func (s *GradeService) UpdateGrade(ctx context.Context, studentCode, courseCode string, req UpdateGradeRequest) (*GradeResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid grade payload")
	}
	studentCode = strings.TrimSpace(studentCode)
	courseCode = strings.TrimSpace(courseCode)
	grade := models.NormaliseGrade(req.Grade)

	var student *models.StudentDetail
	var course *models.CourseDetail
	err := runChecks(ctx, s.logger,
		check{name: "student_exists", run: func(ctx context.Context) error {
			found, err := s.students.FindByCode(ctx, studentCode)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotFound, "Student not found")
				}
				return storeError(err, "failed to load student")
			}
			student = found
			return nil
		}},
		check{name: "course_exists", run: func(ctx context.Context) error {
			found, err := s.courses.FindByCode(ctx, courseCode)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotFound, "Course not found")
				}
				return storeError(err, "failed to load course")
			}
			course = found
			return nil
		}},
		check{name: "grade_known", run: func(context.Context) error {
			if !models.KnownGrade(grade) {
				return appErrors.Clone(appErrors.ErrInvalidInput, fmt.Sprintf("Unknown grade %q", grade))
			}
			return nil
		}},
	)
	if err != nil {
		return nil, err
	}

	points := models.GradePoints(grade)
	gpa, err := s.repo.RecordGrade(ctx, repository.GradeParams{
		StudentID:   student.ID,
		CourseID:    course.ID,
		Grade:       grade,
		GradePoints: points,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Enrollment not found")
		}
		s.logger.Error("failed to record grade", zap.String("student_code", studentCode), zap.String("course_code", courseCode), zap.Error(err))
		return nil, storeError(err, "failed to record grade")
	}

	s.metrics.RecordGrade(grade)
	if s.cache != nil {
		s.cache.InvalidateStudent(ctx, student.Code)
		s.cache.InvalidateDepartments(ctx)
	}
	s.logger.Info("grade recorded", zap.String("student_code", studentCode), zap.String("course_code", courseCode), zap.String("grade", grade))
	return &GradeResult{
		StudentCode: student.Code,
		CourseCode:  course.Code,
		Grade:       grade,
		GradePoints: points,
		GPA:         gpa,
		Message:     gradeMessage(gpa),
	}, nil
}

func gradeMessage(gpa *float64) string {
	if gpa == nil {
		return "Grade updated. New GPA: none"
	}
	return fmt.Sprintf("Grade updated. New GPA: %.2f", *gpa)
}
