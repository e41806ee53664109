package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/repository"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type enrollmentRepository interface {
	Enroll(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error)
	Drop(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error)
}

type studentReader interface {
	FindByCode(ctx context.Context, code string) (*models.StudentDetail, error)
}

type courseReader interface {
	FindByCode(ctx context.Context, code string) (*models.CourseDetail, error)
}

// EnrollRequest identifies the student and course to link.
type EnrollRequest struct {
	StudentCode string `json:"student_code" validate:"required,max=20"`
	CourseCode  string `json:"course_code" validate:"required,max=20"`
}

// EnrollmentService orchestrates enrollment workflows.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  studentReader
	courses   courseReader
	cache     cacheInvalidator
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, students studentReader, courses courseReader, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, students: students, courses: courses, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Enroll places an Active student into an active course with a free seat.
func (s *EnrollmentService) Enroll(ctx context.Context, req EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid enrollment payload")
	}
	studentCode := strings.TrimSpace(req.StudentCode)
	courseCode := strings.TrimSpace(req.CourseCode)

	var student *models.StudentDetail
	var course *models.CourseDetail
	err := runChecks(ctx, s.logger,
		check{name: "student_active", run: func(ctx context.Context) error {
			found, err := s.students.FindByCode(ctx, studentCode)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotFound, "Student not found")
				}
				return storeError(err, "failed to load student")
			}
			if found.Status != models.StudentStatusActive {
				return appErrors.Clone(appErrors.ErrInvalidState, "Student is not active")
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
		check{name: "course_active", run: func(context.Context) error {
			if !course.IsActive {
				return appErrors.Clone(appErrors.ErrInvalidState, "Course is not active")
			}
			return nil
		}},
	)
	if err != nil {
		s.metrics.RecordEnrollment(OutcomeRejected)
		return nil, err
	}

	enrollment, err := s.repo.Enroll(ctx, student.ID, course.ID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEnrollmentExists):
			s.metrics.RecordEnrollment(OutcomeConflict)
			return nil, appErrors.Clone(appErrors.ErrConflict, "Student already enrolled in this course")
		case errors.Is(err, repository.ErrCourseFull):
			s.metrics.RecordEnrollment(OutcomeResourceExhausted)
			return nil, appErrors.Clone(appErrors.ErrResourceExhausted, "Course is at maximum capacity")
		case errors.Is(err, sql.ErrNoRows):
			s.metrics.RecordEnrollment(OutcomeRejected)
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Course not found")
		}
		s.logger.Error("failed to enroll student", zap.String("student_code", studentCode), zap.String("course_code", courseCode), zap.Error(err))
		return nil, storeError(err, "failed to enroll student")
	}

	s.metrics.RecordEnrollment(OutcomeEnrolled)
	if s.cache != nil {
		s.cache.InvalidateStudent(ctx, student.Code)
	}
	s.logger.Info("enrollment created",
		zap.Int64("enrollment_id", enrollment.ID),
		zap.String("student_code", studentCode),
		zap.String("course_code", courseCode),
	)
	return enrollment, nil
}

// Drop moves an Enrolled enrollment to Dropped, freeing its seat.
func (s *EnrollmentService) Drop(ctx context.Context, studentCode, courseCode string) (*models.Enrollment, error) {
	studentCode = strings.TrimSpace(studentCode)
	courseCode = strings.TrimSpace(courseCode)

	student, err := s.students.FindByCode(ctx, studentCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return nil, storeError(err, "failed to load student")
	}
	course, err := s.courses.FindByCode(ctx, courseCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Course not found")
		}
		return nil, storeError(err, "failed to load course")
	}

	enrollment, err := s.repo.Drop(ctx, student.ID, course.ID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Enrollment not found")
		case errors.Is(err, repository.ErrEnrollmentNotEnrolled):
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "Only enrolled courses can be dropped")
		}
		return nil, storeError(err, "failed to drop enrollment")
	}

	if s.cache != nil {
		s.cache.InvalidateStudent(ctx, student.Code)
	}
	s.logger.Info("enrollment dropped", zap.Int64("enrollment_id", enrollment.ID))
	return enrollment, nil
}
