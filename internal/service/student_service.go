package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/pkg/database"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByCode(ctx context.Context, code string) (*models.StudentDetail, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
}

type departmentReader interface {
	FindByCode(ctx context.Context, code string) (*models.Department, error)
}

// RegisterStudentRequest holds the payload for registering a student.
type RegisterStudentRequest struct {
	StudentCode    string  `json:"student_code" validate:"required,max=20"`
	FirstName      string  `json:"first_name" validate:"required,max=50"`
	LastName       string  `json:"last_name" validate:"required,max=50"`
	Email          string  `json:"email" validate:"required,max=255"`
	DateOfBirth    string  `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Gender         *string `json:"gender" validate:"omitempty,oneof=Male Female Other 'Prefer not to say'"`
	Phone          *string `json:"phone" validate:"omitempty,max=20"`
	DepartmentCode *string `json:"department_code" validate:"omitempty,max=10"`
	GraduationYear *int    `json:"graduation_year" validate:"omitempty,min=2000,max=2100"`
}

// StudentService handles student registration and lookups.
type StudentService struct {
	repo        studentRepository
	departments departmentReader
	cache       cacheInvalidator
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, departments departmentReader, cache cacheInvalidator, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, departments: departments, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list students")
	}
	if students == nil {
		students = []models.StudentDetail{}
	}
	page, size, _ := models.PageWindow(filter.Page, filter.PageSize)
	return students, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns detailed student information.
func (s *StudentService) Get(ctx context.Context, code string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return nil, storeError(err, "failed to load student")
	}
	return student, nil
}

// Register validates and creates a new Active student with no GPA.
func (s *StudentService) Register(ctx context.Context, req RegisterStudentRequest) (*models.Student, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid student payload")
	}

	student, err := newStudentFromRequest(req)
	if err != nil {
		return nil, err
	}

	var departmentCode string
	if req.DepartmentCode != nil {
		departmentCode = strings.ToUpper(strings.TrimSpace(*req.DepartmentCode))
	}

	err = runChecks(ctx, s.logger,
		check{name: "email_format", run: func(context.Context) error {
			if !emailPattern.MatchString(student.Email) {
				return appErrors.Clone(appErrors.ErrInvalidInput, "Invalid email format")
			}
			return nil
		}},
		check{name: "email_unique", run: func(ctx context.Context) error {
			exists, err := s.repo.ExistsByEmail(ctx, student.Email)
			if err != nil {
				return storeError(err, "failed to validate email")
			}
			if exists {
				return appErrors.Clone(appErrors.ErrConflict, "Email already registered")
			}
			return nil
		}},
		check{name: "code_unique", run: func(ctx context.Context) error {
			exists, err := s.repo.ExistsByCode(ctx, student.Code)
			if err != nil {
				return storeError(err, "failed to validate student code")
			}
			if exists {
				return appErrors.Clone(appErrors.ErrConflict, "Student code already exists")
			}
			return nil
		}},
		check{name: "department_exists", run: func(ctx context.Context) error {
			if departmentCode == "" {
				return nil
			}
			department, err := s.departments.FindByCode(ctx, departmentCode)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return appErrors.Clone(appErrors.ErrNotFound, "Department not found")
				}
				return storeError(err, "failed to resolve department")
			}
			student.DepartmentID = &department.ID
			return nil
		}},
	)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, student); err != nil {
		if database.IsUniqueViolation(err) {
			if strings.Contains(database.ConstraintName(err), "email") {
				return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "Email already registered")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "Student code already exists")
		}
		s.logger.Error("failed to create student", zap.String("student_code", student.Code), zap.Error(err))
		return nil, storeError(err, "failed to create student")
	}

	s.metrics.RecordRegistration()
	if s.cache != nil {
		s.cache.InvalidateDepartments(ctx)
	}
	s.logger.Info("student registered", zap.Int64("student_id", student.ID), zap.String("student_code", student.Code))
	return student, nil
}

func newStudentFromRequest(req RegisterStudentRequest) (*models.Student, error) {
	title := cases.Title(language.Und)
	student := &models.Student{
		Code:           strings.TrimSpace(req.StudentCode),
		FirstName:      title.String(strings.TrimSpace(req.FirstName)),
		LastName:       title.String(strings.TrimSpace(req.LastName)),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Gender:         req.Gender,
		Phone:          req.Phone,
		GraduationYear: req.GraduationYear,
		Status:         models.StudentStatusActive,
	}
	if req.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", req.DateOfBirth)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid date_of_birth")
		}
		student.DateOfBirth = &dob
	}
	return student, nil
}
