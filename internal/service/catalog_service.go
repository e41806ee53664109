package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/noah-isme/student-records-api/internal/models"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByCode(ctx context.Context, code string) (*models.CourseDetail, error)
}

type departmentRepository interface {
	List(ctx context.Context) ([]models.Department, error)
	FindByCode(ctx context.Context, code string) (*models.Department, error)
}

// CatalogService exposes read access to courses and departments.
type CatalogService struct {
	courses     courseRepository
	departments departmentRepository
}

// NewCatalogService constructs the catalog service.
func NewCatalogService(courses courseRepository, departments departmentRepository) *CatalogService {
	return &CatalogService{courses: courses, departments: departments}
}

// ListCourses returns courses with seat usage and pagination metadata.
func (s *CatalogService) ListCourses(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	courses, total, err := s.courses.List(ctx, filter)
	if err != nil {
		return nil, nil, storeError(err, "failed to list courses")
	}
	if courses == nil {
		courses = []models.CourseDetail{}
	}
	page, size, _ := models.PageWindow(filter.Page, filter.PageSize)
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// GetCourse returns one course by code.
func (s *CatalogService) GetCourse(ctx context.Context, code string) (*models.CourseDetail, error) {
	course, err := s.courses.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Course not found")
		}
		return nil, storeError(err, "failed to load course")
	}
	return course, nil
}

// ListDepartments returns every department.
func (s *CatalogService) ListDepartments(ctx context.Context) ([]models.Department, error) {
	departments, err := s.departments.List(ctx)
	if err != nil {
		return nil, storeError(err, "failed to list departments")
	}
	if departments == nil {
		departments = []models.Department{}
	}
	return departments, nil
}
