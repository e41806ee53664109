package service

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/repository/memstore"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

type fixture struct {
	store       *memstore.Store
	cs          models.Department
	cache       *CacheService
	cacheRepo   *mapCacheRepo
	students    *StudentService
	enrollments *EnrollmentService
	grades      *GradeService
	reports     *ReportService
	catalog     *CatalogService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	cs := store.AddDepartment(models.Department{Code: "CS", Name: "Computer Science"})
	store.AddDepartment(models.Department{Code: "MATH", Name: "Mathematics"})

	metrics := NewMetricsService()
	cacheRepo := newMapCacheRepo()
	cache := NewCacheService(cacheRepo, metrics, time.Minute, zap.NewNop(), true)
	logger := zap.NewNop()

	return &fixture{
		store:       store,
		cs:          cs,
		cache:       cache,
		cacheRepo:   cacheRepo,
		students:    NewStudentService(store.Students(), store.Departments(), cache, metrics, nil, logger),
		enrollments: NewEnrollmentService(store.Enrollments(), store.Students(), store.Courses(), cache, metrics, nil, logger),
		grades:      NewGradeService(store.Enrollments(), store.Students(), store.Courses(), cache, metrics, nil, logger),
		reports:     NewReportService(store.Reports(), store.Students(), store.Departments(), cache, metrics, time.Minute, logger),
		catalog:     NewCatalogService(store.Courses(), store.Departments()),
	}
}

func (f *fixture) student(code string, status models.StudentStatus) models.Student {
	return f.store.AddStudent(models.Student{
		Code:         code,
		FirstName:    "First",
		LastName:     code,
		Email:        strings.ToLower(code) + "@uni.edu",
		DepartmentID: &f.cs.ID,
		Status:       status,
	})
}

func (f *fixture) course(code string, capacity int, semester string, year int) models.Course {
	return f.store.AddCourse(models.Course{
		Code:          code,
		Name:          "Course " + code,
		Credits:       3,
		DepartmentID:  &f.cs.ID,
		MaxEnrollment: capacity,
		Semester:      semester,
		AcademicYear:  year,
		IsActive:      true,
	})
}

func (f *fixture) enroll(t *testing.T, studentCode, courseCode string) *models.Enrollment {
	t.Helper()
	enrollment, err := f.enrollments.Enroll(context.Background(), EnrollRequest{StudentCode: studentCode, CourseCode: courseCode})
	require.NoError(t, err)
	return enrollment
}

func requireAppError(t *testing.T, err error, want *appErrors.Error, message string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, want)
	if message != "" {
		var appErr *appErrors.Error
		require.ErrorAs(t, err, &appErr)
		require.Equal(t, message, appErr.Message)
	}
}

// mapCacheRepo is an in-memory stand-in for the Redis cache repository.
type mapCacheRepo struct {
	mu    sync.Mutex
	items map[string][]byte
	gets  int
}

func newMapCacheRepo() *mapCacheRepo {
	return &mapCacheRepo{items: map[string][]byte{}}
}

func (m *mapCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	raw, ok := m.items[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mapCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	return nil
}

func (m *mapCacheRepo) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

func (m *mapCacheRepo) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var value int64
	if raw, ok := m.items[key]; ok {
		if err := json.Unmarshal(raw, &value); err != nil {
			return 0, err
		}
	}
	value++
	raw, err := json.Marshal(value)
	if err != nil {
		return 0, err
	}
	m.items[key] = raw
	return value, nil
}

func (m *mapCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	prefix := strings.TrimSuffix(pattern, "*")
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

func (m *mapCacheRepo) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[key]
	return ok
}
