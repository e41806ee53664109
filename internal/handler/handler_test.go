package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/middleware"
	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/repository/memstore"
	"github.com/noah-isme/student-records-api/internal/service"
)

type responseEnvelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(ctx context.Context) error { return p.err }

type testAPI struct {
	router  *gin.Engine
	store   *memstore.Store
	metrics *service.MetricsService
}

func newTestAPI(t *testing.T, pinger Pinger) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memstore.New()
	cs := store.AddDepartment(models.Department{Code: "CS", Name: "Computer Science"})
	store.AddCourse(models.Course{Code: "CS101", Name: "Intro", Credits: 3, DepartmentID: &cs.ID, MaxEnrollment: 1, Semester: "Fall", AcademicYear: 2024, IsActive: true})

	logger := zap.NewNop()
	metrics := service.NewMetricsService()
	cache := service.NewCacheService(nil, metrics, time.Minute, logger, false)
	handlers := Handlers{
		Students:    NewStudentHandler(service.NewStudentService(store.Students(), store.Departments(), cache, metrics, nil, logger)),
		Enrollments: NewEnrollmentHandler(service.NewEnrollmentService(store.Enrollments(), store.Students(), store.Courses(), cache, metrics, nil, logger)),
		Grades:      NewGradeHandler(service.NewGradeService(store.Enrollments(), store.Students(), store.Courses(), cache, metrics, nil, logger)),
		Reports:     NewReportHandler(service.NewReportService(store.Reports(), store.Students(), store.Departments(), cache, metrics, time.Minute, logger)),
		Catalog:     NewCatalogHandler(service.NewCatalogService(store.Courses(), store.Departments())),
		Metrics:     NewMetricsHandler(metrics, pinger),
	}

	r := gin.New()
	r.Use(middleware.RequestMetrics(metrics, "/metrics"))
	RegisterRoutes(r, "/api/v1", handlers)
	return &testAPI{router: r, store: store, metrics: metrics}
}

func (a *testAPI) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, responseEnvelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env responseEnvelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func register(code, email string) map[string]interface{} {
	return map[string]interface{}{"student_code": code, "first_name": "ada", "last_name": "lovelace", "email": email, "department_code": "CS"}
}

func TestRegisterStudentEndpoint(t *testing.T) {
	api := newTestAPI(t, nil)

	w, env := api.do(t, http.MethodPost, "/api/v1/register-student", register("STU100", "a@b.edu"))
	require.Equal(t, http.StatusCreated, w.Code)
	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		ID      int64  `json:"id"`
		Code    string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Success)
	assert.NotZero(t, result.ID)
	assert.Equal(t, "STU100", result.Code)

	w, env = api.do(t, http.MethodPost, "/api/v1/students", register("STU101", "a@b.edu"))
	require.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Email already registered", env.Error.Message)

	w, _ = api.do(t, http.MethodPost, "/api/v1/students", register("STU102", "bad-email"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = api.do(t, http.MethodGet, "/api/v1/students/STU100", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var student models.StudentDetail
	require.NoError(t, json.Unmarshal(env.Data, &student))
	assert.Equal(t, "Ada", student.FirstName)
	assert.Nil(t, student.GPA)
}

func TestEnrollmentLifecycleEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)
	api.do(t, http.MethodPost, "/api/v1/register-student", register("STU001", "one@uni.edu"))
	api.do(t, http.MethodPost, "/api/v1/register-student", register("STU002", "two@uni.edu"))

	w, _ := api.do(t, http.MethodPost, "/api/v1/enrollments", map[string]string{"student_code": "STU001", "course_code": "CS101"})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := api.do(t, http.MethodPost, "/api/v1/enrollments", map[string]string{"student_code": "STU002", "course_code": "CS101"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "RESOURCE_EXHAUSTED", env.Error.Code)

	w, env = api.do(t, http.MethodPost, "/api/v1/enrollments", map[string]string{"student_code": "STU001", "course_code": "CS101"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	w, env = api.do(t, http.MethodPut, "/api/v1/enrollments/STU001/CS101/grade", map[string]string{"grade": "A"})
	require.Equal(t, http.StatusOK, w.Code)
	var graded service.GradeResult
	require.NoError(t, json.Unmarshal(env.Data, &graded))
	require.NotNil(t, graded.GPA)
	assert.Equal(t, 4.0, *graded.GPA)

	w, _ = api.do(t, http.MethodDelete, "/api/v1/enrollments/STU001/CS101", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = api.do(t, http.MethodPut, "/api/v1/enrollments/STU002/CS101/grade", map[string]string{"grade": "B"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, env = api.do(t, http.MethodGet, "/api/v1/students/STU001/transcript", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var transcript models.Transcript
	require.NoError(t, json.Unmarshal(env.Data, &transcript))
	require.Len(t, transcript.Lines, 1)
	assert.Equal(t, models.EnrollmentStatusCompleted, transcript.Lines[0].Status)
}

func TestTranscriptExportEndpoint(t *testing.T) {
	api := newTestAPI(t, nil)
	api.do(t, http.MethodPost, "/api/v1/register-student", register("STU001", "one@uni.edu"))

	w, _ := api.do(t, http.MethodGet, "/api/v1/students/STU001/transcript/export?format=csv", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "transcript_STU001.csv")
	assert.True(t, strings.HasPrefix(w.Body.String(), "course_code,"))

	w, _ = api.do(t, http.MethodGet, "/api/v1/students/STU001/transcript/export?format=doc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDepartmentStatsEndpoint(t *testing.T) {
	api := newTestAPI(t, nil)

	w, env := api.do(t, http.MethodGet, "/api/v1/departments/CS/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats models.DepartmentStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.True(t, stats.Found())
	assert.Len(t, stats.Metrics, 5)

	w, env = api.do(t, http.MethodGet, "/api/v1/departments/XX/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.False(t, stats.Found())
	assert.Equal(t, "Department not found", stats.Message)
}

func TestCatalogEndpoints(t *testing.T) {
	api := newTestAPI(t, nil)

	w, env := api.do(t, http.MethodGet, "/api/v1/courses?department=cs&active=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var courses []models.CourseDetail
	require.NoError(t, json.Unmarshal(env.Data, &courses))
	require.Len(t, courses, 1)
	assert.Equal(t, 1, courses[0].SeatsRemaining)

	w, _ = api.do(t, http.MethodGet, "/api/v1/courses/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = api.do(t, http.MethodGet, "/api/v1/departments", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	api := newTestAPI(t, fakePinger{})
	w, _ := api.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"connected"`)

	w, _ = api.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	down := newTestAPI(t, fakePinger{err: errors.New("connection refused")})
	w, _ = down.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "error: connection refused")

	w, _ = down.do(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w, _ = api.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestEnrollmentHandlerRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memstore.New()
	svc := service.NewEnrollmentService(store.Enrollments(), store.Students(), store.Courses(), nil, nil, nil, zap.NewNop())
	handler := NewEnrollmentHandler(svc)

	c, w := newGinContext(http.MethodPost, "/enrollments", []byte(`{"student_code":`))
	handler.Enroll(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := memstore.New()
	svc := service.NewStudentService(store.Students(), store.Departments(), nil, nil, nil, zap.NewNop())
	handler := NewStudentHandler(svc)

	c, w := newGinContext(http.MethodGet, "/students/NOPE", nil)
	c.Params = gin.Params{{Key: "code", Value: "NOPE"}}
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
