package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
	"github.com/noah-isme/student-records-api/pkg/export"
)

type reportRepository interface {
	Transcript(ctx context.Context, studentID int64) ([]models.TranscriptLine, error)
	DepartmentMetrics(ctx context.Context, departmentID int64) (*models.DepartmentMetrics, error)
}

type reportCache interface {
	TranscriptKey(ctx context.Context, studentCode string) string
	DepartmentKey(ctx context.Context, departmentCode string) string
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

var transcriptHeaders = []string{"course_code", "course_name", "credits", "semester", "academic_year", "grade", "grade_points", "status"}

// ExportedFile is a rendered report ready to download.
type ExportedFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ReportService serves read-only views computed from current store state.
type ReportService struct {
	repo        reportRepository
	students    studentReader
	departments departmentReader
	cache       reportCache
	metrics     *MetricsService
	ttl         time.Duration
	logger      *zap.Logger
}

// NewReportService constructs the report service. cache may be nil.
func NewReportService(repo reportRepository, students studentReader, departments departmentReader, cache reportCache, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{repo: repo, students: students, departments: departments, cache: cache, metrics: metrics, ttl: ttl, logger: logger}
}

// Transcript returns every enrollment of the student, newest academic year first.
// A student with no enrollments yields an empty transcript, not an error.
func (s *ReportService) Transcript(ctx context.Context, studentCode string) (*models.Transcript, error) {
	studentCode = strings.TrimSpace(studentCode)
	key := s.transcriptKey(ctx, studentCode)
	var cached models.Transcript
	if s.cacheGet(ctx, key, &cached) {
		return &cached, nil
	}

	student, err := s.students.FindByCode(ctx, studentCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Student not found")
		}
		return nil, storeError(err, "failed to load student")
	}

	start := time.Now()
	lines, err := s.repo.Transcript(ctx, student.ID)
	s.metrics.ObserveDBQuery("transcript", time.Since(start))
	if err != nil {
		return nil, storeError(err, "failed to load transcript")
	}
	if lines == nil {
		lines = []models.TranscriptLine{}
	}

	transcript := &models.Transcript{
		StudentCode: student.Code,
		StudentName: strings.TrimSpace(student.FirstName + " " + student.LastName),
		GPA:         student.GPA,
		Lines:       lines,
	}
	s.cacheSet(ctx, key, transcript)
	return transcript, nil
}

// DepartmentStats returns the five department metrics, or the NotFound marker
// when the code does not resolve. The marker is a successful answer.
func (s *ReportService) DepartmentStats(ctx context.Context, departmentCode string) (models.DepartmentStats, error) {
	departmentCode = strings.ToUpper(strings.TrimSpace(departmentCode))
	key := s.departmentKey(ctx, departmentCode)
	var cached models.DepartmentStats
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	department, err := s.departments.FindByCode(ctx, departmentCode)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.DepartmentNotFound(departmentCode), nil
		}
		return models.DepartmentStats{}, storeError(err, "failed to resolve department")
	}

	start := time.Now()
	metrics, err := s.repo.DepartmentMetrics(ctx, department.ID)
	s.metrics.ObserveDBQuery("department_stats", time.Since(start))
	if err != nil {
		return models.DepartmentStats{}, storeError(err, "failed to compute department statistics")
	}

	stats := models.NewDepartmentStats(department.Code, *metrics)
	s.cacheSet(ctx, key, stats)
	return stats, nil
}

// ExportTranscript renders the transcript in the requested format.
func (s *ReportService) ExportTranscript(ctx context.Context, studentCode, format string) (*ExportedFile, error) {
	parsed, err := export.ParseFormat(format)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "format must be csv or pdf")
	}
	transcript, err := s.Transcript(ctx, studentCode)
	if err != nil {
		return nil, err
	}

	renderer := export.RendererFor(parsed)
	body, err := renderer.Render(transcriptDocument(transcript))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render transcript")
	}
	return &ExportedFile{
		Filename:    fmt.Sprintf("transcript_%s.%s", transcript.StudentCode, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Body:        body,
	}, nil
}

func transcriptDocument(t *models.Transcript) export.Document {
	rows := make([]map[string]string, 0, len(t.Lines))
	for _, line := range t.Lines {
		rows = append(rows, map[string]string{
			"course_code":   line.CourseCode,
			"course_name":   line.CourseName,
			"credits":       strconv.Itoa(line.Credits),
			"semester":      line.Semester,
			"academic_year": strconv.Itoa(line.AcademicYear),
			"grade":         derefString(line.Grade),
			"grade_points":  formatPoints(line.GradePoints),
			"status":        string(line.Status),
		})
	}
	gpa := "none"
	if t.GPA != nil {
		gpa = formatPoints(t.GPA)
	}
	return export.Document{
		Title:   fmt.Sprintf("Transcript %s - %s", t.StudentCode, t.StudentName),
		Summary: []string{"GPA: " + gpa},
		Data:    export.Dataset{Headers: transcriptHeaders, Rows: rows},
	}
}

func (s *ReportService) transcriptKey(ctx context.Context, studentCode string) string {
	if s.cache == nil {
		return ""
	}
	return s.cache.TranscriptKey(ctx, studentCode)
}

func (s *ReportService) departmentKey(ctx context.Context, departmentCode string) string {
	if s.cache == nil {
		return ""
	}
	return s.cache.DepartmentKey(ctx, departmentCode)
}

func (s *ReportService) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil || key == "" {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	if err != nil {
		return false
	}
	return hit
}

func (s *ReportService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil || key == "" {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Debug("report not cached", zap.String("key", key), zap.Error(err))
	}
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatPoints(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
