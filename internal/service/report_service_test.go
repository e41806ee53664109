package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/student-records-api/internal/models"
	appErrors "github.com/noah-isme/student-records-api/pkg/errors"
)

func floatPtr(v float64) *float64 { return &v }

func TestReportServiceEmptyTranscript(t *testing.T) {
	f := newFixture(t)
	f.student("STU001", models.StudentStatusActive)

	transcript, err := f.reports.Transcript(context.Background(), "STU001")
	require.NoError(t, err)
	assert.NotNil(t, transcript.Lines)
	assert.Empty(t, transcript.Lines)
	assert.Nil(t, transcript.GPA)
}

func TestReportServiceTranscriptOrdering(t *testing.T) {
	f := newFixture(t)
	f.student("STU001", models.StudentStatusActive)
	f.course("OLD", 30, "Fall", 2023)
	f.course("SUM", 30, "Summer", 2024)
	f.course("SPR", 30, "Spring", 2024)
	f.course("FAL", 30, "Fall", 2024)
	for _, code := range []string{"OLD", "SUM", "SPR", "FAL"} {
		f.enroll(t, "STU001", code)
	}

	transcript, err := f.reports.Transcript(context.Background(), "STU001")
	require.NoError(t, err)
	var order []string
	for _, line := range transcript.Lines {
		order = append(order, line.CourseCode)
	}
	// semesters sort by name within a year
	assert.Equal(t, []string{"FAL", "SPR", "SUM", "OLD"}, order)
	assert.Equal(t, "First STU001", transcript.StudentName)
}

func TestReportServiceTranscriptUnknownStudent(t *testing.T) {
	f := newFixture(t)

	_, err := f.reports.Transcript(context.Background(), "GHOST")
	requireAppError(t, err, appErrors.ErrNotFound, "Student not found")
}

func TestReportServiceTranscriptCacheInvalidatedByGrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.student("STU001", models.StudentStatusActive)
	f.course("CS101", 30, "Fall", 2024)
	f.enroll(t, "STU001", "CS101")

	_, err := f.reports.Transcript(ctx, "STU001")
	require.NoError(t, err)
	assert.True(t, f.cacheRepo.has("reports:transcript:STU001:v0"))

	cached, err := f.reports.Transcript(ctx, "STU001")
	require.NoError(t, err)
	assert.Nil(t, cached.GPA)

	_, err = f.grades.UpdateGrade(ctx, "STU001", "CS101", UpdateGradeRequest{Grade: "B"})
	require.NoError(t, err)
	assert.False(t, f.cacheRepo.has("reports:transcript:STU001:v0"))

	fresh, err := f.reports.Transcript(ctx, "STU001")
	require.NoError(t, err)
	require.NotNil(t, fresh.GPA)
	assert.Equal(t, 3.0, *fresh.GPA)
}

func TestReportServiceDepartmentStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.AddStudent(models.Student{Code: "S1", Email: "s1@uni.edu", DepartmentID: &f.cs.ID, GPA: floatPtr(3.5)})
	f.store.AddStudent(models.Student{Code: "S2", Email: "s2@uni.edu", DepartmentID: &f.cs.ID, GPA: floatPtr(3.0)})
	f.store.AddStudent(models.Student{Code: "S3", Email: "s3@uni.edu", DepartmentID: &f.cs.ID, Status: models.StudentStatusGraduated})
	f.course("CS101", 30, "Fall", 2024)
	f.store.AddCourse(models.Course{Code: "CS900", Name: "Retired", DepartmentID: &f.cs.ID, MaxEnrollment: 5, Semester: "Fall", AcademicYear: 2019})

	stats, err := f.reports.DepartmentStats(ctx, "cs")
	require.NoError(t, err)
	require.True(t, stats.Found())
	require.Len(t, stats.Metrics, 5)

	values := map[string]float64{}
	for _, m := range stats.Metrics {
		require.NotNil(t, m.Value, m.Name)
		values[m.Name] = *m.Value
	}
	assert.Equal(t, 3.0, values["Total Students"])
	assert.Equal(t, 2.0, values["Active Students"])
	assert.Equal(t, 3.25, values["Average GPA"])
	assert.Equal(t, 2.0, values["Total Courses"])
	assert.Equal(t, 1.0, values["Active Courses"])
	assert.True(t, f.cacheRepo.has("reports:department:CS:v0"))
}

func TestReportServiceDepartmentStatsNotFoundMarker(t *testing.T) {
	f := newFixture(t)

	stats, err := f.reports.DepartmentStats(context.Background(), "XX")
	require.NoError(t, err)
	assert.False(t, stats.Found())
	assert.Equal(t, models.DepartmentStatsNotFound, stats.Outcome)
	assert.Equal(t, "Department not found", stats.Message)
	assert.False(t, f.cacheRepo.has("reports:department:XX:v0"))
}

func TestReportServiceDepartmentStatsWithoutStudents(t *testing.T) {
	f := newFixture(t)

	stats, err := f.reports.DepartmentStats(context.Background(), "MATH")
	require.NoError(t, err)
	require.True(t, stats.Found())
	assert.Nil(t, stats.Metrics[2].Value)
	assert.Equal(t, 0.0, *stats.Metrics[0].Value)
}

func TestReportServiceExportTranscript(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.student("STU001", models.StudentStatusActive)
	f.course("CS101", 30, "Fall", 2024)
	f.enroll(t, "STU001", "CS101")
	_, err := f.grades.UpdateGrade(ctx, "STU001", "CS101", UpdateGradeRequest{Grade: "A-"})
	require.NoError(t, err)

	file, err := f.reports.ExportTranscript(ctx, "STU001", "")
	require.NoError(t, err)
	assert.Equal(t, "transcript_STU001.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	lines := strings.Split(strings.TrimSpace(string(file.Body)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "course_code,course_name,credits,semester,academic_year,grade,grade_points,status", lines[0])
	assert.Equal(t, "CS101,Course CS101,3,Fall,2024,A-,3.70,Completed", lines[1])

	pdf, err := f.reports.ExportTranscript(ctx, "STU001", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, strings.HasPrefix(string(pdf.Body), "%PDF"))

	_, err = f.reports.ExportTranscript(ctx, "STU001", "xlsx")
	requireAppError(t, err, appErrors.ErrInvalidInput, "")
}

// gatedReports holds the first transcript read after it has loaded rows until released.
type gatedReports struct {
	reportRepository
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func (g *gatedReports) Transcript(ctx context.Context, studentID int64) ([]models.TranscriptLine, error) {
	lines, err := g.reportRepository.Transcript(ctx, studentID)
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.loaded)
		<-g.release
	}
	return lines, err
}

func TestReportServiceTranscriptReadOverlappingGradeNotCachedStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.student("STU001", models.StudentStatusActive)
	f.course("CS101", 30, "Fall", 2024)
	f.enroll(t, "STU001", "CS101")

	gated := &gatedReports{reportRepository: f.store.Reports(), loaded: make(chan struct{}), release: make(chan struct{})}
	slowReports := NewReportService(gated, f.store.Students(), f.store.Departments(), f.cache, nil, time.Minute, zap.NewNop())

	type outcome struct {
		transcript *models.Transcript
		err        error
	}
	done := make(chan outcome, 1)
	go func() {
		transcript, err := slowReports.Transcript(ctx, "STU001")
		done <- outcome{transcript, err}
	}()

	<-gated.loaded
	_, err := f.grades.UpdateGrade(ctx, "STU001", "CS101", UpdateGradeRequest{Grade: "A"})
	require.NoError(t, err)
	close(gated.release)

	overlapped := <-done
	require.NoError(t, overlapped.err)
	require.Len(t, overlapped.transcript.Lines, 1)
	assert.Equal(t, models.EnrollmentStatusEnrolled, overlapped.transcript.Lines[0].Status)

	fresh, err := f.reports.Transcript(ctx, "STU001")
	require.NoError(t, err)
	require.Len(t, fresh.Lines, 1)
	assert.Equal(t, models.EnrollmentStatusCompleted, fresh.Lines[0].Status)
	require.NotNil(t, fresh.GPA)
	assert.Equal(t, 4.0, *fresh.GPA)
}

func TestReportServiceTranscriptOrderTiesBreakByCourseCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.student("STU001", models.StudentStatusActive)
	f.course("CS300", 30, "Fall", 2024)
	f.course("CS100", 30, "Fall", 2024)
	f.enroll(t, "STU001", "CS300")
	f.enroll(t, "STU001", "CS100")

	transcript, err := f.reports.Transcript(ctx, "STU001")
	require.NoError(t, err)
	require.Len(t, transcript.Lines, 2)
	assert.Equal(t, "CS100", transcript.Lines[0].CourseCode)
	assert.Equal(t, "CS300", transcript.Lines[1].CourseCode)
}
