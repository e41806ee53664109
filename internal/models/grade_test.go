package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pts(values ...float64) []*float64 {
	out := make([]*float64, 0, len(values))
	for i := range values {
		out = append(out, &values[i])
	}
	return out
}

func TestGradePointsTable(t *testing.T) {
	cases := map[string]float64{
		"A+": 4.00, "A": 4.00, "A-": 3.70,
		"B+": 3.30, "B": 3.00, "B-": 2.70,
		"C+": 2.30, "C": 2.00, "C-": 1.70,
		"D+": 1.30, "D": 1.00, "D-": 0.70,
		"F": 0.00,
	}
	for grade, want := range cases {
		got := GradePoints(grade)
		require.NotNil(t, got, grade)
		assert.Equal(t, want, *got, grade)
		assert.True(t, KnownGrade(grade))
	}

	for _, grade := range []string{"W", "I", "P"} {
		assert.Nil(t, GradePoints(grade), grade)
		assert.True(t, KnownGrade(grade), grade)
	}
	assert.Nil(t, GradePoints("E"))
	assert.False(t, KnownGrade("E"))
}

func TestNormaliseGrade(t *testing.T) {
	assert.Equal(t, "B+", NormaliseGrade("  b+ "))
}

func TestComputeGPA(t *testing.T) {
	assert.Nil(t, ComputeGPA(nil))
	assert.Nil(t, ComputeGPA([]*float64{nil, nil}))

	gpa := ComputeGPA(pts(4.0))
	require.NotNil(t, gpa)
	assert.Equal(t, 4.0, *gpa)

	// (3.70 + 3.30 + 3.00) / 3 = 3.3333 -> 3.33
	gpa = ComputeGPA(pts(3.7, 3.3, 3.0))
	require.NotNil(t, gpa)
	assert.Equal(t, 3.33, *gpa)

	// (3.70 + 3.00) / 2 = 3.35 exactly, half rounds up
	gpa = ComputeGPA(pts(3.7, 3.0))
	require.NotNil(t, gpa)
	assert.Equal(t, 3.35, *gpa)

	// (1.70 + 1.30 + 0.70 + 0.00) / 4 = 0.925 -> 0.93
	gpa = ComputeGPA(pts(1.7, 1.3, 0.7, 0.0))
	require.NotNil(t, gpa)
	assert.Equal(t, 0.93, *gpa)

	w := []*float64{nil}
	gpa = ComputeGPA(append(w, pts(2.0)...))
	require.NotNil(t, gpa)
	assert.Equal(t, 2.0, *gpa)
}

func TestEnrollmentStatusBlocking(t *testing.T) {
	assert.True(t, EnrollmentStatusEnrolled.Blocking())
	assert.True(t, EnrollmentStatusCompleted.Blocking())
	assert.False(t, EnrollmentStatusDropped.Blocking())
	assert.False(t, EnrollmentStatusWithdrawn.Blocking())
	assert.False(t, EnrollmentStatusFailed.Blocking())
}

func TestNewDepartmentStats(t *testing.T) {
	avg := 3.25
	stats := NewDepartmentStats("CS", DepartmentMetrics{TotalStudents: 4, ActiveStudents: 3, AverageGPA: &avg, TotalCourses: 2, ActiveCourses: 1})

	assert.True(t, stats.Found())
	require.Len(t, stats.Metrics, 5)
	assert.Equal(t, "Total Students", stats.Metrics[0].Name)
	assert.Equal(t, 4.0, *stats.Metrics[0].Value)
	assert.Equal(t, 3.25, *stats.Metrics[2].Value)
	assert.Equal(t, 1.0, *stats.Metrics[4].Value)

	missing := DepartmentNotFound("XX")
	assert.False(t, missing.Found())
	assert.Equal(t, "Department not found", missing.Message)
	assert.Empty(t, missing.Metrics)
}
