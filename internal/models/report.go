package models

// TranscriptLine is one enrollment as it appears on a student's transcript.
type TranscriptLine struct {
	CourseCode   string           `db:"course_code" json:"course_code"`
	CourseName   string           `db:"course_name" json:"course_name"`
	Credits      int              `db:"credits" json:"credits"`
	Semester     string           `db:"semester" json:"semester"`
	AcademicYear int              `db:"academic_year" json:"academic_year"`
	Grade        *string          `db:"grade" json:"grade"`
	GradePoints  *float64         `db:"grade_points" json:"grade_points"`
	Status       EnrollmentStatus `db:"status" json:"status"`
}

// Transcript is the full ordered transcript of one student.
type Transcript struct {
	StudentCode string           `json:"student_code"`
	StudentName string           `json:"student_name"`
	GPA         *float64         `json:"gpa"`
	Lines       []TranscriptLine `json:"lines"`
}

// DepartmentMetrics holds the raw aggregates computed for a department.
type DepartmentMetrics struct {
	TotalStudents  int      `db:"total_students"`
	ActiveStudents int      `db:"active_students"`
	AverageGPA     *float64 `db:"average_gpa"`
	TotalCourses   int      `db:"total_courses"`
	ActiveCourses  int      `db:"active_courses"`
}

// Metric is one named statistic row.
type Metric struct {
	Name  string   `json:"metric"`
	Value *float64 `json:"value"`
}

// DepartmentStatsOutcome tags a department statistics result.
type DepartmentStatsOutcome string

// Department statistics outcomes.
const (
	DepartmentStatsFound    DepartmentStatsOutcome = "found"
	DepartmentStatsNotFound DepartmentStatsOutcome = "not_found"
)

// DepartmentStats is either Found with five metric rows or NotFound with a message.
// NotFound is a successful answer, not an error.
type DepartmentStats struct {
	Outcome        DepartmentStatsOutcome `json:"outcome"`
	DepartmentCode string                 `json:"department_code"`
	Message        string                 `json:"message,omitempty"`
	Metrics        []Metric               `json:"metrics,omitempty"`
}

// Found reports whether the department resolved.
func (s DepartmentStats) Found() bool {
	return s.Outcome == DepartmentStatsFound
}

// NewDepartmentStats renders the five metric rows in their fixed order.
func NewDepartmentStats(code string, m DepartmentMetrics) DepartmentStats {
	count := func(v int) *float64 {
		f := float64(v)
		return &f
	}
	return DepartmentStats{
		Outcome:        DepartmentStatsFound,
		DepartmentCode: code,
		Metrics: []Metric{
			{Name: "Total Students", Value: count(m.TotalStudents)},
			{Name: "Active Students", Value: count(m.ActiveStudents)},
			{Name: "Average GPA", Value: m.AverageGPA},
			{Name: "Total Courses", Value: count(m.TotalCourses)},
			{Name: "Active Courses", Value: count(m.ActiveCourses)},
		},
	}
}

// DepartmentNotFound is the sentinel answer for an unknown department code.
func DepartmentNotFound(code string) DepartmentStats {
	return DepartmentStats{
		Outcome:        DepartmentStatsNotFound,
		DepartmentCode: code,
		Message:        "Department not found",
	}
}
