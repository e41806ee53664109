// Package memstore provides an in-memory implementation of the record store
// with the same outcomes as the Postgres repositories. Every operation runs
// under one lock, so multi-step writes are atomic with respect to each other.
package memstore

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/student-records-api/internal/models"
	"github.com/noah-isme/student-records-api/internal/repository"
)

type memoryState struct {
	departments map[int64]models.Department
	students    map[int64]models.Student
	courses     map[int64]models.Course
	enrollments map[int64]models.Enrollment
}

// Store holds departments, students, courses and enrollments in memory.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	nextID int64
	now    func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		state: memoryState{
			departments: map[int64]models.Department{},
			students:    map[int64]models.Student{},
			courses:     map[int64]models.Course{},
			enrollments: map[int64]models.Enrollment{},
		},
		now: time.Now,
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

// AddDepartment seeds a department and returns it with its identity assigned.
func (s *Store) AddDepartment(d models.Department) models.Department {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.id()
	d.CreatedAt, d.UpdatedAt = s.now(), s.now()
	s.state.departments[d.ID] = d
	return d
}

// AddStudent seeds a student as-is, including status and GPA.
func (s *Store) AddStudent(st models.Student) models.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.ID = s.id()
	if st.Status == "" {
		st.Status = models.StudentStatusActive
	}
	st.EnrollmentDate, st.CreatedAt, st.UpdatedAt = s.now(), s.now(), s.now()
	s.state.students[st.ID] = st
	return st
}

// AddCourse seeds a course.
func (s *Store) AddCourse(c models.Course) models.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	c.CreatedAt, c.UpdatedAt = s.now(), s.now()
	s.state.courses[c.ID] = c
	return c
}

// AddEnrollment seeds an enrollment in any status.
func (s *Store) AddEnrollment(e models.Enrollment) models.Enrollment {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	e.EnrollmentDate, e.CreatedAt, e.UpdatedAt = s.now(), s.now(), s.now()
	s.state.enrollments[e.ID] = e
	return e
}

// Student returns a copy of the stored student.
func (s *Store) Student(id int64) (models.Student, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.state.students[id]
	return st, ok
}

// Departments exposes the department reads.
func (s *Store) Departments() *Departments { return &Departments{s: s} }

// Students exposes the student reads and writes.
func (s *Store) Students() *Students { return &Students{s: s} }

// Courses exposes the course reads.
func (s *Store) Courses() *Courses { return &Courses{s: s} }

// Enrollments exposes the enrollment transactions.
func (s *Store) Enrollments() *Enrollments { return &Enrollments{s: s} }

// Reports exposes transcript and department aggregates.
func (s *Store) Reports() *Reports { return &Reports{s: s} }

func (s *Store) departmentByCode(code string) (models.Department, bool) {
	for _, d := range s.state.departments {
		if d.Code == code {
			return d, true
		}
	}
	return models.Department{}, false
}

func (s *Store) departmentLabels(id *int64) (*string, *string) {
	if id == nil {
		return nil, nil
	}
	d, ok := s.state.departments[*id]
	if !ok {
		return nil, nil
	}
	code, name := d.Code, d.Name
	return &code, &name
}

func (s *Store) enrolledCount(courseID int64) int {
	n := 0
	for _, e := range s.state.enrollments {
		if e.CourseID == courseID && e.Status == models.EnrollmentStatusEnrolled {
			n++
		}
	}
	return n
}

func (s *Store) pair(studentID, courseID int64) (models.Enrollment, bool) {
	for _, e := range s.state.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return e, true
		}
	}
	return models.Enrollment{}, false
}

func page[T any](items []T, pageNum, size int) []T {
	_, size, offset := models.PageWindow(pageNum, size)
	if offset >= len(items) {
		return []T{}
	}
	end := offset + size
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// Departments is the department view of a Store.
type Departments struct{ s *Store }

// List returns all departments ordered by code.
func (v *Departments) List(ctx context.Context) ([]models.Department, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	out := make([]models.Department, 0, len(v.s.state.departments))
	for _, d := range v.s.state.departments {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

// FindByCode returns the department or sql.ErrNoRows.
func (v *Departments) FindByCode(ctx context.Context, code string) (*models.Department, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	d, ok := v.s.departmentByCode(code)
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &d, nil
}

// Students is the student view of a Store.
type Students struct{ s *Store }

// List filters and pages students ordered by identity.
func (v *Students) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var matched []models.StudentDetail
	for _, st := range v.s.state.students {
		if filter.Status != "" && st.Status != filter.Status {
			continue
		}
		detail := v.s.detail(st)
		if filter.DepartmentCode != "" && (detail.DepartmentCode == nil || *detail.DepartmentCode != strings.ToUpper(filter.DepartmentCode)) {
			continue
		}
		matched = append(matched, detail)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return page(matched, filter.Page, filter.PageSize), len(matched), nil
}

func (s *Store) detail(st models.Student) models.StudentDetail {
	code, name := s.departmentLabels(st.DepartmentID)
	return models.StudentDetail{Student: st, DepartmentCode: code, DepartmentName: name}
}

// FindByCode returns the student or sql.ErrNoRows.
func (v *Students) FindByCode(ctx context.Context, code string) (*models.StudentDetail, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, st := range v.s.state.students {
		if st.Code == code {
			detail := v.s.detail(st)
			return &detail, nil
		}
	}
	return nil, sql.ErrNoRows
}

// ExistsByEmail reports whether the email is taken.
func (v *Students) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, st := range v.s.state.students {
		if st.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// ExistsByCode reports whether the student code is taken.
func (v *Students) ExistsByCode(ctx context.Context, code string) (bool, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, st := range v.s.state.students {
		if st.Code == code {
			return true, nil
		}
	}
	return false, nil
}

// Create stores the student. Duplicate codes or emails fail as unique violations.
func (v *Students) Create(ctx context.Context, student *models.Student) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, st := range v.s.state.students {
		if st.Code == student.Code {
			return uniqueViolation("students_student_code_key")
		}
		if st.Email == student.Email {
			return uniqueViolation("students_email_key")
		}
	}
	if student.Status == "" {
		student.Status = models.StudentStatusActive
	}
	now := v.s.now()
	student.ID = v.s.id()
	student.EnrollmentDate, student.CreatedAt, student.UpdatedAt = now, now, now
	student.GPA = nil
	v.s.state.students[student.ID] = *student
	return nil
}

// Courses is the course view of a Store.
type Courses struct{ s *Store }

func (s *Store) courseDetail(c models.Course) models.CourseDetail {
	code, _ := s.departmentLabels(c.DepartmentID)
	enrolled := s.enrolledCount(c.ID)
	return models.CourseDetail{Course: c, DepartmentCode: code, EnrolledCount: enrolled, SeatsRemaining: c.MaxEnrollment - enrolled}
}

// List filters and pages courses ordered by code.
func (v *Courses) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var matched []models.CourseDetail
	for _, c := range v.s.state.courses {
		if filter.ActiveOnly && !c.IsActive {
			continue
		}
		detail := v.s.courseDetail(c)
		if filter.DepartmentCode != "" && (detail.DepartmentCode == nil || *detail.DepartmentCode != strings.ToUpper(filter.DepartmentCode)) {
			continue
		}
		matched = append(matched, detail)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Code < matched[j].Code })
	return page(matched, filter.Page, filter.PageSize), len(matched), nil
}

// FindByCode returns the course or sql.ErrNoRows.
func (v *Courses) FindByCode(ctx context.Context, code string) (*models.CourseDetail, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	for _, c := range v.s.state.courses {
		if c.Code == code {
			detail := v.s.courseDetail(c)
			return &detail, nil
		}
	}
	return nil, sql.ErrNoRows
}

// Enrollments is the enrollment view of a Store.
type Enrollments struct{ s *Store }

// FindByPair returns the enrollment or sql.ErrNoRows.
func (v *Enrollments) FindByPair(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	e, ok := v.s.pair(studentID, courseID)
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &e, nil
}

// Enroll follows the same check order as the Postgres repository: course,
// existing pair, then capacity.
func (v *Enrollments) Enroll(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	course, ok := v.s.state.courses[courseID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	existing, hasExisting := v.s.pair(studentID, courseID)
	if hasExisting && existing.Status.Blocking() {
		return nil, repository.ErrEnrollmentExists
	}
	if v.s.enrolledCount(courseID) >= course.MaxEnrollment {
		return nil, repository.ErrCourseFull
	}

	now := v.s.now()
	if hasExisting {
		existing.Status = models.EnrollmentStatusEnrolled
		existing.Grade, existing.GradePoints = nil, nil
		existing.EnrollmentDate, existing.UpdatedAt = now, now
		v.s.state.enrollments[existing.ID] = existing
		return &existing, nil
	}
	created := models.Enrollment{
		ID:             v.s.id(),
		StudentID:      studentID,
		CourseID:       courseID,
		EnrollmentDate: now,
		Status:         models.EnrollmentStatusEnrolled,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	v.s.state.enrollments[created.ID] = created
	return &created, nil
}

// Drop moves an Enrolled row to Dropped.
func (v *Enrollments) Drop(ctx context.Context, studentID, courseID int64) (*models.Enrollment, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	e, ok := v.s.pair(studentID, courseID)
	if !ok {
		return nil, sql.ErrNoRows
	}
	if e.Status != models.EnrollmentStatusEnrolled {
		return nil, repository.ErrEnrollmentNotEnrolled
	}
	e.Status = models.EnrollmentStatusDropped
	e.UpdatedAt = v.s.now()
	v.s.state.enrollments[e.ID] = e
	return &e, nil
}

// RecordGrade completes the enrollment with the grade and recomputes the student's GPA.
func (v *Enrollments) RecordGrade(ctx context.Context, params repository.GradeParams) (*float64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	student, ok := v.s.state.students[params.StudentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	e, ok := v.s.pair(params.StudentID, params.CourseID)
	if !ok {
		return nil, sql.ErrNoRows
	}
	grade := params.Grade
	e.Grade = &grade
	e.GradePoints = params.GradePoints
	e.Status = models.EnrollmentStatusCompleted
	e.UpdatedAt = v.s.now()
	v.s.state.enrollments[e.ID] = e

	var points []*float64
	for _, other := range v.s.state.enrollments {
		if other.StudentID == params.StudentID && other.Status == models.EnrollmentStatusCompleted {
			points = append(points, other.GradePoints)
		}
	}
	student.GPA = models.ComputeGPA(points)
	student.UpdatedAt = v.s.now()
	v.s.state.students[student.ID] = student
	return student.GPA, nil
}

// Reports is the reporting view of a Store.
type Reports struct{ s *Store }

// Transcript lists the student's enrollments, newest academic year first and
// semesters by name within a year.
func (v *Reports) Transcript(ctx context.Context, studentID int64) ([]models.TranscriptLine, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	lines := []models.TranscriptLine{}
	for _, e := range v.s.state.enrollments {
		if e.StudentID != studentID {
			continue
		}
		c := v.s.state.courses[e.CourseID]
		lines = append(lines, models.TranscriptLine{
			CourseCode:   c.Code,
			CourseName:   c.Name,
			Credits:      c.Credits,
			Semester:     c.Semester,
			AcademicYear: c.AcademicYear,
			Grade:        e.Grade,
			GradePoints:  e.GradePoints,
			Status:       e.Status,
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].AcademicYear != lines[j].AcademicYear {
			return lines[i].AcademicYear > lines[j].AcademicYear
		}
		if lines[i].Semester != lines[j].Semester {
			return lines[i].Semester < lines[j].Semester
		}
		return lines[i].CourseCode < lines[j].CourseCode
	})
	return lines, nil
}

// DepartmentMetrics aggregates the department's students and courses.
func (v *Reports) DepartmentMetrics(ctx context.Context, departmentID int64) (*models.DepartmentMetrics, error) {
	v.s.mu.RLock()
	defer v.s.mu.RUnlock()
	var m models.DepartmentMetrics
	var gpas []*float64
	for _, st := range v.s.state.students {
		if st.DepartmentID == nil || *st.DepartmentID != departmentID {
			continue
		}
		m.TotalStudents++
		if st.Status == models.StudentStatusActive {
			m.ActiveStudents++
		}
		gpas = append(gpas, st.GPA)
	}
	m.AverageGPA = models.ComputeGPA(gpas)
	for _, c := range v.s.state.courses {
		if c.DepartmentID == nil || *c.DepartmentID != departmentID {
			continue
		}
		m.TotalCourses++
		if c.IsActive {
			m.ActiveCourses++
		}
	}
	return &m, nil
}
