package models

import (
	"math"
	"strings"
)

// Grade letters accepted by the store. Only the letter grades carry points.
var gradePoints = map[string]float64{
	"A+": 4.00, "A": 4.00, "A-": 3.70,
	"B+": 3.30, "B": 3.00, "B-": 2.70,
	"C+": 2.30, "C": 2.00, "C-": 1.70,
	"D+": 1.30, "D": 1.00, "D-": 0.70,
	"F": 0.00,
}

// Non-letter grades: withdraw, incomplete, pass.
var nonPointGrades = map[string]struct{}{"W": {}, "I": {}, "P": {}}

// NormaliseGrade trims and upper-cases a grade literal.
func NormaliseGrade(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// KnownGrade reports whether the literal is in the enrollments.grade CHECK enumeration.
// Literals outside it are rejected up front since the store would refuse them.
func KnownGrade(grade string) bool {
	if _, ok := gradePoints[grade]; ok {
		return true
	}
	_, ok := nonPointGrades[grade]
	return ok
}

// GradePoints maps a grade literal to its points. W, I, P and anything unmapped yield nil.
func GradePoints(grade string) *float64 {
	points, ok := gradePoints[grade]
	if !ok {
		return nil
	}
	return &points
}

// ComputeGPA averages the given grade points and rounds half-up to two decimals.
// Nil entries are skipped; nil is returned when nothing remains.
func ComputeGPA(points []*float64) *float64 {
	var sum, n int64
	for _, p := range points {
		if p == nil {
			continue
		}
		sum += int64(math.Round(*p * 100))
		n++
	}
	if n == 0 {
		return nil
	}
	cents := (2*sum + n) / (2 * n)
	gpa := float64(cents) / 100
	return &gpa
}
