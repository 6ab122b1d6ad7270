package results

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound is returned when a student has no result for the semester.
var ErrNotFound = errors.New("semester result not found")

// gradePoints maps letter grades to grade points on a 10-point scale.
var gradePoints = map[string]float64{
	"A+": 10, "A": 9, "B+": 8, "B": 7, "C+": 6, "C": 5, "D": 4, "F": 0,
}

// CourseResult is a single course outcome inside a semester result.
type CourseResult struct {
	Course  string `json:"course"  binding:"required"`
	Credits int    `json:"credits" binding:"required,gt=0"`
	Grade   string `json:"grade"   binding:"required"`
}

// SemesterResult is a student's published result for one semester.
type SemesterResult struct {
	StudentID   string         `json:"student_id"`
	Semester    int            `json:"semester"`
	Courses     []CourseResult `json:"courses"`
	GPA         float64        `json:"gpa"`
	PublishedAt time.Time      `json:"published_at"`
}

// Draft carries the caller-supplied fields for publishing a semester result.
type Draft struct {
	StudentID string         `json:"student_id" binding:"required"`
	Semester  int            `json:"semester"   binding:"required,gt=0"`
	Courses   []CourseResult `json:"courses"    binding:"required,dive"`
}

// Transcript aggregates all of a student's semester results.
type Transcript struct {
	StudentID string           `json:"student_id"`
	Semesters []SemesterResult `json:"semesters"`
	CGPA      float64          `json:"cgpa"`
}

// Store keeps published results in memory and computes GPA/CGPA.
type Store struct {
	mu        sync.RWMutex
	byStudent map[string][]*SemesterResult
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{byStudent: make(map[string][]*SemesterResult)}
}

// Publish stores a semester result with its computed GPA. Re-publishing the
// same semester replaces the earlier result.
func (s *Store) Publish(_ context.Context, draft Draft) (*SemesterResult, error) {
	gpa, err := GPA(draft.Courses)
	if err != nil {
		return nil, err
	}

	res := &SemesterResult{
		StudentID:   draft.StudentID,
		Semester:    draft.Semester,
		Courses:     draft.Courses,
		GPA:         gpa,
		PublishedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing := s.byStudent[draft.StudentID]
	for i, r := range existing {
		if r.Semester == draft.Semester {
			existing[i] = res
			cp := *res
			return &cp, nil
		}
	}
	s.byStudent[draft.StudentID] = append(existing, res)
	cp := *res
	return &cp, nil
}

// GetSemester returns a student's result for one semester, or ErrNotFound.
func (s *Store) GetSemester(_ context.Context, studentID string, semester int) (*SemesterResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.byStudent[studentID] {
		if r.Semester == semester {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// TranscriptFor returns all of a student's results with the credit-weighted
// CGPA across semesters.
func (s *Store) TranscriptFor(_ context.Context, studentID string) (*Transcript, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr := &Transcript{StudentID: studentID}
	var totalPoints float64
	var totalCredits int
	for _, r := range s.byStudent[studentID] {
		tr.Semesters = append(tr.Semesters, *r)
		for _, c := range r.Courses {
			totalPoints += gradePoints[c.Grade] * float64(c.Credits)
			totalCredits += c.Credits
		}
	}
	if totalCredits > 0 {
		tr.CGPA = totalPoints / float64(totalCredits)
	}
	return tr, nil
}

// GPA computes the credit-weighted grade point average for a course list.
func GPA(courses []CourseResult) (float64, error) {
	var points float64
	var credits int
	for _, c := range courses {
		gp, ok := gradePoints[c.Grade]
		if !ok {
			return 0, fmt.Errorf("unknown grade %q", c.Grade)
		}
		points += gp * float64(c.Credits)
		credits += c.Credits
	}
	if credits == 0 {
		return 0, nil
	}
	return points / float64(credits), nil
}
