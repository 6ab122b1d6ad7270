package attendance

import (
	"context"
	"sync"
	"time"
)

// LowThreshold is the attendance percentage below which a course is flagged.
const LowThreshold = 75.0

// Mark is a single attendance entry for a student in a course.
type Mark struct {
	StudentID string    `json:"student_id"`
	Course    string    `json:"course"`
	Date      string    `json:"date"` // YYYY-MM-DD
	Present   bool      `json:"present"`
	MarkedAt  time.Time `json:"marked_at"`
}

// Draft carries the caller-supplied fields for a new mark.
type Draft struct {
	StudentID string `json:"student_id" binding:"required"`
	Course    string `json:"course"     binding:"required"`
	Date      string `json:"date"       binding:"required"`
	Present   bool   `json:"present"`
}

// CourseSummary holds per-course attendance analytics.
type CourseSummary struct {
	Course     string  `json:"course"`
	Held       int     `json:"held"`
	Attended   int     `json:"attended"`
	Percentage float64 `json:"percentage"`
	Low        bool    `json:"low"`
}

// Summary holds a student's overall attendance analytics.
type Summary struct {
	StudentID  string          `json:"student_id"`
	Held       int             `json:"held"`
	Attended   int             `json:"attended"`
	Percentage float64         `json:"percentage"`
	Low        bool            `json:"low"`
	Courses    []CourseSummary `json:"courses"`
}

// Store keeps attendance marks in memory and computes percentage analytics.
type Store struct {
	mu        sync.RWMutex
	byStudent map[string][]*Mark
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{byStudent: make(map[string][]*Mark)}
}

// Record stores a mark. Re-marking the same student/course/date replaces the
// earlier entry so a correction does not double-count a class.
func (s *Store) Record(_ context.Context, draft Draft) (*Mark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mark := &Mark{
		StudentID: draft.StudentID,
		Course:    draft.Course,
		Date:      draft.Date,
		Present:   draft.Present,
		MarkedAt:  time.Now().UTC(),
	}

	marks := s.byStudent[draft.StudentID]
	for i, m := range marks {
		if m.Course == draft.Course && m.Date == draft.Date {
			marks[i] = mark
			cp := *mark
			return &cp, nil
		}
	}
	s.byStudent[draft.StudentID] = append(marks, mark)
	cp := *mark
	return &cp, nil
}

// ListByStudent returns a student's marks in recording order.
func (s *Store) ListByStudent(_ context.Context, studentID string) ([]*Mark, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	marks := s.byStudent[studentID]
	out := make([]*Mark, len(marks))
	copy(out, marks)
	return out, nil
}

// Summarize computes overall and per-course percentages for a student.
func (s *Store) Summarize(_ context.Context, studentID string) (*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type tally struct{ held, attended int }
	perCourse := make(map[string]*tally)
	var courseOrder []string

	sum := &Summary{StudentID: studentID}
	for _, m := range s.byStudent[studentID] {
		t, ok := perCourse[m.Course]
		if !ok {
			t = &tally{}
			perCourse[m.Course] = t
			courseOrder = append(courseOrder, m.Course)
		}
		t.held++
		sum.Held++
		if m.Present {
			t.attended++
			sum.Attended++
		}
	}

	for _, course := range courseOrder {
		t := perCourse[course]
		cs := CourseSummary{
			Course:     course,
			Held:       t.held,
			Attended:   t.attended,
			Percentage: percentage(t.attended, t.held),
		}
		cs.Low = cs.Percentage < LowThreshold
		sum.Courses = append(sum.Courses, cs)
	}

	sum.Percentage = percentage(sum.Attended, sum.Held)
	sum.Low = sum.Held > 0 && sum.Percentage < LowThreshold
	return sum, nil
}

func percentage(attended, held int) float64 {
	if held == 0 {
		return 0
	}
	return float64(attended) * 100 / float64(held)
}
