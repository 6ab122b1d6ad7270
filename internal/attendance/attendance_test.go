package attendance_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/blockedu/blockedu/internal/attendance"
)

func mark(t *testing.T, s *attendance.Store, course, date string, present bool) {
	t.Helper()
	_, err := s.Record(context.Background(), attendance.Draft{
		StudentID: "STU001", Course: course, Date: date, Present: present,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
}

func TestSummarize_percentages(t *testing.T) {
	s := attendance.NewStore()

	// CS101: 3 of 4 attended. MA201: 1 of 2 attended.
	mark(t, s, "CS101", "2026-08-01", true)
	mark(t, s, "CS101", "2026-08-02", true)
	mark(t, s, "CS101", "2026-08-03", false)
	mark(t, s, "CS101", "2026-08-04", true)
	mark(t, s, "MA201", "2026-08-01", true)
	mark(t, s, "MA201", "2026-08-02", false)

	sum, err := s.Summarize(context.Background(), "STU001")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Held != 6 || sum.Attended != 4 {
		t.Errorf("held/attended = %d/%d, want 6/4", sum.Held, sum.Attended)
	}
	if got := fmt.Sprintf("%.2f", sum.Percentage); got != "66.67" {
		t.Errorf("overall percentage = %s, want 66.67", got)
	}
	if !sum.Low {
		t.Error("66.67% overall must be flagged low")
	}

	if len(sum.Courses) != 2 {
		t.Fatalf("courses = %d, want 2", len(sum.Courses))
	}
	cs := sum.Courses[0]
	if cs.Course != "CS101" || cs.Percentage != 75.0 || cs.Low {
		t.Errorf("CS101 summary wrong: %+v", cs)
	}
	ma := sum.Courses[1]
	if ma.Course != "MA201" || ma.Percentage != 50.0 || !ma.Low {
		t.Errorf("MA201 summary wrong: %+v", ma)
	}
}

func TestRecord_remarkReplacesEntry(t *testing.T) {
	s := attendance.NewStore()

	mark(t, s, "CS101", "2026-08-01", false)
	mark(t, s, "CS101", "2026-08-01", true) // correction

	sum, _ := s.Summarize(context.Background(), "STU001")
	if sum.Held != 1 {
		t.Fatalf("held = %d, correction must not double-count", sum.Held)
	}
	if sum.Attended != 1 {
		t.Errorf("attended = %d, want the corrected value", sum.Attended)
	}
}

func TestSummarize_noMarks(t *testing.T) {
	s := attendance.NewStore()

	sum, err := s.Summarize(context.Background(), "STU404")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if sum.Held != 0 || sum.Percentage != 0 || sum.Low {
		t.Errorf("empty summary wrong: %+v", sum)
	}
}
