package assistant_test

import (
	"context"
	"strings"
	"testing"

	"github.com/blockedu/blockedu/internal/assistant"
	"github.com/blockedu/blockedu/internal/attendance"
	"github.com/blockedu/blockedu/internal/fees"
	"github.com/blockedu/blockedu/internal/hashing"
	"github.com/blockedu/blockedu/internal/results"
	"go.uber.org/zap"
)

func newAssistant(t *testing.T) (*assistant.Assistant, *fees.Service, *attendance.Store, *results.Store) {
	t.Helper()
	feeSvc := fees.NewService(nil, hashing.Default(), zap.NewNop())
	att := attendance.NewStore()
	res := results.NewStore()
	return assistant.New(feeSvc, att, res, nil, zap.NewNop()), feeSvc, att, res
}

func TestReply_greeting(t *testing.T) {
	a, _, _, _ := newAssistant(t)

	reply := a.Reply(context.Background(), "STU001", "Hello there")
	if reply.Intent != "greeting" {
		t.Errorf("intent = %q, want greeting", reply.Intent)
	}
}

func TestReply_feesFromLiveData(t *testing.T) {
	a, feeSvc, _, _ := newAssistant(t)
	ctx := context.Background()

	reply := a.Reply(ctx, "STU001", "how much fees have I paid?")
	if reply.Intent != "fees" || !strings.Contains(reply.Message, "No fee payments") {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	feeSvc.Record(ctx, fees.Draft{StudentID: "STU001", AmountMinor: 250_000, Term: "2026-fall", Method: fees.MethodUPI})

	reply = a.Reply(ctx, "STU001", "what about my fees now?")
	if !strings.Contains(reply.Message, "1 payment(s)") {
		t.Errorf("reply does not reflect recorded payment: %q", reply.Message)
	}
}

func TestReply_attendanceLowWarning(t *testing.T) {
	a, _, att, _ := newAssistant(t)
	ctx := context.Background()

	att.Record(ctx, attendance.Draft{StudentID: "STU001", Course: "CS101", Date: "2026-08-01", Present: true})
	att.Record(ctx, attendance.Draft{StudentID: "STU001", Course: "CS101", Date: "2026-08-02", Present: false})

	reply := a.Reply(ctx, "STU001", "show my attendance")
	if reply.Intent != "attendance" {
		t.Fatalf("intent = %q", reply.Intent)
	}
	if !strings.Contains(reply.Message, "50.0%") || !strings.Contains(reply.Message, "below") {
		t.Errorf("expected a low-attendance warning, got %q", reply.Message)
	}
}

func TestReply_cgpa(t *testing.T) {
	a, _, _, res := newAssistant(t)
	ctx := context.Background()

	res.Publish(ctx, results.Draft{
		StudentID: "STU001", Semester: 1,
		Courses: []results.CourseResult{{Course: "CS101", Credits: 4, Grade: "A"}},
	})

	reply := a.Reply(ctx, "STU001", "what is my CGPA?")
	if reply.Intent != "results" || !strings.Contains(reply.Message, "9.00") {
		t.Errorf("unexpected reply: %+v", reply)
	}
}

func TestReply_verificationDegradesWithoutEngine(t *testing.T) {
	a, _, _, _ := newAssistant(t)

	reply := a.Reply(context.Background(), "STU001", "are my records verified?")
	if reply.Intent != "verification" {
		t.Fatalf("intent = %q", reply.Intent)
	}
	if !strings.Contains(reply.Message, "not available") {
		t.Errorf("nil verifier must degrade gracefully, got %q", reply.Message)
	}
}

func TestReply_fallback(t *testing.T) {
	a, _, _, _ := newAssistant(t)

	reply := a.Reply(context.Background(), "STU001", "qwerty asdf")
	if reply.Intent != "fallback" {
		t.Errorf("intent = %q, want fallback", reply.Intent)
	}
}

func TestReply_firstMatchWins(t *testing.T) {
	a, _, _, _ := newAssistant(t)

	// Matches both greeting and fees patterns; greeting is ordered first.
	reply := a.Reply(context.Background(), "STU001", "hi, tell me about fees")
	if reply.Intent != "greeting" {
		t.Errorf("intent = %q, want greeting (rule order)", reply.Intent)
	}
}
