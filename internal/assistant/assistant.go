package assistant

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/blockedu/blockedu/internal/attendance"
	"github.com/blockedu/blockedu/internal/fees"
	"github.com/blockedu/blockedu/internal/results"
	"github.com/blockedu/blockedu/internal/verification"
	"go.uber.org/zap"
)

// Reply is the assistant's answer to one chat message.
type Reply struct {
	Intent  string `json:"intent"`
	Message string `json:"message"`
}

// rule matches a message against a keyword pattern and produces a reply from
// live store data. Rules are evaluated in order; the first match wins.
type rule struct {
	intent  string
	pattern *regexp.Regexp
	respond func(ctx context.Context, a *Assistant, studentID string) (string, error)
}

// Assistant is the rule-based chat assistant. It holds read-only references
// to the domain services so answers reflect current data. Any of them may be
// nil; the matching rule then degrades to a generic answer.
type Assistant struct {
	fees       *fees.Service
	attendance *attendance.Store
	results    *results.Store
	verifier   *verification.Engine
	rules      []rule
	logger     *zap.Logger
}

// New creates an Assistant over the given services.
func New(feeSvc *fees.Service, att *attendance.Store, res *results.Store, verifier *verification.Engine, logger *zap.Logger) *Assistant {
	a := &Assistant{
		fees:       feeSvc,
		attendance: att,
		results:    res,
		verifier:   verifier,
		logger:     logger,
	}
	a.rules = []rule{
		{
			intent:  "greeting",
			pattern: regexp.MustCompile(`(?i)\b(hi|hello|hey|good (morning|afternoon|evening))\b`),
			respond: func(context.Context, *Assistant, string) (string, error) {
				return "Hello! I can help with fees, attendance, results, and record verification. What would you like to know?", nil
			},
		},
		{
			intent:  "fees",
			pattern: regexp.MustCompile(`(?i)\b(fees?|payments?|paid|dues?|tuition)\b`),
			respond: answerFees,
		},
		{
			intent:  "attendance",
			pattern: regexp.MustCompile(`(?i)\b(attendance|classes|present|absent)\b`),
			respond: answerAttendance,
		},
		{
			intent:  "results",
			pattern: regexp.MustCompile(`(?i)\b(cgpa|gpa|results?|grades?|marks)\b`),
			respond: answerResults,
		},
		{
			intent:  "verification",
			pattern: regexp.MustCompile(`(?i)\b(verify|verification|certificates?|records?|transcripts?|tampered)\b`),
			respond: answerVerification,
		},
		{
			intent:  "help",
			pattern: regexp.MustCompile(`(?i)\b(help|what can you do|options)\b`),
			respond: func(context.Context, *Assistant, string) (string, error) {
				return "Try asking about your fees, attendance percentage, CGPA, or whether your records are verified.", nil
			},
		},
	}
	return a
}

// Reply answers a chat message on behalf of the given student.
func (a *Assistant) Reply(ctx context.Context, studentID, message string) Reply {
	for _, r := range a.rules {
		if !r.pattern.MatchString(message) {
			continue
		}
		msg, err := r.respond(ctx, a, studentID)
		if err != nil {
			a.logger.Warn("assistant rule failed",
				zap.String("intent", r.intent),
				zap.String("student_id", studentID),
				zap.Error(err),
			)
			return Reply{Intent: r.intent, Message: "Sorry, I couldn't look that up right now. Please try again."}
		}
		return Reply{Intent: r.intent, Message: msg}
	}
	return Reply{
		Intent:  "fallback",
		Message: "I didn't catch that. Ask me about fees, attendance, results, or record verification.",
	}
}

func answerFees(ctx context.Context, a *Assistant, studentID string) (string, error) {
	if a.fees == nil {
		return "Fee information is not available right now.", nil
	}
	sum, err := a.fees.Summarize(ctx, studentID)
	if err != nil {
		return "", err
	}
	if sum.Count == 0 {
		return "No fee payments are on file for you yet.", nil
	}
	return fmt.Sprintf("You have %d payment(s) on file totalling %.2f across %d term(s).",
		sum.Count, float64(sum.TotalMinor)/100, len(sum.ByTerm)), nil
}

func answerAttendance(ctx context.Context, a *Assistant, studentID string) (string, error) {
	if a.attendance == nil {
		return "Attendance information is not available right now.", nil
	}
	sum, err := a.attendance.Summarize(ctx, studentID)
	if err != nil {
		return "", err
	}
	if sum.Held == 0 {
		return "No attendance has been recorded for you yet.", nil
	}
	msg := fmt.Sprintf("Your overall attendance is %.1f%% (%d of %d classes).", sum.Percentage, sum.Attended, sum.Held)
	if sum.Low {
		msg += fmt.Sprintf(" This is below the %.0f%% requirement.", attendance.LowThreshold)
	}
	return msg, nil
}

func answerResults(ctx context.Context, a *Assistant, studentID string) (string, error) {
	if a.results == nil {
		return "Results are not available right now.", nil
	}
	tr, err := a.results.TranscriptFor(ctx, studentID)
	if err != nil {
		return "", err
	}
	if len(tr.Semesters) == 0 {
		return "No results have been published for you yet.", nil
	}
	return fmt.Sprintf("Your CGPA is %.2f across %d semester(s).", tr.CGPA, len(tr.Semesters)), nil
}

func answerVerification(ctx context.Context, a *Assistant, studentID string) (string, error) {
	if a.verifier == nil {
		return "Record verification is not available right now.", nil
	}
	report, err := a.verifier.VerifySubject(ctx, studentID)
	if err != nil {
		return "", err
	}
	if report.Total == 0 {
		return "You have no issued records yet.", nil
	}
	if report.Verified {
		return fmt.Sprintf("All %d of your records verified against the ledger.", report.Total), nil
	}
	return fmt.Sprintf("Attention: %s.", strings.TrimSuffix(report.Message, ".")), nil
}
