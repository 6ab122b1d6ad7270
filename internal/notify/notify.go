package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kind categorises a notification for display.
type Kind string

const (
	KindRecordIssued    Kind = "record_issued"
	KindPaymentRecorded Kind = "payment_recorded"
	KindResultPublished Kind = "result_published"
	KindGeneral         Kind = "general"
)

// Notification is a single in-app notification for a student.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	StudentID string    `json:"student_id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Dispatcher delivers a notification beyond the in-app feed. Out-of-app
// delivery channels are out of scope, so the only implementation logs.
type Dispatcher interface {
	Dispatch(ctx context.Context, n *Notification) error
}

// LogDispatcher logs notifications via zap instead of delivering them.
type LogDispatcher struct {
	logger *zap.Logger
}

// NewLogDispatcher creates a LogDispatcher backed by the given logger.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the notification and returns nil.
func (d *LogDispatcher) Dispatch(_ context.Context, n *Notification) error {
	d.logger.Info("notification (in-app only)",
		zap.String("student_id", n.StudentID),
		zap.String("kind", string(n.Kind)),
		zap.String("title", n.Title),
	)
	return nil
}

// Service stores the in-app notification feed and fans out to a dispatcher.
type Service struct {
	mu        sync.RWMutex
	byStudent map[string][]*Notification

	dispatcher Dispatcher
	logger     *zap.Logger
}

// NewService creates a Service. dispatcher may be nil.
func NewService(dispatcher Dispatcher, logger *zap.Logger) *Service {
	return &Service{
		byStudent:  make(map[string][]*Notification),
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Push appends a notification to the student's feed and dispatches it.
// Dispatch failures are logged, not returned; the feed entry always lands.
func (s *Service) Push(ctx context.Context, studentID string, kind Kind, title, body string) *Notification {
	n := &Notification{
		ID:        uuid.New(),
		StudentID: studentID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.byStudent[studentID] = append(s.byStudent[studentID], n)
	s.mu.Unlock()

	if s.dispatcher != nil {
		if err := s.dispatcher.Dispatch(ctx, n); err != nil {
			s.logger.Warn("notification dispatch failed", zap.Error(err))
		}
	}
	cp := *n
	return &cp
}

// ListByStudent returns a student's feed, newest first.
func (s *Service) ListByStudent(_ context.Context, studentID string) []*Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()
	feed := s.byStudent[studentID]
	out := make([]*Notification, 0, len(feed))
	for i := len(feed) - 1; i >= 0; i-- {
		cp := *feed[i]
		out = append(out, &cp)
	}
	return out
}

// MarkRead marks a notification as read. Returns false when the ID does not
// exist in the student's feed.
func (s *Service) MarkRead(_ context.Context, studentID string, id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.byStudent[studentID] {
		if n.ID == id {
			n.Read = true
			return true
		}
	}
	return false
}
