package attendance

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"dailyattend/internal/apperr"
	"dailyattend/internal/metrics"
	"dailyattend/internal/model"
	"dailyattend/internal/queue"
)

// DayLayout is the calendar-day format used as half of a record's key.
const DayLayout = "2006-01-02"

// MarkedType is the queue message type published after a new record lands.
const MarkedType = "attendance.marked"

// RecordStore is the slice of storage the ledger needs.
type RecordStore interface {
	InsertAttendanceIfAbsent(ctx context.Context, userID int64, day, status string) (bool, error)
	ListAttendance(ctx context.Context, userID int64) ([]model.Record, error)
}

// Marked is the body of a MarkedType message.
type Marked struct {
	UserID int64  `json:"user_id"`
	Date   string `json:"date"`
	Status string `json:"status"`
}

// Service records one status per user per day and answers history queries.
type Service struct {
	records  RecordStore
	events   queue.Queue
	location *time.Location
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithQueue publishes a MarkedType message for each newly inserted record.
func WithQueue(q queue.Queue) Option {
	return func(s *Service) { s.events = q }
}

// WithLocation sets the time zone that decides the calendar day. Default UTC.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a ledger backed by a record store.
func NewService(records RecordStore, opts ...Option) *Service {
	s := &Service{records: records, location: time.UTC, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today returns the current calendar day in the ledger's time zone.
func (s *Service) Today() string {
	return s.now().In(s.location).Format(DayLayout)
}

// Mark records status for the user on today's date. Status is free text and
// stored as given. A second mark on the same day succeeds without changing anything.
func (s *Service) Mark(ctx context.Context, userID int64, status string) error {
	day := s.Today()
	inserted, err := s.records.InsertAttendanceIfAbsent(ctx, userID, day, status)
	if err != nil {
		return fmt.Errorf("%w: insert attendance: %v", apperr.ErrStorage, err)
	}
	if !inserted {
		metrics.Marks.WithLabelValues("duplicate").Inc()
		return nil
	}
	metrics.Marks.WithLabelValues("inserted").Inc()
	s.publish(ctx, Marked{UserID: userID, Date: day, Status: status})
	return nil
}

func (s *Service) publish(ctx context.Context, m Marked) {
	if s.events == nil {
		return
	}
	msg, err := queue.NewMessage(MarkedType, m)
	if err != nil {
		log.Printf("encode %s for user %d failed: %v", MarkedType, m.UserID, err)
		return
	}
	msg.ID = uuid.NewString()
	if err := s.events.Publish(ctx, msg); err != nil {
		log.Printf("queue publish failed: %v", err)
	}
}

// Own returns the caller's records, most recent first.
func (s *Service) Own(ctx context.Context, userID int64) ([]model.Record, error) {
	return s.list(ctx, userID)
}

// ForUser returns another user's records. Only admins may call it.
func (s *Service) ForUser(ctx context.Context, callerRole model.Role, targetID int64) ([]model.Record, error) {
	if callerRole != model.RoleAdmin {
		return nil, apperr.ErrAccessDenied
	}
	return s.list(ctx, targetID)
}

// ParseUserID parses a path id for ForUser.
func ParseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid user id %q", apperr.ErrInvalidInput, raw)
	}
	return id, nil
}

func (s *Service) list(ctx context.Context, userID int64) ([]model.Record, error) {
	recs, err := s.records.ListAttendance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list attendance: %v", apperr.ErrStorage, err)
	}
	if recs == nil {
		recs = []model.Record{}
	}
	return recs, nil
}
