// Package attendance is the attendance reconciliation and statistics engine.
//
// Every operation is a single call against the ledger: reads run inside
// store.Ledger.View and writes inside store.Ledger.Update. Nothing is
// cached between calls.
package attendance

import (
	"context"
	"log/slog"
	"time"

	"github.com/rusl-cricket/attendance/internal/metrics"
	"github.com/rusl-cricket/attendance/internal/model"
	"github.com/rusl-cricket/attendance/internal/store"
)

// DefaultRecentLimit is the number of sessions RecentSessions returns when
// no limit is given.
const DefaultRecentLimit = 10

// Service coordinates session creation, attendance recording and reporting.
type Service struct {
	ledger store.Ledger
	log    *slog.Logger
	now    func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for session timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a service backed by a ledger.
func NewService(ledger store.Ledger, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		ledger: ledger,
		log:    logger.With(slog.String("component", "attendance")),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureSession returns the practice session for date, creating it if this
// is the first call for that day. Repeated calls converge on one row.
func (s *Service) EnsureSession(ctx context.Context, date time.Time) (sess *model.PracticeSession, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("ensure_session", start, err) }(time.Now())

	day := model.Day(date)
	created := false
	err = s.ledger.Update(ctx, func(tx store.Tx) error {
		existing, err := tx.SessionByDate(ctx, day)
		if err == nil {
			sess = existing
			return nil
		}
		if !isNotFound(err) {
			return err
		}
		sess, err = tx.CreateSession(ctx, day, s.now().UTC())
		created = err == nil
		return err
	})
	if err != nil {
		return nil, err
	}
	if created {
		metrics.SessionsCreated.Inc()
		s.log.Info("practice session created",
			slog.Int64("session_id", sess.ID),
			slog.String("date", day.Format(model.DateLayout)))
	}
	return sess, nil
}
