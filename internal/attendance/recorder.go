package attendance

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/rusl-cricket/attendance/internal/metrics"
	"github.com/rusl-cricket/attendance/internal/model"
	"github.com/rusl-cricket/attendance/internal/store"
)

func isNotFound(err error) bool { return errors.Is(err, model.ErrNotFound) }

// RecordAttendance applies a batch of presence marks to a session. The batch
// is one transaction: if the session or any student cannot be resolved,
// nothing is written. Existing rows for a (session, student) pair are
// updated in place; missing rows are inserted.
func (s *Service) RecordAttendance(ctx context.Context, sessionID int64, marks []model.Mark) (err error) {
	defer func(start time.Time) { metrics.ObserveOperation("record_attendance", start, err) }(time.Now())

	var inserted, updated int
	err = s.ledger.Update(ctx, func(tx store.Tx) error {
		if _, err := tx.GetSession(ctx, sessionID); err != nil {
			if isNotFound(err) {
				return model.NotFound("session", sessionID)
			}
			return err
		}

		for _, m := range marks {
			if _, err := tx.GetStudent(ctx, m.StudentID); err != nil {
				if isNotFound(err) {
					return model.NotFound("student", m.StudentID)
				}
				return err
			}

			existing, err := tx.FindAttendance(ctx, sessionID, m.StudentID)
			switch {
			case err == nil:
				existing.Present = m.Present
				if err := tx.UpdateAttendance(ctx, existing); err != nil {
					return err
				}
				updated++
			case isNotFound(err):
				a := &model.Attendance{SessionID: sessionID, StudentID: m.StudentID, Present: m.Present}
				if err := tx.InsertAttendance(ctx, a); err != nil {
					return err
				}
				inserted++
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Warn("attendance batch rejected",
			slog.Int64("session_id", sessionID),
			slog.Int("marks", len(marks)),
			slog.String("error", err.Error()))
		return err
	}

	metrics.MarksRecorded.WithLabelValues(metrics.ChangeInserted).Add(float64(inserted))
	metrics.MarksRecorded.WithLabelValues(metrics.ChangeUpdated).Add(float64(updated))
	s.log.Info("attendance recorded",
		slog.Int64("session_id", sessionID),
		slog.Int("inserted", inserted),
		slog.Int("updated", updated))
	return nil
}
