package attendance

import (
	"context"
	"time"

	"github.com/rusl-cricket/attendance/internal/metrics"
	"github.com/rusl-cricket/attendance/internal/model"
	"github.com/rusl-cricket/attendance/internal/store"
)

// RecentSessions returns the latest sessions, newest first, each with the
// names of the students marked present in ledger read order.
func (s *Service) RecentSessions(ctx context.Context, limit int) (out []model.RecentSession, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("recent_sessions", start, err) }(time.Now())

	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	err = s.ledger.View(ctx, func(r store.Reader) error {
		sessions, err := r.ListSessions(ctx, limit)
		if err != nil {
			return err
		}
		out = make([]model.RecentSession, 0, len(sessions))
		for _, sess := range sessions {
			records, err := r.AttendanceBySession(ctx, sess.ID)
			if err != nil {
				return err
			}
			names := make([]string, 0, len(records))
			for _, a := range records {
				if a.Present {
					names = append(names, a.StudentName)
				}
			}
			out = append(out, model.RecentSession{ID: sess.ID, Date: sess.Date, PresentStudentNames: names})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AttendanceBySession returns every attendance row of a session.
func (s *Service) AttendanceBySession(ctx context.Context, sessionID int64) (out []model.Attendance, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("attendance_by_session", start, err) }(time.Now())

	err = s.ledger.View(ctx, func(r store.Reader) error {
		if _, err := r.GetSession(ctx, sessionID); err != nil {
			if isNotFound(err) {
				return model.NotFound("session", sessionID)
			}
			return err
		}
		out, err = r.AttendanceBySession(ctx, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AttendanceHistoryForStudent returns every attendance row of a student.
func (s *Service) AttendanceHistoryForStudent(ctx context.Context, studentID int64) (out []model.Attendance, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("attendance_history", start, err) }(time.Now())

	err = s.ledger.View(ctx, func(r store.Reader) error {
		if _, err := r.GetStudent(ctx, studentID); err != nil {
			if isNotFound(err) {
				return model.NotFound("student", studentID)
			}
			return err
		}
		out, err = r.AttendanceByStudent(ctx, studentID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
