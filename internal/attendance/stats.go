package attendance

import (
	"context"
	"time"

	"github.com/rusl-cricket/attendance/internal/metrics"
	"github.com/rusl-cricket/attendance/internal/model"
	"github.com/rusl-cricket/attendance/internal/store"
)

// recentAttendanceLimit caps StudentStats.RecentAttendance.
const recentAttendanceLimit = 5

// percent returns part/whole*100, or 0 when whole is 0.
func percent(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// DashboardStats summarises sessions, roster size, overall attendance and
// the top attendee.
//
// AverageAttendance is present marks over every possible slot
// (sessions x players), and is 0 while no attendance has been recorded.
// The top attendee has the most present marks; ties go to the lowest
// student ID.
func (s *Service) DashboardStats(ctx context.Context) (out *model.DashboardStats, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("dashboard_stats", start, err) }(time.Now())

	err = s.ledger.View(ctx, func(r store.Reader) error {
		days, err := r.CountSessions(ctx)
		if err != nil {
			return err
		}
		players, err := r.CountStudents(ctx)
		if err != nil {
			return err
		}
		records, err := r.ListAttendance(ctx)
		if err != nil {
			return err
		}

		out = &model.DashboardStats{TotalPracticeDays: days, TotalPlayers: players}
		if len(records) == 0 {
			return nil
		}

		presentBy := make(map[int64]int64)
		names := make(map[int64]string)
		var present int64
		for _, a := range records {
			if !a.Present {
				continue
			}
			present++
			presentBy[a.StudentID]++
			names[a.StudentID] = a.StudentName
		}
		out.AverageAttendance = percent(present, days*players)

		var top int64
		var topCount int64
		for id, n := range presentBy {
			if n > topCount || (n == topCount && id < top) {
				top, topCount = id, n
			}
		}
		if topCount > 0 {
			out.TopAttendee = &model.TopAttendee{
				StudentID:            top,
				Name:                 names[top],
				AttendancePercentage: percent(topCount, days),
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// StudentStats reports attendance for the student profile linked to userID.
// TotalSessions counts every session, not only those the student was marked for.
func (s *Service) StudentStats(ctx context.Context, userID int64) (out *model.StudentStats, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("student_stats", start, err) }(time.Now())

	err = s.ledger.View(ctx, func(r store.Reader) error {
		student, err := r.StudentByUserID(ctx, userID)
		if err != nil {
			if isNotFound(err) {
				return model.NotFound("student profile", userID)
			}
			return err
		}
		records, err := r.AttendanceByStudent(ctx, student.ID)
		if err != nil {
			return err
		}
		total, err := r.CountSessions(ctx)
		if err != nil {
			return err
		}

		var attended int64
		for _, a := range records {
			if a.Present {
				attended++
			}
		}
		recent := make([]model.AttendanceEntry, 0, recentAttendanceLimit)
		for i := 0; i < len(records) && i < recentAttendanceLimit; i++ {
			recent = append(recent, model.AttendanceEntry{
				Date:      records[i].SessionDate.Format(model.DateLayout),
				IsPresent: records[i].Present,
			})
		}

		out = &model.StudentStats{
			AttendancePercentage: percent(attended, total),
			SessionsAttended:     attended,
			TotalSessions:        total,
			RecentAttendance:     recent,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MonthlyAttendance buckets every attendance row by the calendar month of
// its session, ignoring the year. Buckets come back January first and
// months without rows are left out.
func (s *Service) MonthlyAttendance(ctx context.Context) (out []model.MonthlyAttendance, err error) {
	defer func(start time.Time) { metrics.ObserveOperation("monthly_attendance", start, err) }(time.Now())

	err = s.ledger.View(ctx, func(r store.Reader) error {
		records, err := r.ListAttendance(ctx)
		if err != nil {
			return err
		}

		var buckets [12]model.MonthlyAttendance
		for _, a := range records {
			b := &buckets[a.SessionDate.Month()-1]
			if a.Present {
				b.Present++
			} else {
				b.Absent++
			}
		}

		out = make([]model.MonthlyAttendance, 0, len(buckets))
		for i, b := range buckets {
			if b.Present+b.Absent == 0 {
				continue
			}
			b.Month = time.Month(i + 1).String()
			out = append(out, b)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
