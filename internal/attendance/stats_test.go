package attendance

import (
	"time"

	"github.com/rusl-cricket/attendance/internal/model"
)

func (s *ServiceSuite) TestDashboardStatsEmptyLedger() {
	stats, err := s.service.DashboardStats(s.ctx)
	s.Require().NoError(err)
	s.Equal(&model.DashboardStats{}, stats)
	s.Nil(stats.TopAttendee)
}

func (s *ServiceSuite) TestDashboardStatsPlayersWithoutSessions() {
	for _, reg := range []string{"A", "B", "C", "D", "E"} {
		s.addStudent(reg, "Player "+reg, nil)
	}

	stats, err := s.service.DashboardStats(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(0), stats.TotalPracticeDays)
	s.Equal(int64(5), stats.TotalPlayers)
	s.Equal(0.0, stats.AverageAttendance)
	s.Nil(stats.TopAttendee)
}

func (s *ServiceSuite) TestDashboardStatsSinglePresentMark() {
	alice := s.addStudent("TG/2021/001", "Alice", nil)
	sess := s.session(day(2025, 1, 10))
	s.Require().NoError(s.service.RecordAttendance(s.ctx, sess.ID, []model.Mark{{StudentID: alice.ID, Present: true}}))

	stats, err := s.service.DashboardStats(s.ctx)
	s.Require().NoError(err)
	s.Equal(100.0, stats.AverageAttendance)
	s.Require().NotNil(stats.TopAttendee)
	s.Equal("Alice", stats.TopAttendee.Name)
	s.Equal(100.0, stats.TopAttendee.AttendancePercentage)
}

func (s *ServiceSuite) TestDashboardStatsAverageUsesAllSlots() {
	alice := s.addStudent("TG/2021/001", "Alice", nil)
	bob := s.addStudent("TG/2021/002", "Bob", nil)
	s.addStudent("TG/2021/003", "Carol", nil)
	s.addStudent("TG/2021/004", "Dan", nil)
	first := s.session(day(2025, 1, 10))
	second := s.session(day(2025, 1, 11))
	s.Require().NoError(s.service.RecordAttendance(s.ctx, first.ID, []model.Mark{
		{StudentID: alice.ID, Present: true},
		{StudentID: bob.ID, Present: false},
	}))
	s.Require().NoError(s.service.RecordAttendance(s.ctx, second.ID, []model.Mark{
		{StudentID: alice.ID, Present: true},
		{StudentID: bob.ID, Present: true},
	}))

	stats, err := s.service.DashboardStats(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), stats.TotalPracticeDays)
	s.Equal(int64(4), stats.TotalPlayers)
	// 3 present marks over 2 sessions x 4 players.
	s.InDelta(37.5, stats.AverageAttendance, 1e-9)
	s.Require().NotNil(stats.TopAttendee)
	s.Equal("Alice", stats.TopAttendee.Name)
	s.InDelta(100.0, stats.TopAttendee.AttendancePercentage, 1e-9)
}

func (s *ServiceSuite) TestDashboardStatsTieGoesToLowestStudentID() {
	alice := s.addStudent("TG/2021/001", "Alice", nil)
	bob := s.addStudent("TG/2021/002", "Bob", nil)
	first := s.session(day(2025, 1, 10))
	second := s.session(day(2025, 1, 11))
	s.Require().NoError(s.service.RecordAttendance(s.ctx, first.ID, []model.Mark{
		{StudentID: bob.ID, Present: true},
		{StudentID: alice.ID, Present: false},
	}))
	s.Require().NoError(s.service.RecordAttendance(s.ctx, second.ID, []model.Mark{
		{StudentID: alice.ID, Present: true},
	}))

	for i := 0; i < 20; i++ {
		stats, err := s.service.DashboardStats(s.ctx)
		s.Require().NoError(err)
		s.Require().NotNil(stats.TopAttendee)
		s.Equal(alice.ID, stats.TopAttendee.StudentID)
		s.InDelta(50.0, stats.TopAttendee.AttendancePercentage, 1e-9)
	}
}

func (s *ServiceSuite) TestDashboardStatsOnlyAbsentMarks() {
	alice := s.addStudent("TG/2021/001", "Alice", nil)
	sess := s.session(day(2025, 1, 10))
	s.Require().NoError(s.service.RecordAttendance(s.ctx, sess.ID, []model.Mark{{StudentID: alice.ID, Present: false}}))

	stats, err := s.service.DashboardStats(s.ctx)
	s.Require().NoError(err)
	s.Equal(0.0, stats.AverageAttendance)
	s.Nil(stats.TopAttendee)
}

func (s *ServiceSuite) TestStudentStats() {
	user := s.addUser("alice@tec.rjt.ac.lk")
	alice := s.addStudent("TG/2021/001", "Alice", &user.ID)
	bob := s.addStudent("TG/2021/002", "Bob", nil)
	for d := 1; d <= 8; d++ {
		sess := s.session(day(2025, 6, d))
		marks := []model.Mark{{StudentID: bob.ID, Present: true}}
		if d <= 6 {
			marks = append(marks, model.Mark{StudentID: alice.ID, Present: d != 2})
		}
		s.Require().NoError(s.service.RecordAttendance(s.ctx, sess.ID, marks))
	}

	stats, err := s.service.StudentStats(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(int64(5), stats.SessionsAttended)
	s.Equal(int64(8), stats.TotalSessions)
	s.InDelta(62.5, stats.AttendancePercentage, 1e-9)
	s.Require().Len(stats.RecentAttendance, 5)
	s.Equal(model.AttendanceEntry{Date: "2025-06-01", IsPresent: true}, stats.RecentAttendance[0])
	s.Equal(model.AttendanceEntry{Date: "2025-06-02", IsPresent: false}, stats.RecentAttendance[1])
}

func (s *ServiceSuite) TestStudentStatsWithoutSessions() {
	user := s.addUser("alice@tec.rjt.ac.lk")
	s.addStudent("TG/2021/001", "Alice", &user.ID)

	stats, err := s.service.StudentStats(s.ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(0.0, stats.AttendancePercentage)
	s.Equal(int64(0), stats.TotalSessions)
	s.NotNil(stats.RecentAttendance)
	s.Empty(stats.RecentAttendance)
}

func (s *ServiceSuite) TestStudentStatsNoLinkedProfile() {
	user := s.addUser("coach@rusl.lk")

	_, err := s.service.StudentStats(s.ctx, user.ID)
	var nf *model.NotFoundError
	s.Require().ErrorAs(err, &nf)
	s.Equal("student profile", nf.Entity)
}

func (s *ServiceSuite) TestMonthlyAttendanceSingleMonth() {
	alice := s.addStudent("TG/2021/001", "Alice", nil)
	for _, d := range []int{10, 20} {
		sess := s.session(day(2025, 1, d))
		s.Require().NoError(s.service.RecordAttendance(s.ctx, sess.ID, []model.Mark{{StudentID: alice.ID, Present: true}}))
	}

	monthly, err := s.service.MonthlyAttendance(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.MonthlyAttendance{{Month: "January", Present: 2, Absent: 0}}, monthly)
}

func (s *ServiceSuite) TestMonthlyAttendanceOrderedAndMergesYears() {
	alice := s.addStudent("TG/2021/001", "Alice", nil)
	bob := s.addStudent("TG/2021/002", "Bob", nil)
	mark := func(d int, m, y int, alicePresent, bobPresent bool) {
		sess := s.session(day(y, time.Month(m), d))
		s.Require().NoError(s.service.RecordAttendance(s.ctx, sess.ID, []model.Mark{
			{StudentID: alice.ID, Present: alicePresent},
			{StudentID: bob.ID, Present: bobPresent},
		}))
	}
	mark(5, 11, 2024, true, false)
	mark(3, 2, 2025, true, true)
	mark(7, 11, 2025, false, false)
	mark(9, 1, 2025, true, false)

	monthly, err := s.service.MonthlyAttendance(s.ctx)
	s.Require().NoError(err)
	s.Equal([]model.MonthlyAttendance{
		{Month: "January", Present: 1, Absent: 1},
		{Month: "February", Present: 2, Absent: 0},
		{Month: "November", Present: 1, Absent: 3},
	}, monthly)
}

func (s *ServiceSuite) TestMonthlyAttendanceEmpty() {
	s.session(day(2025, 1, 10))

	monthly, err := s.service.MonthlyAttendance(s.ctx)
	s.Require().NoError(err)
	s.Empty(monthly)
}
