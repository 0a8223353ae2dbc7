package attendance

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rusl-cricket/attendance/internal/model"
	"github.com/rusl-cricket/attendance/internal/store"
	"github.com/rusl-cricket/attendance/internal/store/memory"
)

type ServiceSuite struct {
	suite.Suite
	ledger  *memory.Storage
	service *Service
	ctx     context.Context
	now     time.Time
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ledger = memory.New()
	s.now = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = NewService(s.ledger, logger, WithClock(func() time.Time { return s.now }))
	s.ctx = context.Background()
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *ServiceSuite) addStudent(regNo, name string, userID *int64) *model.Student {
	st := &model.Student{RegNo: regNo, Name: name, Faculty: "FOT", Year: 2021, UserID: userID, CreatedAt: s.now}
	err := s.ledger.Update(s.ctx, func(tx store.Tx) error { return tx.CreateStudent(s.ctx, st) })
	s.Require().NoError(err)
	return st
}

func (s *ServiceSuite) addUser(email string) *model.User {
	u := &model.User{Email: email, Role: model.RoleStudent, PasswordHash: "x", CreatedAt: s.now}
	err := s.ledger.Update(s.ctx, func(tx store.Tx) error { return tx.CreateUser(s.ctx, u) })
	s.Require().NoError(err)
	return u
}

func (s *ServiceSuite) session(d time.Time) *model.PracticeSession {
	sess, err := s.service.EnsureSession(s.ctx, d)
	s.Require().NoError(err)
	return sess
}

func (s *ServiceSuite) attendanceRows() []model.Attendance {
	var rows []model.Attendance
	err := s.ledger.View(s.ctx, func(r store.Reader) error {
		var err error
		rows, err = r.ListAttendance(s.ctx)
		return err
	})
	s.Require().NoError(err)
	return rows
}

// Session manager

func (s *ServiceSuite) TestEnsureSessionIsIdempotent() {
	first := s.session(day(2025, 1, 10))
	s.now = s.now.Add(time.Hour)
	second := s.session(day(2025, 1, 10))

	s.Equal(first.ID, second.ID)
	s.Equal(first.CreatedAt, second.CreatedAt)
	s.Equal(day(2025, 1, 10), second.Date)
}

func (s *ServiceSuite) TestEnsureSessionTruncatesToDay() {
	first := s.session(time.Date(2025, 1, 10, 7, 0, 0, 0, time.UTC))
	second := s.session(time.Date(2025, 1, 10, 18, 45, 0, 0, time.UTC))
	s.Equal(first.ID, second.ID)

	other := s.session(day(2025, 1, 11))
	s.NotEqual(first.ID, other.ID)
}

func (s *ServiceSuite) TestEnsureSessionConcurrentCallsConverge() {
	var wg sync.WaitGroup
	ids := make([]int64, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := s.service.EnsureSession(s.ctx, day(2025, 2, 2))
			s.NoError(err)
			ids[i] = sess.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		s.Equal(ids[0], id)
	}
	var n int64
	_ = s.ledger.View(s.ctx, func(r store.Reader) error {
		n, _ = r.CountSessions(s.ctx)
		return nil
	})
	s.Equal(int64(1), n)
}

// Recorder

func (s *ServiceSuite) TestRecordAttendanceUpsertsLastValue() {
	alice := s.addStudent("TG/2021/001", "Alice", nil)
	sess := s.session(day(2025, 1, 10))

	for _, present := range []bool{true, false, true, false} {
		err := s.service.RecordAttendance(s.ctx, sess.ID, []model.Mark{{StudentID: alice.ID, Present: present}})
		s.Require().NoError(err)
	}

	rows := s.attendanceRows()
	s.Require().Len(rows, 1)
	s.False(rows[0].Present)
	s.Equal(sess.ID, rows[0].SessionID)
	s.Equal(alice.ID, rows[0].StudentID)
}

func (s *ServiceSuite) TestRecordAttendanceUnknownStudentLeavesLedgerUnchanged() {
	alice := s.addStudent("TG/2021/001", "Alice", nil)
	bob := s.addStudent("TG/2021/002", "Bob", nil)
	sess := s.session(day(2025, 1, 10))
	s.Require().NoError(s.service.RecordAttendance(s.ctx, sess.ID, []model.Mark{{StudentID: alice.ID, Present: true}}))

	err := s.service.RecordAttendance(s.ctx, sess.ID, []model.Mark{
		{StudentID: alice.ID, Present: false},
		{StudentID: bob.ID, Present: true},
		{StudentID: 999, Present: true},
	})

	var nf *model.NotFoundError
	s.Require().ErrorAs(err, &nf)
	s.Equal("student", nf.Entity)
	s.Equal(int64(999), nf.ID)
	s.ErrorIs(err, model.ErrNotFound)

	rows := s.attendanceRows()
	s.Require().Len(rows, 1)
	s.True(rows[0].Present)
}

func (s *ServiceSuite) TestRecordAttendanceUnknownSession() {
	alice := s.addStudent("TG/2021/001", "Alice", nil)

	err := s.service.RecordAttendance(s.ctx, 42, []model.Mark{{StudentID: alice.ID, Present: true}})

	var nf *model.NotFoundError
	s.Require().ErrorAs(err, &nf)
	s.Equal("session", nf.Entity)
	s.Empty(s.attendanceRows())
}

func (s *ServiceSuite) TestRecordAttendanceConcurrentBatchesKeepPairsUnique() {
	alice := s.addStudent("TG/2021/001", "Alice", nil)
	bob := s.addStudent("TG/2021/002", "Bob", nil)
	sess := s.session(day(2025, 1, 10))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(present bool) {
			defer wg.Done()
			s.NoError(s.service.RecordAttendance(s.ctx, sess.ID, []model.Mark{
				{StudentID: alice.ID, Present: present},
				{StudentID: bob.ID, Present: !present},
			}))
		}(i%2 == 0)
	}
	wg.Wait()

	s.Len(s.attendanceRows(), 2)
}

func (s *ServiceSuite) TestRecordAttendanceEmptyBatch() {
	sess := s.session(day(2025, 1, 10))
	s.NoError(s.service.RecordAttendance(s.ctx, sess.ID, nil))
	s.Empty(s.attendanceRows())
}

// Queries

func (s *ServiceSuite) TestRecentSessionsNewestFirstWithPresentNames() {
	alice := s.addStudent("TG/2021/001", "Alice", nil)
	bob := s.addStudent("TG/2021/002", "Bob", nil)
	older := s.session(day(2025, 1, 10))
	newer := s.session(day(2025, 1, 20))
	s.Require().NoError(s.service.RecordAttendance(s.ctx, older.ID, []model.Mark{
		{StudentID: alice.ID, Present: true},
		{StudentID: bob.ID, Present: true},
	}))
	s.Require().NoError(s.service.RecordAttendance(s.ctx, newer.ID, []model.Mark{
		{StudentID: alice.ID, Present: false},
		{StudentID: bob.ID, Present: true},
	}))

	recent, err := s.service.RecentSessions(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(recent, 2)
	s.Equal(newer.ID, recent[0].ID)
	s.Equal([]string{"Bob"}, recent[0].PresentStudentNames)
	s.Equal(older.ID, recent[1].ID)
	s.Equal([]string{"Alice", "Bob"}, recent[1].PresentStudentNames)
}

func (s *ServiceSuite) TestRecentSessionsRespectsLimit() {
	for d := 1; d <= 12; d++ {
		s.session(day(2025, 4, d))
	}

	recent, err := s.service.RecentSessions(s.ctx, 0)
	s.Require().NoError(err)
	s.Len(recent, DefaultRecentLimit)
	s.Equal(day(2025, 4, 12), recent[0].Date)

	recent, err = s.service.RecentSessions(s.ctx, 3)
	s.Require().NoError(err)
	s.Len(recent, 3)
	s.NotNil(recent[2].PresentStudentNames)
}

func (s *ServiceSuite) TestAttendanceBySession() {
	alice := s.addStudent("TG/2021/001", "Alice", nil)
	sess := s.session(day(2025, 1, 10))
	s.Require().NoError(s.service.RecordAttendance(s.ctx, sess.ID, []model.Mark{{StudentID: alice.ID, Present: true}}))

	rows, err := s.service.AttendanceBySession(s.ctx, sess.ID)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal("Alice", rows[0].StudentName)
	s.Equal("TG/2021/001", rows[0].StudentRegNo)
	s.Equal(day(2025, 1, 10), rows[0].SessionDate)

	_, err = s.service.AttendanceBySession(s.ctx, 404)
	s.ErrorIs(err, model.ErrNotFound)
}

func (s *ServiceSuite) TestAttendanceHistoryForStudent() {
	alice := s.addStudent("TG/2021/001", "Alice", nil)
	for d := 1; d <= 7; d++ {
		sess := s.session(day(2025, 5, d))
		s.Require().NoError(s.service.RecordAttendance(s.ctx, sess.ID, []model.Mark{{StudentID: alice.ID, Present: d%2 == 1}}))
	}

	rows, err := s.service.AttendanceHistoryForStudent(s.ctx, alice.ID)
	s.Require().NoError(err)
	s.Len(rows, 7)

	_, err = s.service.AttendanceHistoryForStudent(s.ctx, 404)
	var nf *model.NotFoundError
	s.Require().ErrorAs(err, &nf)
	s.Equal("student", nf.Entity)
}
