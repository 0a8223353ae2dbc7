package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rusl-cricket/attendance/internal/model"
	"github.com/rusl-cricket/attendance/internal/store"
)

// Storage is an in-memory implementation of store.Ledger.
//
// Update runs against a copy of the tables and swaps it in on success, so a
// failed batch leaves no trace. Writers are serialised by the mutex, which
// is what keeps (session, student) and session dates unique.
type Storage struct {
	mu sync.RWMutex
	t  *tables
}

type pairKey struct {
	sessionID int64
	studentID int64
}

type tables struct {
	sessions       map[int64]*model.PracticeSession
	sessionsByDate map[string]int64
	students       map[int64]*model.Student
	users          map[int64]*model.User
	attendance     []*model.Attendance
	attendanceIdx  map[pairKey]int

	nextSessionID    int64
	nextStudentID    int64
	nextUserID       int64
	nextAttendanceID int64
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{t: &tables{
		sessions:         make(map[int64]*model.PracticeSession),
		sessionsByDate:   make(map[string]int64),
		students:         make(map[int64]*model.Student),
		users:            make(map[int64]*model.User),
		attendanceIdx:    make(map[pairKey]int),
		nextSessionID:    1,
		nextStudentID:    1,
		nextUserID:       1,
		nextAttendanceID: 1,
	}}
}

// Ensure Storage implements the interface
var _ store.Ledger = (*Storage)(nil)

// Rows are replaced, never mutated, so a shallow copy of the indexes is a
// full snapshot.
func (t *tables) clone() *tables {
	c := *t
	c.sessions = make(map[int64]*model.PracticeSession, len(t.sessions))
	for k, v := range t.sessions {
		c.sessions[k] = v
	}
	c.sessionsByDate = make(map[string]int64, len(t.sessionsByDate))
	for k, v := range t.sessionsByDate {
		c.sessionsByDate[k] = v
	}
	c.students = make(map[int64]*model.Student, len(t.students))
	for k, v := range t.students {
		c.students[k] = v
	}
	c.users = make(map[int64]*model.User, len(t.users))
	for k, v := range t.users {
		c.users[k] = v
	}
	c.attendance = append([]*model.Attendance(nil), t.attendance...)
	c.attendanceIdx = make(map[pairKey]int, len(t.attendanceIdx))
	for k, v := range t.attendanceIdx {
		c.attendanceIdx[k] = v
	}
	return &c
}

func (s *Storage) View(ctx context.Context, fn func(r store.Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&reader{t: s.t})
}

func (s *Storage) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &writer{reader{t: s.t.clone()}}
	if err := fn(tx); err != nil {
		return err
	}
	s.t = tx.t
	return nil
}

func (s *Storage) Ping(ctx context.Context) error { return nil }

func (s *Storage) Close() error { return nil }

// Read operations

type reader struct {
	t *tables
}

func dateKey(d time.Time) string { return model.Day(d).Format(model.DateLayout) }

func (r *reader) GetSession(ctx context.Context, id int64) (*model.PracticeSession, error) {
	sess, ok := r.t.sessions[id]
	if !ok {
		return nil, model.NotFound("session", id)
	}
	out := *sess
	return &out, nil
}

func (r *reader) SessionByDate(ctx context.Context, date time.Time) (*model.PracticeSession, error) {
	id, ok := r.t.sessionsByDate[dateKey(date)]
	if !ok {
		return nil, model.NotFound("session", dateKey(date))
	}
	return r.GetSession(ctx, id)
}

func (r *reader) ListSessions(ctx context.Context, limit int) ([]model.PracticeSession, error) {
	out := make([]model.PracticeSession, 0, len(r.t.sessions))
	for _, sess := range r.t.sessions {
		out = append(out, *sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *reader) CountSessions(ctx context.Context) (int64, error) {
	return int64(len(r.t.sessions)), nil
}

func (r *reader) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	st, ok := r.t.students[id]
	if !ok {
		return nil, model.NotFound("student", id)
	}
	out := *st
	return &out, nil
}

func (r *reader) StudentByRegNo(ctx context.Context, regNo string) (*model.Student, error) {
	for _, st := range r.t.students {
		if st.RegNo == regNo {
			out := *st
			return &out, nil
		}
	}
	return nil, model.NotFound("student", regNo)
}

func (r *reader) StudentByUserID(ctx context.Context, userID int64) (*model.Student, error) {
	for _, st := range r.t.students {
		if st.UserID != nil && *st.UserID == userID {
			out := *st
			return &out, nil
		}
	}
	return nil, model.NotFound("student profile", userID)
}

func (r *reader) ListStudents(ctx context.Context) ([]model.Student, error) {
	out := make([]model.Student, 0, len(r.t.students))
	for _, st := range r.t.students {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *reader) CountStudents(ctx context.Context) (int64, error) {
	return int64(len(r.t.students)), nil
}

func (r *reader) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, ok := r.t.users[id]
	if !ok {
		return nil, model.NotFound("user", id)
	}
	out := *u
	return &out, nil
}

func (r *reader) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.t.users {
		if strings.EqualFold(u.Email, email) {
			out := *u
			return &out, nil
		}
	}
	return nil, model.NotFound("user", email)
}

// joined fills the read-side projection of a stored row.
func (r *reader) joined(a *model.Attendance) model.Attendance {
	out := *a
	if sess, ok := r.t.sessions[a.SessionID]; ok {
		out.SessionDate = sess.Date
	}
	if st, ok := r.t.students[a.StudentID]; ok {
		out.StudentName = st.Name
		out.StudentRegNo = st.RegNo
	}
	return out
}

func (r *reader) FindAttendance(ctx context.Context, sessionID, studentID int64) (*model.Attendance, error) {
	i, ok := r.t.attendanceIdx[pairKey{sessionID, studentID}]
	if !ok {
		return nil, model.NotFound("attendance", pairKey{sessionID, studentID})
	}
	out := r.joined(r.t.attendance[i])
	return &out, nil
}

func (r *reader) filterAttendance(keep func(a *model.Attendance) bool) []model.Attendance {
	out := make([]model.Attendance, 0)
	for _, a := range r.t.attendance {
		if keep(a) {
			out = append(out, r.joined(a))
		}
	}
	return out
}

func (r *reader) AttendanceBySession(ctx context.Context, sessionID int64) ([]model.Attendance, error) {
	return r.filterAttendance(func(a *model.Attendance) bool { return a.SessionID == sessionID }), nil
}

func (r *reader) AttendanceByStudent(ctx context.Context, studentID int64) ([]model.Attendance, error) {
	return r.filterAttendance(func(a *model.Attendance) bool { return a.StudentID == studentID }), nil
}

func (r *reader) ListAttendance(ctx context.Context) ([]model.Attendance, error) {
	return r.filterAttendance(func(*model.Attendance) bool { return true }), nil
}

// Write operations

type writer struct {
	reader
}

func (w *writer) CreateSession(ctx context.Context, date, createdAt time.Time) (*model.PracticeSession, error) {
	key := dateKey(date)
	if id, ok := w.t.sessionsByDate[key]; ok {
		return w.GetSession(ctx, id)
	}
	sess := &model.PracticeSession{ID: w.t.nextSessionID, Date: model.Day(date), CreatedAt: createdAt}
	w.t.nextSessionID++
	w.t.sessions[sess.ID] = sess
	w.t.sessionsByDate[key] = sess.ID
	out := *sess
	return &out, nil
}

func (w *writer) InsertAttendance(ctx context.Context, a *model.Attendance) error {
	if _, ok := w.t.sessions[a.SessionID]; !ok {
		return model.NotFound("session", a.SessionID)
	}
	if _, ok := w.t.students[a.StudentID]; !ok {
		return model.NotFound("student", a.StudentID)
	}
	key := pairKey{a.SessionID, a.StudentID}
	if i, ok := w.t.attendanceIdx[key]; ok {
		a.ID = w.t.attendance[i].ID
		return w.UpdateAttendance(ctx, a)
	}
	row := &model.Attendance{ID: w.t.nextAttendanceID, SessionID: a.SessionID, StudentID: a.StudentID, Present: a.Present}
	w.t.nextAttendanceID++
	w.t.attendanceIdx[key] = len(w.t.attendance)
	w.t.attendance = append(w.t.attendance, row)
	a.ID = row.ID
	return nil
}

func (w *writer) UpdateAttendance(ctx context.Context, a *model.Attendance) error {
	i, ok := w.t.attendanceIdx[pairKey{a.SessionID, a.StudentID}]
	if !ok || w.t.attendance[i].ID != a.ID {
		return model.NotFound("attendance", a.ID)
	}
	row := *w.t.attendance[i]
	row.Present = a.Present
	w.t.attendance[i] = &row
	return nil
}

func (w *writer) CreateUser(ctx context.Context, u *model.User) error {
	if _, err := w.UserByEmail(ctx, u.Email); err == nil {
		return model.ErrAlreadyExists
	}
	u.ID = w.t.nextUserID
	w.t.nextUserID++
	row := *u
	w.t.users[u.ID] = &row
	return nil
}

func (w *writer) checkStudentUnique(s *model.Student) error {
	for _, other := range w.t.students {
		if other.ID == s.ID {
			continue
		}
		if other.RegNo == s.RegNo {
			return model.ErrAlreadyExists
		}
		if s.UserID != nil && other.UserID != nil && *other.UserID == *s.UserID {
			return model.ErrAlreadyExists
		}
	}
	return nil
}

func (w *writer) CreateStudent(ctx context.Context, s *model.Student) error {
	s.ID = 0
	if err := w.checkStudentUnique(s); err != nil {
		return err
	}
	if s.UserID != nil {
		if _, ok := w.t.users[*s.UserID]; !ok {
			return model.NotFound("user", *s.UserID)
		}
	}
	s.ID = w.t.nextStudentID
	w.t.nextStudentID++
	row := *s
	w.t.students[s.ID] = &row
	return nil
}

func (w *writer) UpdateStudent(ctx context.Context, s *model.Student) error {
	if _, ok := w.t.students[s.ID]; !ok {
		return model.NotFound("student", s.ID)
	}
	if err := w.checkStudentUnique(s); err != nil {
		return err
	}
	row := *s
	w.t.students[s.ID] = &row
	return nil
}

func (w *writer) DeleteStudent(ctx context.Context, id int64) error {
	if _, ok := w.t.students[id]; !ok {
		return model.NotFound("student", id)
	}
	for _, a := range w.t.attendance {
		if a.StudentID == id {
			return model.ErrConflict
		}
	}
	delete(w.t.students, id)
	return nil
}
