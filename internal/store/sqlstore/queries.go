package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rusl-cricket/attendance/internal/model"
	"github.com/rusl-cricket/attendance/internal/store"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries implements store.Tx on top of a *sql.Tx.
type queries struct {
	q querier
	d dialect
}

var _ store.Tx = (*queries)(nil)

type scanner interface {
	Scan(dest ...any) error
}

func (r *queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.q.ExecContext(ctx, r.d.rebind(query), args...)
}

func (r *queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.q.QueryContext(ctx, r.d.rebind(query), args...)
}

func (r *queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.q.QueryRowContext(ctx, r.d.rebind(query), args...)
}

func (r *queries) count(ctx context.Context, table string) (int64, error) {
	var n int64
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// -------- Sessions --------

const sessionColumns = `id, session_date, created_at`

func scanSession(row scanner) (*model.PracticeSession, error) {
	var sess model.PracticeSession
	if err := row.Scan(&sess.ID, &sess.Date, &sess.CreatedAt); err != nil {
		return nil, err
	}
	sess.Date = model.Day(sess.Date)
	return &sess, nil
}

func (r *queries) GetSession(ctx context.Context, id int64) (*model.PracticeSession, error) {
	sess, err := scanSession(r.queryRow(ctx, `SELECT `+sessionColumns+` FROM practice_sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("session", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return sess, nil
}

func (r *queries) SessionByDate(ctx context.Context, date time.Time) (*model.PracticeSession, error) {
	sess, err := scanSession(r.queryRow(ctx, `SELECT `+sessionColumns+` FROM practice_sessions WHERE session_date = ?`, r.d.dateArg(date)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("session", date.Format(model.DateLayout))
	}
	if err != nil {
		return nil, fmt.Errorf("session by date: %w", err)
	}
	return sess, nil
}

func (r *queries) ListSessions(ctx context.Context, limit int) ([]model.PracticeSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM practice_sessions ORDER BY session_date DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]model.PracticeSession, 0)
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

func (r *queries) CountSessions(ctx context.Context) (int64, error) {
	return r.count(ctx, "practice_sessions")
}

func (r *queries) CreateSession(ctx context.Context, date, createdAt time.Time) (*model.PracticeSession, error) {
	_, err := r.exec(ctx, `
		INSERT INTO practice_sessions (session_date, created_at)
		VALUES (?, ?)
		ON CONFLICT (session_date) DO NOTHING
	`, r.d.dateArg(date), createdAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return r.SessionByDate(ctx, date)
}

// -------- Students --------

const studentColumns = `id, student_id, name, faculty, academic_year, contact_number, user_id, created_at`

func scanStudent(row scanner) (*model.Student, error) {
	var st model.Student
	var userID sql.NullInt64
	if err := row.Scan(&st.ID, &st.RegNo, &st.Name, &st.Faculty, &st.Year, &st.ContactNumber, &userID, &st.CreatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		id := userID.Int64
		st.UserID = &id
	}
	return &st, nil
}

func (r *queries) studentWhere(ctx context.Context, clause string, key any, entity string) (*model.Student, error) {
	st, err := scanStudent(r.queryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE `+clause, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound(entity, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get %s %v: %w", entity, key, err)
	}
	return st, nil
}

func (r *queries) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	return r.studentWhere(ctx, `id = ?`, id, "student")
}

func (r *queries) StudentByRegNo(ctx context.Context, regNo string) (*model.Student, error) {
	return r.studentWhere(ctx, `student_id = ?`, regNo, "student")
}

func (r *queries) StudentByUserID(ctx context.Context, userID int64) (*model.Student, error) {
	return r.studentWhere(ctx, `user_id = ?`, userID, "student profile")
}

func (r *queries) ListStudents(ctx context.Context) ([]model.Student, error) {
	rows, err := r.query(ctx, `SELECT `+studentColumns+` FROM students ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	students := make([]model.Student, 0)
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *st)
	}
	return students, rows.Err()
}

func (r *queries) CountStudents(ctx context.Context) (int64, error) {
	return r.count(ctx, "students")
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}

func (r *queries) CreateStudent(ctx context.Context, st *model.Student) error {
	err := r.queryRow(ctx, `
		INSERT INTO students (student_id, name, faculty, academic_year, contact_number, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, st.RegNo, st.Name, st.Faculty, st.Year, st.ContactNumber, nullableID(st.UserID), st.CreatedAt.UTC()).Scan(&st.ID)
	switch {
	case isUniqueViolation(err):
		return model.ErrAlreadyExists
	case isForeignKeyViolation(err):
		return model.NotFound("user", nullableID(st.UserID))
	case err != nil:
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

func (r *queries) UpdateStudent(ctx context.Context, st *model.Student) error {
	res, err := r.exec(ctx, `
		UPDATE students
		SET student_id = ?, name = ?, faculty = ?, academic_year = ?, contact_number = ?, user_id = ?
		WHERE id = ?
	`, st.RegNo, st.Name, st.Faculty, st.Year, st.ContactNumber, nullableID(st.UserID), st.ID)
	if isUniqueViolation(err) {
		return model.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("update student %d: %w", st.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("student", st.ID)
	}
	return nil
}

func (r *queries) DeleteStudent(ctx context.Context, id int64) error {
	res, err := r.exec(ctx, `DELETE FROM students WHERE id = ?`, id)
	if isForeignKeyViolation(err) {
		return model.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("delete student %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("student", id)
	}
	return nil
}

// -------- Users --------

const userColumns = `id, email, role, password_hash, created_at`

func (r *queries) userWhere(ctx context.Context, clause string, key any) (*model.User, error) {
	var u model.User
	err := r.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+clause, key).
		Scan(&u.ID, &u.Email, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("user", key)
	}
	if err != nil {
		return nil, fmt.Errorf("get user %v: %w", key, err)
	}
	return &u, nil
}

func (r *queries) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return r.userWhere(ctx, `id = ?`, id)
}

func (r *queries) UserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.userWhere(ctx, `email = ?`, strings.ToLower(email))
}

func (r *queries) CreateUser(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(u.Email)
	err := r.queryRow(ctx, `
		INSERT INTO users (email, role, password_hash, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`, u.Email, string(u.Role), u.PasswordHash, u.CreatedAt.UTC()).Scan(&u.ID)
	if isUniqueViolation(err) {
		return model.ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// -------- Attendance --------

const attendanceSelect = `
	SELECT a.id, a.practice_session_id, a.student_id, a.is_present,
	       p.session_date, s.name, s.student_id
	FROM attendance a
	JOIN practice_sessions p ON p.id = a.practice_session_id
	JOIN students s ON s.id = a.student_id`

func scanAttendance(row scanner) (*model.Attendance, error) {
	var a model.Attendance
	if err := row.Scan(&a.ID, &a.SessionID, &a.StudentID, &a.Present, &a.SessionDate, &a.StudentName, &a.StudentRegNo); err != nil {
		return nil, err
	}
	a.SessionDate = model.Day(a.SessionDate)
	return &a, nil
}

func (r *queries) listAttendance(ctx context.Context, where string, args ...any) ([]model.Attendance, error) {
	rows, err := r.query(ctx, attendanceSelect+where+` ORDER BY a.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	records := make([]model.Attendance, 0)
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *a)
	}
	return records, rows.Err()
}

func (r *queries) FindAttendance(ctx context.Context, sessionID, studentID int64) (*model.Attendance, error) {
	a, err := scanAttendance(r.queryRow(ctx, attendanceSelect+`
		WHERE a.practice_session_id = ? AND a.student_id = ?`, sessionID, studentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.NotFound("attendance", fmt.Sprintf("%d/%d", sessionID, studentID))
	}
	if err != nil {
		return nil, fmt.Errorf("find attendance: %w", err)
	}
	return a, nil
}

func (r *queries) AttendanceBySession(ctx context.Context, sessionID int64) ([]model.Attendance, error) {
	return r.listAttendance(ctx, ` WHERE a.practice_session_id = ?`, sessionID)
}

func (r *queries) AttendanceByStudent(ctx context.Context, studentID int64) ([]model.Attendance, error) {
	return r.listAttendance(ctx, ` WHERE a.student_id = ?`, studentID)
}

func (r *queries) ListAttendance(ctx context.Context) ([]model.Attendance, error) {
	return r.listAttendance(ctx, ``)
}

func (r *queries) InsertAttendance(ctx context.Context, a *model.Attendance) error {
	err := r.queryRow(ctx, `
		INSERT INTO attendance (practice_session_id, student_id, is_present)
		VALUES (?, ?, ?)
		ON CONFLICT (practice_session_id, student_id) DO UPDATE SET is_present = excluded.is_present
		RETURNING id
	`, a.SessionID, a.StudentID, a.Present).Scan(&a.ID)
	if isForeignKeyViolation(err) {
		return model.NotFound("session or student", fmt.Sprintf("%d/%d", a.SessionID, a.StudentID))
	}
	if err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

func (r *queries) UpdateAttendance(ctx context.Context, a *model.Attendance) error {
	res, err := r.exec(ctx, `UPDATE attendance SET is_present = ? WHERE id = ?`, a.Present, a.ID)
	if err != nil {
		return fmt.Errorf("update attendance %d: %w", a.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.NotFound("attendance", a.ID)
	}
	return nil
}
