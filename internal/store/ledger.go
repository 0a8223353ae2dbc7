package store

import (
	"context"
	"time"

	"github.com/rusl-cricket/attendance/internal/model"
)

// Reader is the read side of the attendance ledger. Lookups of a missing
// row return an error matching model.ErrNotFound.
type Reader interface {
	GetSession(ctx context.Context, id int64) (*model.PracticeSession, error)
	SessionByDate(ctx context.Context, date time.Time) (*model.PracticeSession, error)
	// ListSessions returns sessions by date, newest first. limit <= 0 returns all.
	ListSessions(ctx context.Context, limit int) ([]model.PracticeSession, error)
	CountSessions(ctx context.Context) (int64, error)

	GetStudent(ctx context.Context, id int64) (*model.Student, error)
	StudentByRegNo(ctx context.Context, regNo string) (*model.Student, error)
	StudentByUserID(ctx context.Context, userID int64) (*model.Student, error)
	ListStudents(ctx context.Context) ([]model.Student, error)
	CountStudents(ctx context.Context) (int64, error)

	GetUser(ctx context.Context, id int64) (*model.User, error)
	UserByEmail(ctx context.Context, email string) (*model.User, error)

	// FindAttendance returns the row for the pair.
	FindAttendance(ctx context.Context, sessionID, studentID int64) (*model.Attendance, error)
	AttendanceBySession(ctx context.Context, sessionID int64) ([]model.Attendance, error)
	AttendanceByStudent(ctx context.Context, studentID int64) ([]model.Attendance, error)
	// ListAttendance returns every attendance row in insertion order.
	ListAttendance(ctx context.Context) ([]model.Attendance, error)
}

// Tx is a read-write unit of work. Nothing written through a Tx is visible
// to others until Ledger.Update returns nil.
type Tx interface {
	Reader

	// CreateSession inserts a session for date unless one already exists and
	// returns the stored row either way.
	CreateSession(ctx context.Context, date, createdAt time.Time) (*model.PracticeSession, error)

	// InsertAttendance stores a new row and sets its ID. A concurrent insert
	// for the same pair is folded into an update of the Present flag.
	InsertAttendance(ctx context.Context, a *model.Attendance) error
	UpdateAttendance(ctx context.Context, a *model.Attendance) error

	CreateUser(ctx context.Context, u *model.User) error
	CreateStudent(ctx context.Context, s *model.Student) error
	UpdateStudent(ctx context.Context, s *model.Student) error
	DeleteStudent(ctx context.Context, id int64) error
}

// Ledger is the durable store behind the attendance engine.
type Ledger interface {
	// View runs fn against a consistent read snapshot.
	View(ctx context.Context, fn func(r Reader) error) error
	// Update runs fn in a transaction, committing only if fn returns nil.
	Update(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
