package sqlstore

import (
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/rusl-cricket/attendance/internal/model"
	"github.com/rusl-cricket/attendance/internal/store"
)

// dialect covers the few places where Postgres and SQLite disagree.
type dialect interface {
	name() string
	rebind(query string) string
	dateArg(t time.Time) any
	schema() string
	viewOptions() *sql.TxOptions
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case store.DriverPostgres:
		return postgres{}, nil
	case store.DriverSQLite:
		return sqlite{}, nil
	}
	return nil, errors.New("sqlstore: unsupported driver " + driver)
}

type postgres struct{}

func (postgres) name() string { return "postgres" }

// rebind turns ? placeholders into $1, $2, ...
func (postgres) rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (postgres) dateArg(t time.Time) any { return model.Day(t) }

func (postgres) viewOptions() *sql.TxOptions {
	return &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true}
}

func (postgres) schema() string {
	return `
	CREATE TABLE IF NOT EXISTS users (
		id            BIGSERIAL PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		role          TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS students (
		id             BIGSERIAL PRIMARY KEY,
		student_id     TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL,
		faculty        TEXT NOT NULL,
		academic_year  INTEGER NOT NULL,
		contact_number TEXT NOT NULL DEFAULT '',
		user_id        BIGINT UNIQUE REFERENCES users(id),
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS practice_sessions (
		id           BIGSERIAL PRIMARY KEY,
		session_date DATE NOT NULL UNIQUE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id                  BIGSERIAL PRIMARY KEY,
		practice_session_id BIGINT NOT NULL REFERENCES practice_sessions(id),
		student_id          BIGINT NOT NULL REFERENCES students(id),
		is_present          BOOLEAN NOT NULL,
		UNIQUE (practice_session_id, student_id)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance(student_id);
	`
}

type sqlite struct{}

func (sqlite) name() string { return "sqlite" }

func (sqlite) rebind(query string) string { return query }

// go-sqlite3 parses DATE columns back into time.Time from this layout.
func (sqlite) dateArg(t time.Time) any { return model.Day(t).Format(model.DateLayout) }

func (sqlite) viewOptions() *sql.TxOptions { return nil }

func (sqlite) schema() string {
	return `
	CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		email         TEXT NOT NULL UNIQUE,
		role          TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS students (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		student_id     TEXT NOT NULL UNIQUE,
		name           TEXT NOT NULL,
		faculty        TEXT NOT NULL,
		academic_year  INTEGER NOT NULL,
		contact_number TEXT NOT NULL DEFAULT '',
		user_id        INTEGER UNIQUE REFERENCES users(id),
		created_at     TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS practice_sessions (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		session_date DATE NOT NULL UNIQUE,
		created_at   TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		practice_session_id INTEGER NOT NULL REFERENCES practice_sessions(id),
		student_id          INTEGER NOT NULL REFERENCES students(id),
		is_present          BOOLEAN NOT NULL,
		UNIQUE (practice_session_id, student_id)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_student ON attendance(student_id);
	`
}

// Constraint classification across both drivers.

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}
