package model

import "time"

// DateLayout is the wire format for calendar days.
const DateLayout = "2006-01-02"

// Role is the authorization role attached to a user account.
type Role string

const (
	RoleAdmin         Role = "ADMIN"
	RoleCoach         Role = "COACH"
	RoleSportsOfficer Role = "SPORTS_OFFICER"
	RoleStudent       Role = "STUDENT"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCoach, RoleSportsOfficer, RoleStudent:
		return true
	}
	return false
}

// StaffRoles may manage sessions, attendance and the roster.
var StaffRoles = []Role{RoleAdmin, RoleCoach, RoleSportsOfficer}

// User is a login account.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Student is a roster entry, optionally linked to a user account.
type Student struct {
	ID            int64     `json:"id"`
	RegNo         string    `json:"studentId"`
	Name          string    `json:"name"`
	Faculty       string    `json:"faculty"`
	Year          int       `json:"year"`
	ContactNumber string    `json:"contactNumber,omitempty"`
	UserID        *int64    `json:"userId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// PracticeSession is one practice day. Date is unique across sessions.
type PracticeSession struct {
	ID        int64     `json:"id"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
}

// Attendance records whether a student was present at a session. At most
// one row exists per (SessionID, StudentID).
type Attendance struct {
	ID        int64 `json:"id"`
	SessionID int64 `json:"practiceSessionId"`
	StudentID int64 `json:"studentId"`
	Present   bool  `json:"isPresent"`

	// Joined from the session and student rows on read.
	SessionDate  time.Time `json:"date"`
	StudentName  string    `json:"studentName"`
	StudentRegNo string    `json:"studentRegId"`
}

// Mark is a single presence entry in a recording batch.
type Mark struct {
	StudentID int64 `json:"studentId" binding:"required"`
	Present   bool  `json:"isPresent"`
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD string into a calendar day.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &ValidationError{Field: "date", Message: "expected YYYY-MM-DD"}
	}
	return t, nil
}
