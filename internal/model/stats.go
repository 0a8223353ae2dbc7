package model

import "time"

// RecentSession is a session together with the names of students marked present.
type RecentSession struct {
	ID                  int64     `json:"id"`
	Date                time.Time `json:"date"`
	PresentStudentNames []string  `json:"presentStudentNames"`
}

// TopAttendee is the student with the most present marks.
type TopAttendee struct {
	StudentID            int64   `json:"-"`
	Name                 string  `json:"name"`
	AttendancePercentage float64 `json:"attendancePercentage"`
}

// DashboardStats summarises the whole ledger for staff.
type DashboardStats struct {
	TotalPracticeDays int64        `json:"totalPracticeDays"`
	TotalPlayers      int64        `json:"totalPlayers"`
	AverageAttendance float64      `json:"averageAttendance"`
	TopAttendee       *TopAttendee `json:"topAttendee"`
}

// AttendanceEntry is a compact view of one attendance row.
type AttendanceEntry struct {
	Date      string `json:"date"`
	IsPresent bool   `json:"isPresent"`
}

// StudentStats is the self-service report for a logged in student.
type StudentStats struct {
	AttendancePercentage float64           `json:"attendancePercentage"`
	SessionsAttended     int64             `json:"sessionsAttended"`
	TotalSessions        int64             `json:"totalSessions"`
	RecentAttendance     []AttendanceEntry `json:"recentAttendance"`
}

// MonthlyAttendance counts present and absent marks for one calendar month.
type MonthlyAttendance struct {
	Month   string `json:"month"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
}
