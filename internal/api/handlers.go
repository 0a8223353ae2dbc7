package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rusl-cricket/attendance/internal/auth"
	"github.com/rusl-cricket/attendance/internal/model"
	"github.com/rusl-cricket/attendance/internal/roster"
)

type sessionJSON struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	CreatedAt time.Time `json:"createdAt"`
}

type recentJSON struct {
	ID                  int64    `json:"id"`
	Date                string   `json:"date"`
	PresentStudentNames []string `json:"presentStudentNames"`
}

type attendanceJSON struct {
	ID                int64  `json:"id"`
	PracticeSessionID int64  `json:"practiceSessionId"`
	StudentID         int64  `json:"studentId"`
	StudentRegID      string `json:"studentRegId"`
	StudentName       string `json:"studentName"`
	Date              string `json:"date"`
	IsPresent         bool   `json:"isPresent"`
}

func toAttendanceJSON(rows []model.Attendance) []attendanceJSON {
	out := make([]attendanceJSON, 0, len(rows))
	for _, a := range rows {
		out = append(out, attendanceJSON{
			ID:                a.ID,
			PracticeSessionID: a.SessionID,
			StudentID:         a.StudentID,
			StudentRegID:      a.StudentRegNo,
			StudentName:       a.StudentName,
			Date:              a.SessionDate.Format(model.DateLayout),
			IsPresent:         a.Present,
		})
	}
	return out
}

// Auth

func (h *handler) register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	student, err := h.auth.Register(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful! You can now log in.",
		"student": student,
	})
}

func (h *handler) login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	resp, err := h.auth.Login(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refreshToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	resp, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Attendance

func (h *handler) recentSessions(c *gin.Context) {
	limit := h.recentLimit
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			badRequest(c, "limit must be an integer")
			return
		}
		limit = parsed
	}
	recent, err := h.att.RecentSessions(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]recentJSON, 0, len(recent))
	for _, r := range recent {
		out = append(out, recentJSON{ID: r.ID, Date: r.Date.Format(model.DateLayout), PresentStudentNames: r.PresentStudentNames})
	}
	c.JSON(http.StatusOK, out)
}

// ensureSession accepts the date as a query parameter or a JSON body.
func (h *handler) ensureSession(c *gin.Context) {
	raw := c.Query("date")
	if raw == "" {
		var body struct {
			Date string `json:"date"`
		}
		_ = c.ShouldBindJSON(&body)
		raw = body.Date
	}
	if raw == "" {
		badRequest(c, "date is required")
		return
	}
	date, err := model.ParseDay(raw)
	if err != nil {
		h.fail(c, err)
		return
	}
	sess, err := h.att.EnsureSession(c.Request.Context(), date)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sessionJSON{ID: sess.ID, Date: sess.Date.Format(model.DateLayout), CreatedAt: sess.CreatedAt})
}

func (h *handler) markAttendance(c *gin.Context) {
	var req struct {
		SessionID  int64        `json:"sessionId" binding:"required"`
		Attendance []model.Mark `json:"attendance" binding:"dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if err := h.att.RecordAttendance(c.Request.Context(), req.SessionID, req.Attendance); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": len(req.Attendance)})
}

func (h *handler) attendanceBySession(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rows, err := h.att.AttendanceBySession(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAttendanceJSON(rows))
}

func (h *handler) studentHistory(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rows, err := h.att.AttendanceHistoryForStudent(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toAttendanceJSON(rows))
}

// Reports

func (h *handler) dashboard(c *gin.Context) {
	stats, err := h.att.DashboardStats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *handler) studentReport(c *gin.Context) {
	claims, _ := auth.ClaimsFrom(c)
	stats, err := h.att.StudentStats(c.Request.Context(), claims.UserID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *handler) monthly(c *gin.Context) {
	monthly, err := h.att.MonthlyAttendance(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, monthly)
}

// Roster

func (h *handler) listStudents(c *gin.Context) {
	students, err := h.roster.List(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, students)
}

func (h *handler) getStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	st, err := h.roster.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handler) createStudent(c *gin.Context) {
	var in roster.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, err := h.roster.Create(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *handler) updateStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var in roster.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err.Error())
		return
	}
	st, err := h.roster.Update(c.Request.Context(), id, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *handler) deleteStudent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.roster.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
