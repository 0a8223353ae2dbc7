// Package api exposes the attendance engine, auth and roster over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rusl-cricket/attendance/internal/attendance"
	"github.com/rusl-cricket/attendance/internal/auth"
	"github.com/rusl-cricket/attendance/internal/httpmiddleware"
	"github.com/rusl-cricket/attendance/internal/model"
	"github.com/rusl-cricket/attendance/internal/roster"
)

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Attendance  *attendance.Service
	Auth        *auth.Service
	Roster      *roster.Service
	Limiter     httpmiddleware.Limiter
	Logger      *slog.Logger
	RecentLimit int
	// Health checks run by /healthz, keyed by the name reported.
	Health map[string]Pinger
}

type handler struct {
	att         *attendance.Service
	auth        *auth.Service
	roster      *roster.Service
	log         *slog.Logger
	recentLimit int
	health      map[string]Pinger
}

// NewRouter builds the gin engine with middleware and routes installed.
func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	h := &handler{
		att:         d.Attendance,
		auth:        d.Auth,
		roster:      d.Roster,
		log:         d.Logger,
		recentLimit: d.RecentLimit,
		health:      d.Health,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpmiddleware.RequestID())
	r.Use(httpmiddleware.Logger(d.Logger, "/healthz", "/metrics"))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "Authorization", httpmiddleware.RequestIDHeader},
		ExposeHeaders:   []string{httpmiddleware.RequestIDHeader},
		MaxAge:          24 * time.Hour,
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	if d.Limiter != nil {
		r.Use(httpmiddleware.RateLimit(d.Limiter, d.Logger))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", h.healthz)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", h.register)
	authGroup.POST("/login", h.login)
	authGroup.POST("/refresh", h.refresh)

	secured := api.Group("", auth.RequireAuth(d.Auth.TokenConfig()))
	staff := auth.RequireRole(model.StaffRoles...)

	att := secured.Group("/attendance")
	att.GET("/recent", h.recentSessions)
	att.POST("/session", staff, h.ensureSession)
	att.POST("/mark", staff, h.markAttendance)
	att.GET("/session/:id", h.attendanceBySession)
	att.GET("/student/:id", h.studentHistory)

	reports := secured.Group("/reports")
	reports.GET("/dashboard", staff, h.dashboard)
	reports.GET("/student", auth.RequireRole(model.RoleStudent), h.studentReport)
	reports.GET("/monthly", staff, h.monthly)

	students := secured.Group("/students")
	students.GET("", h.listStudents)
	students.GET("/:id", h.getStudent)
	students.POST("", staff, h.createStudent)
	students.PUT("/:id", staff, h.updateStudent)
	students.DELETE("/:id", staff, h.deleteStudent)

	return r
}

func (h *handler) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{}
	for name, p := range h.health {
		ok := p.Ping(c.Request.Context()) == nil
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	if status == http.StatusOK {
		body["status"] = "ok"
	} else {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}
