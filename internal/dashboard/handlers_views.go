package dashboard

import (
	"context"
	"errors"
	"net/http"

	"academic-portal/internal/auth"
	"academic-portal/internal/httpclient"
	"academic-portal/pkg/logger"

	"github.com/gin-gonic/gin"
)

type student struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	Department string  `json:"department"`
	Year       int     `json:"year"`
	Attendance float64 `json:"attendance"`
	CGPA       float64 `json:"cgpa"`
}

type departmentSummary struct {
	Department    string  `json:"department"`
	Students      int     `json:"students"`
	AvgAttendance float64 `json:"avg_attendance"`
	AvgCGPA       float64 `json:"avg_cgpa"`
	LowAttendance int     `json:"low_attendance"`
}

func (s *Server) generalDashboard(c *gin.Context) {
	p := profileOf(c)
	c.HTML(http.StatusOK, "dashboard", page{Title: "Dashboard", Profile: p})
}

func (s *Server) studentsDashboard(title string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Students []student `json:"students"`
		}
		if !s.fetch(c, "/api/students", &body) {
			return
		}
		pg := page{Title: title, Profile: profileOf(c), Students: body.Students}
		if len(body.Students) == 0 {
			pg.Notice = "No students to show."
		}
		c.HTML(http.StatusOK, "dashboard", pg)
	}
}

func (s *Server) principalDashboard(c *gin.Context) {
	var body struct {
		Departments []departmentSummary `json:"departments"`
	}
	if !s.fetch(c, "/api/reports/summary", &body) {
		return
	}
	c.HTML(http.StatusOK, "dashboard", page{Title: "Institution overview", Profile: profileOf(c), Departments: body.Departments})
}

func (s *Server) me(c *gin.Context) {
	p, err := auth.ProfileFrom(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) sessionEvents(c *gin.Context) {
	if s.events == nil {
		c.JSON(http.StatusOK, gin.H{"events": []any{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": s.events.Events()})
}

// fetch GETs a backend path through the session client. On failure it has
// already answered the request and returns false.
func (s *Server) fetch(c *gin.Context, path string, out any) bool {
	ctx, nav := withRedirect(c.Request.Context())
	err := s.api.GetJSON(ctx, path, out)
	if err == nil {
		return true
	}
	s.answerClientError(ctx, c, nav, err)
	return false
}

// answerClientError turns a session client failure into a response. A forced
// logout becomes a redirect to its target.
func (s *Server) answerClientError(ctx context.Context, c *gin.Context, nav *redirect, err error) {
	if target := nav.Target(); target != "" || errors.Is(err, httpclient.ErrSessionEnded) {
		if target == "" {
			target = httpclient.LoginPath
		}
		if wantsJSON(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session ended", "redirect": target})
			return
		}
		c.Redirect(http.StatusFound, target)
		c.Abort()
		return
	}

	logger.From(ctx).Warn("backend request failed", "err", err)
	_ = c.Error(err)

	var ne *httpclient.NetworkError
	var se *httpclient.StatusError
	switch {
	case errors.As(err, &ne):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "backend unreachable"})
	case errors.As(err, &se) && se.StatusCode == http.StatusForbidden:
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden by backend"})
	case errors.As(err, &se):
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "backend error", "status": se.StatusCode})
	default:
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "backend error"})
	}
}
