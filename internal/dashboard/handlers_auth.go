package dashboard

import (
	"errors"
	"net/http"

	"academic-portal/internal/auth"
	"academic-portal/internal/httpclient"
	"academic-portal/internal/rbac"
	"academic-portal/internal/session"
	"academic-portal/pkg/logger"

	"github.com/gin-gonic/gin"
)

type page struct {
	Title   string
	Profile session.UserProfile

	// login form
	Error    string
	From     string
	Username string

	// unauthorized
	Home string

	Students    []student
	Departments []departmentSummary
	Notice      string
}

type loginForm struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
	From     string `form:"from" json:"from"`
}

func (s *Server) loginPage(c *gin.Context) {
	from := rbac.SafeReturnPath(c.Query("from"))

	// Already signed in: skip the form.
	if role, ok := s.store.CurrentRole(c.Request.Context()); ok && s.store.HasSession(c.Request.Context()) {
		c.Redirect(http.StatusFound, landing(from, role))
		return
	}
	c.HTML(http.StatusOK, "login", page{Title: "Sign in", From: from})
}

func (s *Server) login(c *gin.Context) {
	var f loginForm
	if err := c.ShouldBind(&f); err != nil {
		s.loginFailed(c, http.StatusBadRequest, f, "invalid request")
		return
	}
	f.From = rbac.SafeReturnPath(f.From)

	_, profile, err := s.gw.Login(c.Request.Context(), f.Username, f.Password)
	if err != nil {
		status, msg := loginError(err)
		logger.FromGin(c).Info("login failed", "username", f.Username, "status", status, "err", err)
		s.loginFailed(c, status, f, msg)
		return
	}

	target := landing(f.From, profile.Role)
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"user": profile, "redirect": target})
		return
	}
	c.Redirect(http.StatusSeeOther, target)
}

// loginError maps gateway failures to what the user is told.
func loginError(err error) (int, string) {
	var ne *httpclient.NetworkError
	var se *httpclient.StatusError
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid username or password."
	case errors.Is(err, auth.ErrInvalidProfile):
		return http.StatusForbidden, "This account cannot use the dashboard."
	case errors.As(err, &ne):
		return http.StatusBadGateway, "The academic service is unreachable. Try again shortly."
	case errors.As(err, &se):
		return http.StatusBadGateway, "The academic service had a problem. Try again shortly."
	default:
		return http.StatusInternalServerError, "Sign in failed."
	}
}

func (s *Server) loginFailed(c *gin.Context, status int, f loginForm, msg string) {
	if wantsJSON(c) {
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.HTML(status, "login", page{Title: "Sign in", Error: msg, From: f.From, Username: f.Username})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.gw.Logout(c.Request.Context()); err != nil {
		// Local state could not be cleared; say so instead of pretending.
		_ = c.Error(err)
		if wantsJSON(c) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "logout failed"})
			return
		}
		c.String(http.StatusInternalServerError, "logout failed")
		return
	}
	if wantsJSON(c) {
		c.Status(http.StatusNoContent)
		return
	}
	c.Redirect(http.StatusSeeOther, rbac.LoginPath)
}

func (s *Server) unauthorized(c *gin.Context) {
	p, _ := s.store.Profile(c.Request.Context())
	if wantsJSON(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "role not permitted", "home": rbac.HomePath(p.Role)})
		return
	}
	c.HTML(http.StatusForbidden, "unauthorized", page{Title: "Not authorized", Profile: p, Home: rbac.HomePath(p.Role)})
}

// landing picks the post-login destination: the remembered path when it is
// safe, else the role's home.
func landing(from string, role rbac.Role) string {
	if from = rbac.SafeReturnPath(from); from != "" {
		return from
	}
	return rbac.HomePath(role)
}
