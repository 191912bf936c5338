package dashboard

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"

	"academic-portal/internal/audit"
	"academic-portal/internal/auth"
	"academic-portal/internal/httpclient"
	"academic-portal/internal/rbac"
	"academic-portal/internal/session"
	"academic-portal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// EventLister exposes the recent session events to admins.
type EventLister interface {
	Events() []audit.Event
}

type Deps struct {
	Gateway *auth.Gateway
	Store   *session.Store
	Client  *httpclient.Client
	Events  EventLister
	Log     *slog.Logger
}

// Server is the dashboard the browser talks to. It owns no session logic of
// its own: login and logout go to the gateway, gating goes to the guard and
// backend data goes through the session client.
type Server struct {
	gw     *auth.Gateway
	store  *session.Store
	api    *httpclient.Client
	guard  *rbac.Guard
	events EventLister
	log    *slog.Logger
	pages  *template.Template
}

func NewServer(d Deps) (*Server, error) {
	if d.Gateway == nil || d.Store == nil || d.Client == nil {
		return nil, errors.New("dashboard: gateway, store and client are required")
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &Server{
		gw:     d.Gateway,
		store:  d.Store,
		api:    d.Client,
		guard:  rbac.NewGuard(d.Store),
		events: d.Events,
		log:    d.Log,
		pages:  parseTemplates(),
	}, nil
}

// Router wires routes to handlers.
// Keep this file free of business logic. Handlers delegate to the session layer.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(s.log))
	r.SetHTMLTemplate(s.pages)

	// public
	r.GET("/healthz", s.healthz)
	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/dashboard")
	})
	r.GET(rbac.LoginPath, s.loginPage)
	r.POST(rbac.LoginPath, s.login)
	r.POST("/logout", s.logout)
	r.GET(rbac.UnauthorizedPath, s.unauthorized)

	// any authenticated role
	general := r.Group("/dashboard")
	general.Use(rbac.RequireRoles(s.guard), s.withProfile())
	{
		general.GET("", s.generalDashboard)

		admin := general.Group("/session-events")
		admin.Use(rbac.RequireRoles(s.guard, rbac.RoleAdmin))
		admin.GET("", s.sessionEvents)
	}

	faculty := r.Group("/faculty")
	faculty.Use(rbac.RequireRoles(s.guard, rbac.RoleFaculty), s.withProfile())
	{
		faculty.GET("/dashboard", s.studentsDashboard("Faculty dashboard"))
	}

	hod := r.Group("/hod")
	hod.Use(rbac.RequireRoles(s.guard, rbac.RoleHOD), s.withProfile())
	{
		hod.GET("/dashboard", s.studentsDashboard("Department dashboard"))
		hod.GET("/department", s.studentsDashboard("Department overview"))
	}

	principal := r.Group("/principal")
	principal.Use(rbac.RequireRoles(s.guard, rbac.RolePrincipal), s.withProfile())
	{
		principal.GET("/dashboard", s.principalDashboard)
	}

	api := r.Group("/api")
	api.Use(rbac.RequireRoles(s.guard), s.withProfile())
	{
		api.GET("/me", s.me)
		api.Any("/data/*path", s.proxy)
	}

	return r
}

// withProfile puts the stored profile on the request context for handlers.
func (s *Server) withProfile() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := s.store.Profile(c.Request.Context())
		if !ok {
			// The guard admitted the request, so the profile vanished in
			// between; a logout raced us.
			c.Redirect(http.StatusFound, rbac.LoginPath)
			c.Abort()
			return
		}
		c.Request = c.Request.WithContext(auth.WithProfile(c.Request.Context(), p))
		c.Next()
	}
}

// healthz reports whether the token store is reachable.
func (s *Server) healthz(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		logger.FromGin(c).Warn("token store unreachable", "err", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "store": "unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "store": "ok"})
}

func profileOf(c *gin.Context) session.UserProfile {
	p, _ := auth.ProfileFrom(c.Request.Context())
	return p
}

// wantsJSON is true for API-style callers that should not get HTML or
// redirects to HTML pages.
func wantsJSON(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEJSON || c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}
