package mockapi

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"academic-portal/internal/rbac"
	"academic-portal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Server is a stand-in for the academic backend: it issues and refreshes
// tokens and serves a small role-scoped dataset.
type Server struct {
	tokens *Manager
	users  *Directory
	log    *slog.Logger

	mu      sync.Mutex
	clock   func() time.Time
	revokes map[string]struct{}
}

func NewServer(tokens *Manager, users *Directory, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		tokens:  tokens,
		users:   users,
		log:     log,
		clock:   time.Now,
		revokes: make(map[string]struct{}),
	}
}

// SetClock replaces the time source used to issue and verify tokens.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = now
}

func (s *Server) now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clock()
}

func (s *Server) revoke(sid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revokes[sid] = struct{}{}
}

func (s *Server) revoked(sid string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.revokes[sid]
	return ok
}

// Router wires the backend's routes.
// Keep this free of business logic; handlers below stay thin.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(s.log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/login", s.login)
		authGroup.POST("/refresh", s.refresh)
		authGroup.POST("/logout", s.logout)
	}

	api := r.Group("/api")
	api.Use(s.RequireAccessToken())
	{
		api.GET("/me", s.me)
		api.GET("/students", s.students)
		api.GET("/reports/summary", s.requireRoles(rbac.RolePrincipal, rbac.RoleAdmin), s.summary)
	}
	return r
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "username and password required"})
		return
	}

	acct, err := s.users.Authenticate(req.Username, req.Password)
	if err != nil {
		logger.FromGin(c).Info("login rejected", "username", req.Username)
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid username or password"})
		return
	}

	pair, err := s.tokens.IssuePair(s.now(), acct)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"user":          acct.User(),
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// refresh takes the refresh token as a bearer or as a JSON body.
func (s *Server) refresh(c *gin.Context) {
	tok, ok := bearerToken(c)
	if !ok {
		var req refreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			tok = strings.TrimSpace(req.RefreshToken)
		}
	}
	if tok == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing refresh token"})
		return
	}

	now := s.now()
	claims, err := s.tokens.Verify(tok, TokenTypeRefresh, now)
	if err != nil || s.revoked(claims.SessionID) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	acct, ok := s.users.ByID(claims.UserID)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return
	}

	access, err := s.tokens.IssueAccess(now, acct, claims.SessionID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": access})
}

// logout revokes the session behind the bearer token. It always answers 204
// so a client cannot probe token validity through it.
func (s *Server) logout(c *gin.Context) {
	if tok, ok := bearerToken(c); ok {
		if claims, err := s.tokens.Inspect(tok, TokenTypeAccess); err == nil {
			s.revoke(claims.SessionID)
			logger.FromGin(c).Info("session revoked", "username", claims.Username)
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) me(c *gin.Context) {
	acct, ok := s.account(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, acct.User())
}

func (s *Server) students(c *gin.Context) {
	acct, ok := s.account(c)
	if !ok {
		return
	}
	rows := visibleStudents(acct.Role, acct.Department)
	if dept := strings.TrimSpace(c.Query("department")); dept != "" {
		filtered := rows[:0]
		for _, st := range rows {
			if strings.EqualFold(st.Department, dept) {
				filtered = append(filtered, st)
			}
		}
		rows = filtered
	}
	c.JSON(http.StatusOK, gin.H{"students": rows})
}

func (s *Server) summary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"departments": summarize(sampleStudents)})
}

func (s *Server) account(c *gin.Context) (Account, bool) {
	claims, ok := claimsFrom(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return Account{}, false
	}
	acct, ok := s.users.ByID(claims.UserID)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
		return Account{}, false
	}
	return acct, true
}

// requireRoles answers 403 for roles outside the list. The backend never
// redirects; that is the dashboard's job.
func (s *Server) requireRoles(roles ...rbac.Role) gin.HandlerFunc {
	allowed := rbac.NewSet(roles...)
	return func(c *gin.Context) {
		claims, ok := claimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}
		role, err := rbac.ParseRole(claims.Role)
		if err != nil || !allowed.Contains(role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
