package rbac

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

// RequireRoles gates a route group with the guard. With no roles any
// authenticated user is admitted.
// Denied navigations are answered with a 302 so the browser lands on the
// login or unauthorized page; login redirects carry ?from=<requested path>.
// JSON callers get 401 or 403 with the same target in a "redirect" field.
func RequireRoles(g *Guard, roles ...Role) gin.HandlerFunc {
	required := NewSet(roles...)

	return func(c *gin.Context) {
		d := g.CanEnter(c.Request.Context(), c.Request.URL.RequestURI(), required)
		if d.Allowed() {
			c.Next()
			return
		}

		c.Set("guard_reason", string(d.Reason))
		if acceptsJSON(c) {
			status := http.StatusUnauthorized
			if d.Reason == ReasonRoleNotPermitted {
				status = http.StatusForbidden
			}
			c.AbortWithStatusJSON(status, gin.H{"error": string(d.Reason), "redirect": RedirectLocation(d)})
			return
		}
		c.Redirect(http.StatusFound, RedirectLocation(d))
		c.Abort()
	}
}

// RedirectLocation renders a redirect decision as a Location value.
func RedirectLocation(d Decision) string {
	if d.Target == LoginPath && d.From != "" {
		return LoginPath + "?" + url.Values{"from": {d.From}}.Encode()
	}
	return d.Target
}

func acceptsJSON(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEJSON || c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}
