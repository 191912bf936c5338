package dashboard

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"academic-portal/internal/httpclient"

	"github.com/gin-gonic/gin"
)

const maxProxyBody = 1 << 20

// Only these request headers reach the backend. Authorization is set by the
// session transport, never forwarded from the browser.
var forwardedHeaders = []string{"Accept", "Content-Type", "If-None-Match"}

// proxy forwards /api/data/<path> to the backend's /api/<path> through the
// session client, so views get token attachment and refresh for free.
func (s *Server) proxy(c *gin.Context) {
	path := "/api/" + strings.TrimLeft(c.Param("path"), "/")
	if c.Request.URL.RawQuery != "" {
		path += "?" + c.Request.URL.RawQuery
	}
	u, err := httpclient.Resolve(s.api.BaseURL(), path)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid path"})
		return
	}

	var body io.Reader
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		b, err := io.ReadAll(io.LimitReader(c.Request.Body, maxProxyBody+1))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		if len(b) > maxProxyBody {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
			return
		}
		body = bytes.NewReader(b)
	}

	ctx, nav := withRedirect(c.Request.Context())
	req, err := http.NewRequestWithContext(ctx, c.Request.Method, u.String(), body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	for _, h := range forwardedHeaders {
		if v := c.GetHeader(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	resp, err := s.api.Do(req)
	if err != nil {
		s.answerClientError(ctx, c, nav, err)
		return
	}
	defer resp.Body.Close()

	extra := map[string]string{}
	if etag := resp.Header.Get("ETag"); etag != "" {
		extra["ETag"] = etag
	}
	c.DataFromReader(resp.StatusCode, resp.ContentLength, resp.Header.Get("Content-Type"), resp.Body, extra)
}
