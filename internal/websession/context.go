package websession

import (
	"net"
	"net/http"
)

// Context couples an incoming request with its decoded transport session.
// It satisfies registry.RequestContext, so registry calls always receive the
// request state explicitly instead of reading it from process-wide globals.
type Context struct {
	Req     *http.Request
	Session *Session
}

func NewContext(r *http.Request, s *Session) *Context {
	return &Context{Req: r, Session: s}
}

func (c *Context) SourceIP() string {
	host, _, err := net.SplitHostPort(c.Req.RemoteAddr)
	if err != nil {
		return c.Req.RemoteAddr
	}
	return host
}

func (c *Context) UserAgentString() string {
	return c.Req.UserAgent()
}

func (c *Context) HeaderValue(name string) string {
	return c.Req.Header.Get(name)
}

func (c *Context) SessionGet(key string) string {
	return c.Session.Get(key)
}

func (c *Context) SessionSet(key, value string) {
	c.Session.Set(key, value)
}
