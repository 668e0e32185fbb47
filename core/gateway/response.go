package gateway

import (
	"strconv"

	"github.com/searchktools/cruet/core/http"
)

// Response accumulates an application response before it is played
// through the invocation contract. NewResponse fills in Content-Type and
// Content-Length defaults; SetData keeps Content-Length in sync.
type Response struct {
	StatusCode int
	Headers    http.Headers
	body       []byte
}

// NewResponse builds a response around body. A zero status means 200.
// Content-Type defaults to text/html; charset=utf-8.
func NewResponse(body []byte, status int) *Response {
	if status == 0 {
		status = 200
	}
	r := &Response{StatusCode: status, body: body}
	r.Headers.Set("Content-Type", "text/html; charset=utf-8")
	r.Headers.Set("Content-Length", strconv.Itoa(len(body)))
	return r
}

// Status returns the full status line value, e.g. "404 Not Found".
func (r *Response) Status() string {
	return strconv.Itoa(r.StatusCode) + " " + StatusText(r.StatusCode)
}

// Data returns the current body bytes.
func (r *Response) Data() []byte { return r.body }

// SetData replaces the body and updates Content-Length.
func (r *Response) SetData(body []byte) {
	r.body = body
	r.Headers.Set("Content-Length", strconv.Itoa(len(body)))
}

// SetContentType replaces the Content-Type header.
func (r *Response) SetContentType(ct string) {
	r.Headers.Set("Content-Type", ct)
}

// CookieOptions carries the optional Set-Cookie attributes. A zero Path
// means "/".
type CookieOptions struct {
	Path      string
	Domain    string
	MaxAge    int
	HasMaxAge bool
	Secure    bool
	HttpOnly  bool
	SameSite  string
}

// SetCookie appends a Set-Cookie header. Attributes render in the order
// Path, Domain, Max-Age, Secure, HttpOnly, SameSite.
func (r *Response) SetCookie(key, value string, opts CookieOptions) {
	path := opts.Path
	if path == "" {
		path = "/"
	}
	cookie := key + "=" + value + "; Path=" + path
	if opts.Domain != "" {
		cookie += "; Domain=" + opts.Domain
	}
	if opts.HasMaxAge {
		cookie += "; Max-Age=" + strconv.Itoa(opts.MaxAge)
	}
	if opts.Secure {
		cookie += "; Secure"
	}
	if opts.HttpOnly {
		cookie += "; HttpOnly"
	}
	if opts.SameSite != "" {
		cookie += "; SameSite=" + opts.SameSite
	}
	r.Headers.Add("Set-Cookie", cookie)
}

// DeleteCookie appends a Set-Cookie header that expires the cookie
// immediately. An empty path means "/".
func (r *Response) DeleteCookie(key, path, domain string) {
	if path == "" {
		path = "/"
	}
	cookie := key + "=; Expires=Thu, 01 Jan 1970 00:00:00 GMT; Max-Age=0; Path=" + path
	if domain != "" {
		cookie += "; Domain=" + domain
	}
	r.Headers.Add("Set-Cookie", cookie)
}

// Write plays the response through a Respond callback and returns its
// body as a one-shot closable iterator.
func (r *Response) Write(respond Respond) Body {
	respond(r.Status(), r.Headers.All())
	return NewBytesBody(r.body)
}
