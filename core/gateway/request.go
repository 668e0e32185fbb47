package gateway

import (
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/searchktools/cruet/core/http"
	"github.com/searchktools/cruet/core/wire"
)

// Request is a memoized convenience view over an Environ. Derived fields
// are computed on first access and cached forever; the first access wins
// even if the underlying environ changes afterwards. Instances are not
// safe for concurrent use, matching the one-dispatch-at-a-time engine.
type Request struct {
	env *Environ

	// Endpoint and PathParams are filled in by the dispatcher after
	// routing.
	Endpoint   string
	PathParams map[string]any

	argsDone bool
	args     wire.Values

	headersDone bool
	headers     http.Headers

	dataDone bool
	data     []byte

	jsonDone bool
	jsonVal  any
	jsonErr  error

	formDone bool
	form     wire.Values

	cookiesDone bool
	cookies     map[string]string

	filesDone bool
	files     map[string]*wire.FilePart
}

func NewRequest(env *Environ) *Request {
	return &Request{env: env}
}

// Environ returns the raw environment the request wraps.
func (r *Request) Environ() *Environ { return r.env }

func (r *Request) Method() string { return r.env.Method }

func (r *Request) Path() string { return r.env.Path }

func (r *Request) Query() string { return r.env.Query }

// FullPath returns the path joined with the query string. The trailing
// '?' stays even when the query string is empty.
func (r *Request) FullPath() string {
	return r.env.Path + "?" + r.env.Query
}

// Host returns HTTP_HOST, falling back to the server address with the
// default ports 80 and 443 omitted.
func (r *Request) Host() string {
	if host, ok := r.env.Headers["HTTP_HOST"]; ok {
		return host
	}
	name := r.env.ServerName
	if name == "" {
		name = "localhost"
	}
	port := r.env.ServerPort
	if port == "" {
		port = "80"
	}
	if port == "80" || port == "443" {
		return name
	}
	return name + ":" + port
}

// URL returns the reconstructed absolute URL including the query string.
func (r *Request) URL() string {
	base := r.BaseURL()
	if r.env.Query != "" {
		return base + "?" + r.env.Query
	}
	return base
}

// BaseURL returns the absolute URL without the query string.
func (r *Request) BaseURL() string {
	return r.Scheme() + "://" + r.Host() + r.env.Path
}

func (r *Request) Scheme() string {
	if r.env.Scheme != "" {
		return r.env.Scheme
	}
	return "http"
}

func (r *Request) IsSecure() bool {
	return strings.EqualFold(r.Scheme(), "https")
}

// Mimetype returns the Content-Type without parameters, trailing
// whitespace trimmed.
func (r *Request) Mimetype() string {
	ct := r.env.ContentType
	if semi := strings.IndexByte(ct, ';'); semi != -1 {
		ct = ct[:semi]
		for len(ct) > 0 && (ct[len(ct)-1] == ' ' || ct[len(ct)-1] == '\t') {
			ct = ct[:len(ct)-1]
		}
	}
	return ct
}

// ContentLength returns the declared body length, or -1 when the header
// is absent or unparseable.
func (r *Request) ContentLength() int {
	s := r.env.ContentLength
	if s == "" {
		return -1
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 0 {
		return -1
	}
	return v
}

func (r *Request) Referrer() string { return r.env.Headers["HTTP_REFERER"] }

func (r *Request) UserAgent() string { return r.env.Headers["HTTP_USER_AGENT"] }

func (r *Request) RemoteAddr() string { return r.env.RemoteAddr }

// AccessRoute returns the client chain from X-Forwarded-For with the
// direct peer appended last.
func (r *Request) AccessRoute() []string {
	var route []string
	if xff := r.env.Headers["HTTP_X_FORWARDED_FOR"]; xff != "" {
		for _, hop := range strings.Split(xff, ",") {
			hop = strings.TrimSpace(hop)
			if hop != "" {
				route = append(route, hop)
			}
		}
	}
	if r.env.RemoteAddr != "" {
		route = append(route, r.env.RemoteAddr)
	}
	return route
}

// IsJSON reports whether the Content-Type declares a JSON payload,
// including +json suffix variants.
func (r *Request) IsJSON() bool {
	ct := r.env.ContentType
	if ct == "" {
		return false
	}
	if len(ct) >= 16 && strings.EqualFold(ct[:16], "application/json") {
		return true
	}
	return containsFold(ct, "+json")
}

// Args returns the parsed query string.
func (r *Request) Args() wire.Values {
	if !r.argsDone {
		r.args = wire.ParseQuery(r.env.Query)
		r.argsDone = true
	}
	return r.args
}

// Headers reconstructs an ordered header container from the environ.
// Content-Type and Content-Length come first, then the HTTP_ keys in
// sorted order with names rebuilt as Title-Case.
func (r *Request) Headers() *http.Headers {
	if !r.headersDone {
		if r.env.ContentType != "" {
			r.headers.Add("Content-Type", r.env.ContentType)
		}
		if r.env.ContentLength != "" {
			r.headers.Add("Content-Length", r.env.ContentLength)
		}
		for _, key := range sortedKeys(r.env.Headers) {
			r.headers.Add(headerName(key[len("HTTP_"):]), r.env.Headers[key])
		}
		r.headersDone = true
	}
	return &r.headers
}

// Data returns the raw body bytes: up to Content-Length when declared
// positive, nothing when declared zero or negative, everything otherwise.
func (r *Request) Data() []byte {
	if !r.dataDone {
		r.dataDone = true
		if r.env.Input != nil {
			if r.env.ContentLength == "" {
				r.data, _ = io.ReadAll(r.env.Input)
			} else if cl := r.ContentLength(); cl > 0 {
				r.data, _ = io.ReadAll(io.LimitReader(r.env.Input, int64(cl)))
			}
		}
	}
	return r.data
}

// JSON decodes the body when the Content-Type is empty, application/json
// or a +json variant. Other content types and empty bodies yield
// (nil, nil); a decode failure is cached and returned as the error.
func (r *Request) JSON() (any, error) {
	if !r.jsonDone {
		r.jsonDone = true
		ct := r.env.ContentType
		if ct != "" && !r.IsJSON() {
			return nil, nil
		}
		data := r.Data()
		if len(data) == 0 {
			return nil, nil
		}
		r.jsonErr = json.Unmarshal(data, &r.jsonVal)
		if r.jsonErr != nil {
			r.jsonVal = nil
		}
	}
	return r.jsonVal, r.jsonErr
}

// Form returns the decoded urlencoded body, or an empty set for any
// other content type.
func (r *Request) Form() wire.Values {
	if !r.formDone {
		r.formDone = true
		const formCT = "application/x-www-form-urlencoded"
		ct := r.env.ContentType
		if len(ct) >= len(formCT) && strings.EqualFold(ct[:len(formCT)], formCT) {
			r.form = wire.ParseQuery(string(r.Data()))
		} else {
			r.form = wire.Values{}
		}
	}
	return r.form
}

// Cookies returns the parsed Cookie header.
func (r *Request) Cookies() map[string]string {
	if !r.cookiesDone {
		r.cookies = wire.ParseCookies(r.env.Headers["HTTP_COOKIE"])
		r.cookiesDone = true
	}
	return r.cookies
}

// Files returns the uploaded files of a multipart/form-data body, keyed
// by field name. Any other content type, or a missing boundary, yields
// an empty map.
func (r *Request) Files() map[string]*wire.FilePart {
	if !r.filesDone {
		r.filesDone = true
		r.files = map[string]*wire.FilePart{}

		const multipartCT = "multipart/form-data"
		ct := r.env.ContentType
		if len(ct) < len(multipartCT) || !strings.EqualFold(ct[:len(multipartCT)], multipartCT) {
			return r.files
		}
		boundary, ok := extractBoundary(ct)
		if !ok {
			return r.files
		}
		parsed := wire.ParseMultipart(r.Data(), boundary)
		if parsed != nil {
			r.files = parsed.Files
		}
	}
	return r.files
}

// Values merges Args and Form; form fields overwrite query parameters of
// the same name.
func (r *Request) Values() wire.Values {
	args := r.Args()
	form := r.Form()
	merged := make(wire.Values, len(args)+len(form))
	for k, v := range args {
		merged[k] = v
	}
	for k, v := range form {
		merged[k] = v
	}
	return merged
}

// extractBoundary pulls the boundary parameter out of a Content-Type.
// The value runs to the end of the header; one layer of surrounding
// quotes is stripped.
func extractBoundary(ct string) (string, bool) {
	i := indexFold(ct, "boundary=")
	if i == -1 {
		return "", false
	}
	b := ct[i+len("boundary="):]
	if len(b) >= 2 && b[0] == '"' && b[len(b)-1] == '"' {
		b = b[1 : len(b)-1]
	}
	if b == "" {
		return "", false
	}
	return b, true
}

func containsFold(s, sub string) bool {
	return indexFold(s, sub) != -1
}

func indexFold(s, sub string) int {
	if len(sub) == 0 {
		return 0
	}
	for i := 0; i+len(sub) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(sub)], sub) {
			return i
		}
	}
	return -1
}

// headerName rebuilds "FOO_BAR" as "Foo-Bar".
func headerName(key string) string {
	b := make([]byte, len(key))
	up := true
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == '_':
			c = '-'
			up = true
		case up:
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			up = false
		default:
			if c >= 'A' && c <= 'Z' {
				c += 'a' - 'A'
			}
		}
		b[i] = c
	}
	return string(b)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
