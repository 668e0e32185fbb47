package gateway

import (
	"bytes"
	"io"
	"os"
	"strconv"

	"github.com/searchktools/cruet/core/http"
)

// Environ describes one request to the application in CGI-style terms.
// Scalar fields mirror the classic gateway keys; everything else from the
// request head lands in Headers under an HTTP_ prefixed name.
type Environ struct {
	Method     string
	ScriptName string // always empty, applications mount at the root
	Path       string
	Query      string
	ServerName string
	ServerPort string
	Protocol   string
	Scheme     string
	RemoteAddr string
	RemotePort string

	// ContentType and ContentLength pass through unprefixed.
	ContentType   string
	ContentLength string

	// Headers maps HTTP_NAME (uppercased, '-' replaced by '_') to the
	// header value. Later duplicates overwrite earlier ones.
	Headers map[string]string

	// Input reads the request body; the bytes are owned by the Environ.
	Input io.Reader
	// Errors receives application error output.
	Errors io.Writer

	Multithread  bool
	Multiprocess bool
	RunOnce      bool

	// GatewayVersion is the invocation protocol version marker.
	GatewayVersion [2]int
}

// Respond registers the response status line ("200 OK") and header pairs.
// Applications must call it exactly once before or while producing the
// body; the engine honors the last call.
type Respond func(status string, headers [][2]string)

// Handler is the application-invocation contract. The returned Body is
// drained by the engine; if it also implements io.Closer it is closed
// after the response is fully produced.
type Handler func(env *Environ, respond Respond) Body

// Body yields response chunks until done.
type Body interface {
	Next() ([]byte, bool)
}

// BuildEnviron transforms a parsed request into a fresh application
// environment. See FillEnviron.
func BuildEnviron(req *http.Request, remoteAddr string, remotePort int, serverName string, serverPort int) *Environ {
	env := &Environ{}
	FillEnviron(env, req, remoteAddr, remotePort, serverName, serverPort)
	return env
}

// FillEnviron populates env from a parsed request so pooled Environ
// objects can be reused. Content-Type and Content-Length map to
// dedicated fields, Host becomes HTTP_HOST, and every other header is
// prefixed into Headers. When the request carried no Host header,
// HTTP_HOST is synthesized from the server address. Body bytes are
// copied, so the request may be released immediately.
func FillEnviron(env *Environ, req *http.Request, remoteAddr string, remotePort int, serverName string, serverPort int) {
	env.Method = req.Method
	env.Path = req.Path
	env.Query = req.Query
	env.ServerName = serverName
	env.ServerPort = strconv.Itoa(serverPort)
	env.Protocol = req.Proto
	env.Scheme = "http"
	env.Errors = os.Stderr
	env.Multiprocess = true
	env.GatewayVersion = [2]int{1, 0}

	if env.Headers == nil {
		env.Headers = make(map[string]string, req.Headers.Len())
	}

	if remoteAddr != "" {
		env.RemoteAddr = remoteAddr
		env.RemotePort = strconv.Itoa(remotePort)
	}

	body := make([]byte, len(req.Body))
	copy(body, req.Body)
	env.Input = bytes.NewReader(body)

	for _, pair := range req.Headers.All() {
		key := environKey(pair[0])
		switch key {
		case "CONTENT_TYPE":
			env.ContentType = pair[1]
		case "CONTENT_LENGTH":
			env.ContentLength = pair[1]
		case "HOST":
			env.Headers["HTTP_HOST"] = pair[1]
		default:
			env.Headers["HTTP_"+key] = pair[1]
		}
	}

	if _, ok := env.Headers["HTTP_HOST"]; !ok {
		env.Headers["HTTP_HOST"] = serverName + ":" + env.ServerPort
	}
}

// ResetEnviron clears env for pooled reuse, keeping the header map's
// storage.
func ResetEnviron(env *Environ) {
	env.Method = ""
	env.ScriptName = ""
	env.Path = ""
	env.Query = ""
	env.ServerName = ""
	env.ServerPort = ""
	env.Protocol = ""
	env.Scheme = ""
	env.RemoteAddr = ""
	env.RemotePort = ""
	env.ContentType = ""
	env.ContentLength = ""
	env.Input = nil
	env.Errors = nil
	env.Multithread = false
	env.Multiprocess = false
	env.RunOnce = false
	env.GatewayVersion = [2]int{}
	for k := range env.Headers {
		delete(env.Headers, k)
	}
}

// environKey uppercases a header name and replaces '-' with '_'.
func environKey(name string) string {
	b := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '-':
			c = '_'
		case c >= 'a' && c <= 'z':
			c -= 'a' - 'A'
		}
		b[i] = c
	}
	return string(b)
}

// FormatResponse serializes a status line, header pairs and body chunks
// into one contiguous byte slice. Header space is estimated up front and
// the body length pre-summed, so the buffer grows only when the header
// estimate falls short.
func FormatResponse(status string, headers [][2]string, chunks [][]byte) []byte {
	est := 32 + len(status) + len(headers)*64
	bodyLen := 0
	for _, c := range chunks {
		bodyLen += len(c)
	}

	out := make([]byte, 0, est+bodyLen)
	out = append(out, "HTTP/1.1 "...)
	out = append(out, status...)
	out = append(out, '\r', '\n')
	for _, h := range headers {
		out = append(out, h[0]...)
		out = append(out, ':', ' ')
		out = append(out, h[1]...)
		out = append(out, '\r', '\n')
	}
	out = append(out, '\r', '\n')
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

// Capture is the engine-side receiver for a Respond callback. The last
// registration wins.
type Capture struct {
	Status  string
	Headers [][2]string
	called  bool
}

func (c *Capture) Respond(status string, headers [][2]string) {
	c.Status = status
	c.Headers = headers
	c.called = true
}

// Called reports whether Respond was invoked at least once.
func (c *Capture) Called() bool { return c.called }

// BytesBody yields one byte slice exactly once. Close ends iteration
// early.
type BytesBody struct {
	data      []byte
	exhausted bool
	closed    bool
}

func NewBytesBody(data []byte) *BytesBody {
	return &BytesBody{data: data}
}

func (b *BytesBody) Next() ([]byte, bool) {
	if b.closed || b.exhausted {
		return nil, false
	}
	b.exhausted = true
	return b.data, true
}

func (b *BytesBody) Close() error {
	b.closed = true
	return nil
}

// DrainBody collects every chunk of b and closes it when it implements
// io.Closer.
func DrainBody(b Body) [][]byte {
	if b == nil {
		return nil
	}
	var chunks [][]byte
	for {
		c, ok := b.Next()
		if !ok {
			break
		}
		chunks = append(chunks, c)
	}
	if cl, ok := b.(io.Closer); ok {
		cl.Close()
	}
	return chunks
}

// StatusText returns the reason phrase for the status codes the server
// emits itself.
func StatusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 301:
		return "Moved Permanently"
	case 302:
		return "Found"
	case 304:
		return "Not Modified"
	case 400:
		return "Bad Request"
	case 401:
		return "Unauthorized"
	case 403:
		return "Forbidden"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 413:
		return "Request Entity Too Large"
	case 500:
		return "Internal Server Error"
	case 502:
		return "Bad Gateway"
	case 503:
		return "Service Unavailable"
	}
	return "Unknown"
}
