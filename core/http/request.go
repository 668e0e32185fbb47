package http

import "sync"

// Request is a parsed HTTP request head plus its body bytes. Instances
// are pooled; callers obtain them from Parse and return them with
// ReleaseRequest once dispatch is finished.
type Request struct {
	Method string
	Path   string
	// Query is the raw query string after the first '?', without the '?'.
	// Empty when the request target carries no query.
	Query string
	Proto string

	Headers Headers

	// Body holds the request body bytes available at parse time. When
	// ContentLength exceeds len(Body) the caller is looking at a short
	// read and should keep buffering.
	Body []byte

	// ContentLength is the declared Content-Length, or -1 when the
	// header is absent.
	ContentLength int

	// KeepAlive reports whether the connection may serve another
	// request after this one.
	KeepAlive bool
}

var requestPool = sync.Pool{
	New: func() any {
		return &Request{
			Body:          make([]byte, 0, 1024),
			ContentLength: -1,
		}
	},
}

func AcquireRequest() *Request {
	return requestPool.Get().(*Request)
}

// Reset clears the request for reuse. Slice and header capacity is kept.
func (r *Request) Reset() {
	r.Method = ""
	r.Path = ""
	r.Query = ""
	r.Proto = ""
	r.Headers.Reset()
	r.Body = r.Body[:0]
	r.ContentLength = -1
	r.KeepAlive = false
}

func ReleaseRequest(req *Request) {
	req.Reset()
	requestPool.Put(req)
}
