package http

import (
	"bytes"
	"errors"
	"math"
)

// ErrMalformedRequest reports a request line that is present but cannot
// be parsed as METHOD SP TARGET SP VERSION.
var ErrMalformedRequest = errors.New("malformed request line")

var (
	crlf     = []byte("\r\n")
	headTerm = []byte("\r\n\r\n")
)

// Parse reads one HTTP/1.x request from buf. It returns (nil, nil) while
// buf does not yet hold a complete request head: no CRLF-terminated
// request line, or no blank line closing the header block. A request
// line that is present but malformed yields ErrMalformedRequest even if
// the rest of the head has not arrived.
//
// Body bytes are taken as available: when the declared Content-Length
// exceeds what buf holds, Body carries the shorter prefix and the caller
// decides whether to keep buffering. Declared lengths <= 0 and a missing
// Content-Length both produce an empty Body.
//
// The returned Request is pooled; pass it to ReleaseRequest when done.
// Every field is copied, so buf may be reused immediately.
func Parse(buf []byte) (*Request, error) {
	lineEnd := bytes.Index(buf, crlf)
	if lineEnd == -1 {
		return nil, nil
	}
	line := buf[:lineEnd]

	sp1 := bytes.IndexByte(line, ' ')
	if sp1 == -1 {
		return nil, ErrMalformedRequest
	}
	sp2 := bytes.IndexByte(line[sp1+1:], ' ')
	if sp2 == -1 {
		return nil, ErrMalformedRequest
	}
	sp2 += sp1 + 1
	if len(line)-(sp2+1) < 6 {
		return nil, ErrMalformedRequest
	}

	headEnd := bytes.Index(buf, headTerm)
	if headEnd == -1 {
		return nil, nil
	}
	bodyStart := headEnd + len(headTerm)

	req := AcquireRequest()
	req.Method = string(line[:sp1])
	req.Proto = string(line[sp2+1:])
	req.KeepAlive = req.Proto == "HTTP/1.1"

	target := line[sp1+1 : sp2]
	if q := bytes.IndexByte(target, '?'); q != -1 {
		req.Path = string(target[:q])
		req.Query = string(target[q+1:])
	} else {
		req.Path = string(target)
	}

	parseHeaders(req, buf[lineEnd+2:headEnd])

	avail := buf[bodyStart:]
	switch {
	case req.ContentLength > 0 && len(avail) >= req.ContentLength:
		req.Body = append(req.Body[:0], avail[:req.ContentLength]...)
	case req.ContentLength > 0:
		req.Body = append(req.Body[:0], avail...)
	}

	return req, nil
}

// parseHeaders fills req.Headers from the CRLF-separated lines in data.
// Lines without a colon are skipped. Names are stored verbatim; values
// lose leading whitespace only.
func parseHeaders(req *Request, data []byte) {
	for len(data) > 0 {
		var line []byte
		if i := bytes.Index(data, crlf); i != -1 {
			line = data[:i]
			data = data[i+2:]
		} else {
			line = data
			data = nil
		}

		colon := bytes.IndexByte(line, ':')
		if colon == -1 {
			continue
		}
		name := string(line[:colon])
		val := line[colon+1:]
		for len(val) > 0 && (val[0] == ' ' || val[0] == '\t') {
			val = val[1:]
		}
		value := string(val)
		req.Headers.Add(name, value)

		if equalFold(name, "Content-Length") {
			req.ContentLength = parseContentLength(value)
		} else if equalFold(name, "Connection") && equalFold(value, "close") {
			req.KeepAlive = false
		}
	}
}

// parseContentLength reads an optionally signed decimal from s, ignoring
// leading whitespace and trailing garbage. No digits at all yields 0.
func parseContentLength(s string) int {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}
	n := 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		d := int(s[i] - '0')
		if n > (math.MaxInt-d)/10 {
			n = math.MaxInt
			continue
		}
		n = n*10 + d
	}
	if neg {
		return -n
	}
	return n
}
