package wire

import "bytes"

// FilePart is one uploaded file from a multipart/form-data body.
type FilePart struct {
	Filename    string
	ContentType string
	Data        []byte
}

// MultipartData is the decoded content of a multipart/form-data body.
// A part name repeated later overwrites the earlier entry.
type MultipartData struct {
	Fields map[string]string
	Files  map[string]*FilePart
}

var (
	crlf        = []byte("\r\n")
	headBodySep = []byte("\r\n\r\n")
)

// ParseMultipart splits body at "--boundary" delimiters. Each part divides
// at its first blank line into a header block and content. Parts must carry
// a Content-Disposition header with a name parameter, or they are skipped.
// A filename parameter classifies the part as a file (raw bytes, content
// type defaulting to application/octet-stream); otherwise the content is a
// text field with invalid UTF-8 replaced. Parsing stops at the terminal
// boundary, marked by a trailing "--". Part data is copied out of body.
func ParseMultipart(body []byte, boundary string) *MultipartData {
	md := &MultipartData{
		Fields: make(map[string]string),
		Files:  make(map[string]*FilePart),
	}

	delim := []byte("--" + boundary)
	p := bytes.Index(body, delim)
	if p < 0 {
		return md
	}
	p += len(delim)
	if p+2 <= len(body) && body[p] == '\r' && body[p+1] == '\n' {
		p += 2
	}

	for p < len(body) {
		partEnd := len(body)
		more := false
		if i := bytes.Index(body[p:], delim); i >= 0 {
			partEnd = p + i
			more = true
		}

		part := body[p:partEnd]
		if len(part) < 4 {
			break
		}
		part = bytes.TrimSuffix(part, crlf)

		sep := bytes.Index(part, headBodySep)
		if sep < 0 {
			break
		}
		headerBlock := part[:sep]
		content := part[sep+4:]

		if cd, ok := partHeader(headerBlock, "Content-Disposition"); ok {
			if name, ok := headerParam(cd, "name"); ok {
				if filename, ok := headerParam(cd, "filename"); ok {
					ct := "application/octet-stream"
					if v, ok := partHeader(headerBlock, "Content-Type"); ok {
						ct = string(v)
					}
					md.Files[name] = &FilePart{
						Filename:    filename,
						ContentType: ct,
						Data:        append([]byte(nil), content...),
					}
				} else {
					md.Fields[name] = sanitizeUTF8(string(content))
				}
			}
		}

		if !more {
			break
		}
		p = partEnd + len(delim)
		if p+2 <= len(body) && body[p] == '-' && body[p+1] == '-' {
			break
		}
		if p+2 <= len(body) && body[p] == '\r' && body[p+1] == '\n' {
			p += 2
		}
	}

	return md
}

// partHeader finds a header line in a part's header block. Name comparison
// is ASCII case-insensitive; leading whitespace in the value is skipped.
func partHeader(block []byte, name string) ([]byte, bool) {
	for len(block) > 0 {
		line := block
		rest := []byte(nil)
		if i := bytes.Index(block, crlf); i >= 0 {
			line, rest = block[:i], block[i+2:]
		}

		if len(line) > len(name)+1 && line[len(name)] == ':' && asciiEqualFold(line[:len(name)], name) {
			val := line[len(name)+1:]
			for len(val) > 0 && (val[0] == ' ' || val[0] == '\t') {
				val = val[1:]
			}
			return val, true
		}

		block = rest
	}
	return nil, false
}

// headerParam extracts a parameter such as name="foo" from a header value.
// Quoted values stop at the closing quote (a missing close quote means the
// parameter is absent); bare values stop at ';', space, or CR.
func headerParam(header []byte, param string) (string, bool) {
	plen := len(param)
	for i := 0; i+plen+1 < len(header); i++ {
		if header[i+plen] != '=' || !asciiEqualFold(header[i:i+plen], param) {
			continue
		}
		v := header[i+plen+1:]
		if v[0] == '"' {
			v = v[1:]
			q := bytes.IndexByte(v, '"')
			if q < 0 {
				return "", false
			}
			return string(v[:q]), true
		}
		end := 0
		for end < len(v) && v[end] != ';' && v[end] != ' ' && v[end] != '\r' {
			end++
		}
		return string(v[:end]), true
	}
	return "", false
}

func asciiEqualFold(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(s); i++ {
		if asciiLower(b[i]) != asciiLower(s[i]) {
			return false
		}
	}
	return true
}

func asciiLower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
