package gateway

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrFileOutsideRoot reports a SendFromDirectory name that escapes the
// root directory.
var ErrFileOutsideRoot = errors.New("gateway: file outside root directory")

// FileOptions adjusts how SendFile presents a file.
type FileOptions struct {
	// ContentType overrides the extension-based guess.
	ContentType string

	// AsAttachment adds a Content-Disposition header; DownloadName
	// overrides the file's own base name there.
	AsAttachment bool
	DownloadName string

	// MaxAge, when HasMaxAge is set, emits Cache-Control: max-age.
	MaxAge    int
	HasMaxAge bool
}

// SendFile builds a 200 response carrying the file at path. The content
// type is guessed from the extension unless overridden.
func SendFile(path string, opts FileOptions) (*Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	ct := opts.ContentType
	if ct == "" {
		ct = ContentTypeByExt(path)
	}
	resp := NewResponse(data, 200)
	resp.SetContentType(ct)

	if opts.AsAttachment {
		name := opts.DownloadName
		if name == "" {
			name = filepath.Base(path)
		}
		resp.Headers.Set("Content-Disposition", `attachment; filename="`+name+`"`)
	}
	if opts.HasMaxAge {
		resp.Headers.Set("Cache-Control", "max-age="+strconv.Itoa(opts.MaxAge))
	}
	return resp, nil
}

// SendFromDirectory resolves name inside dir and serves it. Names that
// escape the directory after cleaning report ErrFileOutsideRoot; every
// error maps naturally to a 404 at the call site.
func SendFromDirectory(dir, name string, opts FileOptions) (*Response, error) {
	clean := filepath.Clean(name)
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return nil, ErrFileOutsideRoot
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	full := filepath.Join(root, clean)
	if full != root && !strings.HasPrefix(full, root+string(filepath.Separator)) {
		return nil, ErrFileOutsideRoot
	}

	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, os.ErrNotExist
	}
	return SendFile(full, opts)
}

// ContentTypeByExt maps a file extension to its MIME type, defaulting
// to application/octet-stream.
func ContentTypeByExt(filename string) string {
	switch filepath.Ext(filename) {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js":
		return "application/javascript; charset=utf-8"
	case ".json":
		return "application/json; charset=utf-8"
	case ".xml":
		return "application/xml; charset=utf-8"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".ico":
		return "image/x-icon"
	case ".pdf":
		return "application/pdf"
	case ".zip":
		return "application/zip"
	case ".gz":
		return "application/gzip"
	case ".txt":
		return "text/plain; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}
