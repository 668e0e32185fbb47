package router

import (
	"fmt"
	"strings"

	"github.com/searchktools/cruet/core/buffer"
)

// Method bits for the eight standard verbs. Nonstandard verbs live in a
// per-rule side set instead.
const (
	bitGET     uint16 = 0x01
	bitHEAD    uint16 = 0x02
	bitPOST    uint16 = 0x04
	bitPUT     uint16 = 0x08
	bitDELETE  uint16 = 0x10
	bitPATCH   uint16 = 0x20
	bitOPTIONS uint16 = 0x40
	bitTRACE   uint16 = 0x80
)

func methodBit(m string) uint16 {
	switch m {
	case "GET":
		return bitGET
	case "HEAD":
		return bitHEAD
	case "POST":
		return bitPOST
	case "PUT":
		return bitPUT
	case "DELETE":
		return bitDELETE
	case "PATCH":
		return bitPATCH
	case "OPTIONS":
		return bitOPTIONS
	case "TRACE":
		return bitTRACE
	}
	return 0
}

type segKind int

const (
	segStatic segKind = iota
	segDynamic
)

type segment struct {
	kind   segKind
	static string    // segStatic literal text
	name   string    // segDynamic variable name
	conv   converter // segDynamic converter
}

// Rule is one compiled route pattern. Rules are immutable after
// construction; a Map may therefore be matched without locking once
// registration is done.
type Rule struct {
	pattern  string
	endpoint string
	methods  uint16
	extra    map[string]struct{}
	strict   bool
	segments []segment
	isStatic bool
}

// NewRule compiles pattern into a Rule. Dynamic markers take the forms
// <name>, <converter:name>, <converter(args):name> and
// <any(v1,v2,...):name>. A nil methods slice defaults to GET; HEAD and
// OPTIONS are always allowed. strictSlashes true requires the path to
// match the pattern's trailing slash exactly.
func NewRule(pattern, endpoint string, methods []string, strictSlashes bool) (*Rule, error) {
	r := &Rule{
		pattern:  pattern,
		endpoint: endpoint,
		strict:   strictSlashes,
	}

	if methods == nil {
		r.methods = bitGET
	} else {
		for _, m := range methods {
			m = strings.ToUpper(m)
			if bit := methodBit(m); bit != 0 {
				r.methods |= bit
			} else {
				if r.extra == nil {
					r.extra = make(map[string]struct{})
				}
				r.extra[m] = struct{}{}
			}
		}
	}
	r.methods |= bitHEAD | bitOPTIONS

	if err := r.compile(); err != nil {
		return nil, err
	}

	r.isStatic = true
	for i := range r.segments {
		if r.segments[i].kind != segStatic {
			r.isStatic = false
			break
		}
	}
	return r, nil
}

// Pattern returns the rule string the Rule was compiled from.
func (r *Rule) Pattern() string { return r.pattern }

// Endpoint returns the endpoint identifier.
func (r *Rule) Endpoint() string { return r.endpoint }

// StrictSlashes reports whether trailing-slash variants are rejected.
func (r *Rule) StrictSlashes() bool { return r.strict }

// compile splits the pattern into static and dynamic segments.
func (r *Rule) compile() error {
	p := r.pattern
	for len(p) > 0 {
		if p[0] != '<' {
			end := strings.IndexByte(p, '<')
			if end == -1 {
				end = len(p)
			}
			r.segments = append(r.segments, segment{kind: segStatic, static: p[:end]})
			p = p[end:]
			continue
		}

		end := strings.IndexByte(p, '>')
		if end == -1 {
			return fmt.Errorf("router: unclosed dynamic segment in pattern %q", r.pattern)
		}
		marker := p[1:end]
		p = p[end+1:]

		name, conv, err := parseMarker(marker)
		if err != nil {
			return err
		}
		r.segments = append(r.segments, segment{kind: segDynamic, name: name, conv: conv})
	}
	return nil
}

// parseMarker splits "converter(args):name" into its parts. A colon
// inside parentheses does not terminate the converter name. A marker
// without a colon is a bare variable name with the default converter.
func parseMarker(marker string) (string, converter, error) {
	parenOpen, parenClose, colon := -1, -1, -1
	for i := 0; i < len(marker); i++ {
		switch marker[i] {
		case '(':
			if parenOpen == -1 {
				parenOpen = i
			}
		case ')':
			if parenOpen != -1 && parenClose == -1 {
				parenClose = i
			}
		case ':':
			if colon == -1 && (parenOpen == -1 || parenClose != -1) {
				colon = i
			}
		}
	}

	if colon == -1 {
		conv, err := newConverter("", "")
		return marker, conv, err
	}

	name := marker[colon+1:]
	convName := marker[:colon]
	params := ""
	if parenOpen != -1 && parenClose != -1 {
		convName = marker[:parenOpen]
		params = marker[parenOpen+1 : parenClose]
	}
	conv, err := newConverter(convName, params)
	return name, conv, err
}

// allows reports whether the rule accepts a method. bit is the method's
// bitmask bit, or 0 for nonstandard methods, which fall back to the side
// set.
func (r *Rule) allows(bit uint16, method string) bool {
	if bit != 0 {
		return r.methods&bit != 0
	}
	_, ok := r.extra[method]
	return ok
}

// matchPath walks the rule's segments against path. It returns the
// captured values on a match; a false result is an ordinary no-match.
// The whole path must be consumed, except that a rule with strict
// slashes disabled may leave exactly one trailing '/' over.
func (r *Rule) matchPath(path string) (map[string]any, bool) {
	var values map[string]any
	p := path

	for i := range r.segments {
		seg := &r.segments[i]

		switch {
		case seg.kind == segStatic:
			if len(p) < len(seg.static) || p[:len(seg.static)] != seg.static {
				return nil, false
			}
			p = p[len(seg.static):]

		case seg.conv.kind == convPath:
			// Greedy: everything except trailing static text.
			trail := 0
			for j := i + 1; j < len(r.segments); j++ {
				if r.segments[j].kind == segStatic {
					trail += len(r.segments[j].static)
				}
			}
			if len(p) <= trail {
				return nil, false
			}
			capture := p[:len(p)-trail]
			v, ok := seg.conv.convert(capture)
			if !ok {
				return nil, false
			}
			if values == nil {
				values = make(map[string]any)
			}
			values[seg.name] = v
			p = p[len(capture):]

		default:
			// Consume up to the next '/'; empty captures never match.
			end := strings.IndexByte(p, '/')
			if end == -1 {
				end = len(p)
			}
			if end == 0 {
				return nil, false
			}
			v, ok := seg.conv.convert(p[:end])
			if !ok {
				return nil, false
			}
			if values == nil {
				values = make(map[string]any)
			}
			values[seg.name] = v
			p = p[end:]
		}
	}

	if len(p) > 0 {
		if !r.strict && p == "/" {
			return values, true
		}
		return nil, false
	}
	return values, true
}

// build renders the rule with values substituted for its dynamic
// segments. No escaping is applied.
func (r *Rule) build(values map[string]any) (string, error) {
	buf := buffer.Acquire()
	defer buffer.Release(buf)

	for i := range r.segments {
		seg := &r.segments[i]
		if seg.kind == segStatic {
			buf.AppendString(seg.static)
			continue
		}
		v, ok := values[seg.name]
		if !ok {
			return "", fmt.Errorf("router: missing build argument %q", seg.name)
		}
		buf.AppendString(buildValue(v))
	}
	return buf.String(), nil
}
