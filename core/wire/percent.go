package wire

import (
	"strings"
	"unicode/utf8"
)

const upperhex = "0123456789ABCDEF"

// DecodePercentPlus decodes %XX escapes and turns '+' into a space. A '%'
// not followed by two hex digits passes through literally. Invalid UTF-8
// in the decoded result is replaced with U+FFFD.
//
// The '+' rule makes this suitable for query strings and form bodies only;
// it must not be reused for generic path text.
func DecodePercentPlus(s string) string {
	if strings.IndexByte(s, '%') < 0 && strings.IndexByte(s, '+') < 0 {
		return sanitizeUTF8(s)
	}

	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' && i+2 < len(s) {
			hi := unhex(s[i+1])
			lo := unhex(s[i+2])
			if hi >= 0 && lo >= 0 {
				b = append(b, byte(hi<<4|lo))
				i += 2
				continue
			}
		}
		if c == '+' {
			b = append(b, ' ')
		} else {
			b = append(b, c)
		}
	}
	return sanitizeUTF8(string(b))
}

// EncodePercent percent-encodes every byte outside the unreserved set
// (ALPHA / DIGIT / "-" / "_" / "." / "~") using uppercase hex.
func EncodePercent(s string) string {
	extra := 0
	for i := 0; i < len(s); i++ {
		if !isUnreserved(s[i]) {
			extra += 2
		}
	}
	if extra == 0 {
		return s
	}

	b := make([]byte, 0, len(s)+extra)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b = append(b, c)
		} else {
			b = append(b, '%', upperhex[c>>4], upperhex[c&0xf])
		}
	}
	return string(b)
}

func isUnreserved(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

func unhex(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

// sanitizeUTF8 replaces invalid byte sequences with U+FFFD. Runs of
// invalid bytes collapse into a single replacement.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, string(utf8.RuneError))
}
