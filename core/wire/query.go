package wire

import "strings"

// ParseQuery decodes a raw query string or urlencoded form body. Pairs
// split on '&' or ';' (empty segments skipped), each pair splits at its
// first '='; keys and values decode independently through
// DecodePercentPlus. A pair without '=' becomes a key with an empty value.
// Repeated keys accumulate in order.
func ParseQuery(qs string) Values {
	out := make(Values)

	for len(qs) > 0 {
		var pair string
		if i := strings.IndexAny(qs, "&;"); i >= 0 {
			pair, qs = qs[:i], qs[i+1:]
		} else {
			pair, qs = qs, ""
		}
		if pair == "" {
			continue
		}

		key, val := pair, ""
		if eq := strings.IndexByte(pair, '='); eq >= 0 {
			key, val = pair[:eq], pair[eq+1:]
		}
		out.Add(DecodePercentPlus(key), DecodePercentPlus(val))
	}

	return out
}
