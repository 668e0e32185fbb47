package http

// Headers is an ordered collection of (name, value) pairs. Name equality
// is ASCII case-insensitive; insertion order is preserved, including
// duplicate names. The zero value is ready to use.
type Headers struct {
	pairs [][2]string
}

// Get returns the first value recorded under name, or "" if absent.
func (h *Headers) Get(name string) string {
	for i := range h.pairs {
		if equalFold(h.pairs[i][0], name) {
			return h.pairs[i][1]
		}
	}
	return ""
}

// Values returns every value recorded under name, in insertion order.
func (h *Headers) Values(name string) []string {
	var out []string
	for i := range h.pairs {
		if equalFold(h.pairs[i][0], name) {
			out = append(out, h.pairs[i][1])
		}
	}
	return out
}

// Set removes every pair named name, then appends (name, value).
func (h *Headers) Set(name, value string) {
	h.Del(name)
	h.pairs = append(h.pairs, [2]string{name, value})
}

// Add appends (name, value), keeping any existing pairs with the same name.
func (h *Headers) Add(name, value string) {
	h.pairs = append(h.pairs, [2]string{name, value})
}

// Del removes every pair named name.
func (h *Headers) Del(name string) {
	out := h.pairs[:0]
	for i := range h.pairs {
		if !equalFold(h.pairs[i][0], name) {
			out = append(out, h.pairs[i])
		}
	}
	h.pairs = out
}

// Has reports whether at least one pair is named name.
func (h *Headers) Has(name string) bool {
	for i := range h.pairs {
		if equalFold(h.pairs[i][0], name) {
			return true
		}
	}
	return false
}

// Len returns the number of stored pairs.
func (h *Headers) Len() int {
	return len(h.pairs)
}

// All returns the underlying pairs in insertion order. The slice is valid
// until the next mutation; callers must not modify it.
func (h *Headers) All() [][2]string {
	return h.pairs
}

// Reset drops all pairs but keeps the backing capacity.
func (h *Headers) Reset() {
	h.pairs = h.pairs[:0]
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if lower(a[i]) != lower(b[i]) {
			return false
		}
	}
	return true
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
