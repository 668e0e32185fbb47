package router

import (
	"fmt"
	"strings"
)

// Outcome is the result classification of a Match call. "No route" is an
// ordinary outcome, not an error.
type Outcome int

const (
	Matched Outcome = iota
	NotFound
	MethodNotAllowed
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case NotFound:
		return "not found"
	case MethodNotAllowed:
		return "method not allowed"
	}
	return "unknown"
}

const (
	staticIndexInitialCap = 16
	staticIndexLoadPct    = 70

	fnvOffset uint64 = 14695981039346656037
	fnvPrime  uint64 = 1099511628211
)

func fnv1a(s string) uint64 {
	h := fnvOffset
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}

type staticEntry struct {
	key      string
	pos      int
	occupied bool
}

// staticIndex is an open-addressed hash table from literal path to rule
// position. Linear probing, growth by doubling at 70% load, no deletion.
// Duplicate keys keep the first inserted position.
type staticIndex struct {
	entries []staticEntry
	count   int
}

func (idx *staticIndex) init() {
	idx.entries = make([]staticEntry, staticIndexInitialCap)
	idx.count = 0
}

func findSlot(entries []staticEntry, key string) *staticEntry {
	i := fnv1a(key) % uint64(len(entries))
	for {
		e := &entries[i]
		if !e.occupied || e.key == key {
			return e
		}
		i = (i + 1) % uint64(len(entries))
	}
}

func (idx *staticIndex) insert(key string, pos int) {
	if (idx.count+1)*100 > len(idx.entries)*staticIndexLoadPct {
		idx.grow()
	}
	slot := findSlot(idx.entries, key)
	if slot.occupied {
		return
	}
	slot.key = key
	slot.pos = pos
	slot.occupied = true
	idx.count++
}

func (idx *staticIndex) grow() {
	next := make([]staticEntry, len(idx.entries)*2)
	for i := range idx.entries {
		e := &idx.entries[i]
		if e.occupied {
			*findSlot(next, e.key) = *e
		}
	}
	idx.entries = next
}

func (idx *staticIndex) lookup(key string) (int, bool) {
	if idx.count == 0 {
		return 0, false
	}
	slot := findSlot(idx.entries, key)
	if slot.occupied {
		return slot.pos, true
	}
	return 0, false
}

// Map is the full route table. All rules live in one ordered slice; the
// static index and dynamic list hold positions into it. Add may only be
// called before serving starts, which is why Match needs no locking.
type Map struct {
	rules   []*Rule
	index   staticIndex
	dynamic []int
}

func NewMap() *Map {
	m := &Map{}
	m.index.init()
	return m
}

// Add registers a rule. Static rules index their full pattern as the
// lookup key; everything else joins the ordered dynamic list.
func (m *Map) Add(r *Rule) {
	pos := len(m.rules)
	m.rules = append(m.rules, r)
	if r.isStatic {
		m.index.insert(r.pattern, pos)
	} else {
		m.dynamic = append(m.dynamic, pos)
	}
}

// Rules returns the registered rules in registration order. The slice is
// owned by the Map; callers must not modify it.
func (m *Map) Rules() []*Rule { return m.rules }

// Bind attaches a server name, producing the adapter used for matching
// and building.
func (m *Map) Bind(serverName string) *MapAdapter {
	return &MapAdapter{m: m, server: serverName}
}

// MapAdapter is a bound view of a Map. It is stateless beyond the Map
// reference and server name and safe for concurrent use once the Map is
// frozen.
type MapAdapter struct {
	m      *Map
	server string
}

// ServerName returns the name the Map was bound with.
func (a *MapAdapter) ServerName() string { return a.server }

// Match resolves path and method to an endpoint and captured values.
// Static rules always win over dynamic ones for the same literal path.
// When the exact static lookup misses entirely, the path is re-probed
// with its trailing slash toggled; such a hit only counts for rules with
// strict slashes disabled. A path match with a disallowed method reports
// MethodNotAllowed once every alternative is exhausted.
func (a *MapAdapter) Match(path, method string) (string, map[string]any, Outcome) {
	method = strings.ToUpper(method)
	bit := methodBit(method)
	methodSeen := false

	if pos, ok := a.m.index.lookup(path); ok {
		r := a.m.rules[pos]
		if r.allows(bit, method) {
			return r.endpoint, nil, Matched
		}
		methodSeen = true
	} else {
		var alt string
		if len(path) > 1 && path[len(path)-1] == '/' {
			alt = path[:len(path)-1]
		} else {
			alt = path + "/"
		}
		if pos, ok := a.m.index.lookup(alt); ok {
			r := a.m.rules[pos]
			if !r.strict {
				if r.allows(bit, method) {
					return r.endpoint, nil, Matched
				}
				methodSeen = true
			}
		}
	}

	for _, pos := range a.m.dynamic {
		r := a.m.rules[pos]
		values, ok := r.matchPath(path)
		if !ok {
			continue
		}
		if !r.allows(bit, method) {
			methodSeen = true
			continue
		}
		return r.endpoint, values, Matched
	}

	if methodSeen {
		return "", nil, MethodNotAllowed
	}
	return "", nil, NotFound
}

// Build renders a URL for the first-registered rule with the given
// endpoint. Callers percent-encode the result themselves if needed.
func (a *MapAdapter) Build(endpoint string, values map[string]any) (string, error) {
	for _, r := range a.m.rules {
		if r.endpoint == endpoint {
			return r.build(values)
		}
	}
	return "", fmt.Errorf("router: no rule for endpoint %q", endpoint)
}
