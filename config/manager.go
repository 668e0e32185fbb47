package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Manager accumulates loosely-typed configuration from JSON files and
// the process environment before it is unmarshaled into a Config.
// Values set later overwrite earlier ones, which gives Load its
// defaults < file < environment precedence.
type Manager struct {
	mu       sync.RWMutex
	values   map[string]any
	watchers map[string][]func(key string, value any)
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		values:   make(map[string]any),
		watchers: make(map[string][]func(string, any)),
	}
}

// Set stores a value and synchronously notifies the key's watchers.
func (m *Manager) Set(key string, value any) {
	m.mu.Lock()
	m.values[key] = value
	watchers := m.watchers[key]
	m.mu.Unlock()

	for _, w := range watchers {
		w(key, value)
	}
}

// Get returns the raw value stored under key.
func (m *Manager) Get(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Watch registers a callback invoked on every Set of key.
func (m *Manager) Watch(key string, fn func(key string, value any)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers[key] = append(m.watchers[key], fn)
}

// GetString returns the value under key coerced to a string, or the
// optional default when absent.
func (m *Manager) GetString(key string, def ...string) string {
	if v, ok := m.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	if len(def) > 0 {
		return def[0]
	}
	return ""
}

// GetInt returns the value under key coerced to an int, or the optional
// default when absent or unparseable.
func (m *Manager) GetInt(key string, def ...int) int {
	if v, ok := m.Get(key); ok {
		switch x := v.(type) {
		case int:
			return x
		case int64:
			return int(x)
		case float64:
			return int(x)
		case string:
			if n, err := strconv.Atoi(x); err == nil {
				return n
			}
		}
	}
	if len(def) > 0 {
		return def[0]
	}
	return 0
}

// GetBool returns the value under key coerced to a bool. The strings
// "true", "yes" and "1" read as true.
func (m *Manager) GetBool(key string, def ...bool) bool {
	if v, ok := m.Get(key); ok {
		switch x := v.(type) {
		case bool:
			return x
		case string:
			return x == "true" || x == "yes" || x == "1"
		case int:
			return x != 0
		}
	}
	if len(def) > 0 {
		return def[0]
	}
	return false
}

// GetDuration returns the value under key as a time.Duration. Strings
// parse as Go durations; bare numbers count as seconds, matching the
// wire-level timeout scalars.
func (m *Manager) GetDuration(key string, def ...time.Duration) time.Duration {
	if v, ok := m.Get(key); ok {
		if d, ok := coerceDuration(v); ok {
			return d
		}
	}
	if len(def) > 0 {
		return def[0]
	}
	return 0
}

// LoadFromEnv stores every environment variable carrying prefix under
// its lowercased, prefix-stripped name: CRUET_MAX_REQUEST_SIZE becomes
// max_request_size.
func (m *Manager) LoadFromEnv(prefix string) {
	if prefix != "" && !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		key = strings.ToLower(strings.TrimPrefix(key, prefix))
		if key == "" {
			continue
		}
		m.Set(key, value)
	}
}

// LoadFromJSON stores the keys of a JSON object file. Nested objects
// flatten with '.' separators.
func (m *Manager) LoadFromJSON(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("config: reading %s: %w", file, err)
	}
	var values map[string]any
	if err := json.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("config: parsing %s: %w", file, err)
	}
	m.storeTree("", values)
	return nil
}

func (m *Manager) storeTree(prefix string, values map[string]any) {
	for key, value := range values {
		if prefix != "" {
			key = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			m.storeTree(key, nested)
			continue
		}
		m.Set(key, value)
	}
}

// Unmarshal copies stored values into the fields of target, a pointer
// to struct. Fields bind by their `config` tag, falling back to the
// lowercased field name. Values that cannot be coerced to the field's
// type leave the field untouched.
func (m *Manager) Unmarshal(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("config: unmarshal target must be a struct pointer")
	}
	rv = rv.Elem()
	rt := rv.Type()

	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := 0; i < rt.NumField(); i++ {
		field := rv.Field(i)
		if !field.CanSet() {
			continue
		}
		key := rt.Field(i).Tag.Get("config")
		if key == "" {
			key = strings.ToLower(rt.Field(i).Name)
		}
		value, ok := m.values[key]
		if !ok {
			continue
		}
		setField(field, value)
	}
	return nil
}

var (
	durationType = reflect.TypeOf(time.Duration(0))
	fileModeType = reflect.TypeOf(os.FileMode(0))
)

// setField coerces value into field. Unconvertible values are skipped
// so a stray environment variable cannot poison a valid default.
func setField(field reflect.Value, value any) {
	switch field.Type() {
	case durationType:
		if d, ok := coerceDuration(value); ok {
			field.SetInt(int64(d))
		}
		return
	case fileModeType:
		if mode, ok := coerceFileMode(value); ok {
			field.SetUint(uint64(mode))
		}
		return
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		} else {
			field.SetString(fmt.Sprintf("%v", value))
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		switch v := value.(type) {
		case int:
			field.SetInt(int64(v))
		case int64:
			field.SetInt(v)
		case float64:
			field.SetInt(int64(v))
		case string:
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				field.SetInt(n)
			}
		}
	case reflect.Bool:
		switch v := value.(type) {
		case bool:
			field.SetBool(v)
		case string:
			field.SetBool(v == "true" || v == "yes" || v == "1")
		case int:
			field.SetBool(v != 0)
		}
	case reflect.Float32, reflect.Float64:
		switch v := value.(type) {
		case float64:
			field.SetFloat(v)
		case int:
			field.SetFloat(float64(v))
		case string:
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				field.SetFloat(f)
			}
		}
	}
}

func coerceDuration(value any) (time.Duration, bool) {
	switch v := value.(type) {
	case time.Duration:
		return v, true
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d, true
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(f * float64(time.Second)), true
		}
	case float64:
		return time.Duration(v * float64(time.Second)), true
	case int:
		return time.Duration(v) * time.Second, true
	case int64:
		return time.Duration(v) * time.Second, true
	}
	return 0, false
}

// coerceFileMode reads strings as octal; numbers carry the literal mode
// bits.
func coerceFileMode(value any) (os.FileMode, bool) {
	switch v := value.(type) {
	case string:
		if n, err := strconv.ParseUint(v, 8, 32); err == nil {
			return os.FileMode(n), true
		}
	case float64:
		return os.FileMode(uint32(v)), true
	case int:
		return os.FileMode(uint32(v)), true
	}
	return 0, false
}
