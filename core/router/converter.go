package router

import (
	"fmt"
	"strconv"
	"strings"
)

type converterKind int

const (
	convString converterKind = iota
	convInt
	convFloat
	convUUID
	convPath
	convAny
)

// converter validates and types one captured path segment. A zero
// converter of kind convString accepts any non-empty capture.
type converter struct {
	kind converterKind

	// string params; 0 means unset except minLength, which defaults to 1.
	minLength int
	maxLength int
	length    int

	// int params
	fixedDigits int
	intMin      int
	intMax      int
	hasIntMin   bool
	hasIntMax   bool

	// float params
	floatMin    float64
	floatMax    float64
	hasFloatMin bool
	hasFloatMax bool

	// any converter membership set, in declaration order
	items []string
}

// newConverter builds a converter from its pattern name and the raw text
// between its parentheses. Unknown names fall back to the string
// converter. Malformed arguments are a construction error.
func newConverter(name, params string) (converter, error) {
	var c converter
	switch name {
	case "", "string":
		c.kind = convString
		c.minLength = 1
	case "int":
		c.kind = convInt
	case "float":
		c.kind = convFloat
	case "uuid":
		c.kind = convUUID
	case "path":
		c.kind = convPath
	case "any":
		c.kind = convAny
	default:
		c.kind = convString
		c.minLength = 1
	}
	if params == "" {
		return c, nil
	}

	switch c.kind {
	case convAny:
		for _, item := range strings.Split(params, ",") {
			item = strings.TrimSpace(item)
			if item != "" {
				c.items = append(c.items, item)
			}
		}
	case convString:
		if err := parseConverterArgs(params, func(key, val string) error {
			n, err := strconv.Atoi(val)
			if err != nil {
				return err
			}
			switch key {
			case "minlength":
				c.minLength = n
			case "maxlength":
				c.maxLength = n
			case "length":
				c.length = n
			default:
				return fmt.Errorf("unknown argument %q", key)
			}
			return nil
		}); err != nil {
			return c, err
		}
	case convInt:
		if err := parseConverterArgs(params, func(key, val string) error {
			n, err := strconv.Atoi(val)
			if err != nil {
				return err
			}
			switch key {
			case "fixed_digits":
				c.fixedDigits = n
			case "min":
				c.intMin = n
				c.hasIntMin = true
			case "max":
				c.intMax = n
				c.hasIntMax = true
			default:
				return fmt.Errorf("unknown argument %q", key)
			}
			return nil
		}); err != nil {
			return c, err
		}
	case convFloat:
		if err := parseConverterArgs(params, func(key, val string) error {
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return err
			}
			switch key {
			case "min":
				c.floatMin = f
				c.hasFloatMin = true
			case "max":
				c.floatMax = f
				c.hasFloatMax = true
			default:
				return fmt.Errorf("unknown argument %q", key)
			}
			return nil
		}); err != nil {
			return c, err
		}
	}
	return c, nil
}

func parseConverterArgs(params string, set func(key, val string) error) error {
	for _, arg := range strings.Split(params, ",") {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		eq := strings.IndexByte(arg, '=')
		if eq == -1 {
			return fmt.Errorf("router: bad converter argument %q", arg)
		}
		key := strings.TrimSpace(arg[:eq])
		val := strings.TrimSpace(arg[eq+1:])
		if err := set(key, val); err != nil {
			return fmt.Errorf("router: bad converter argument %q: %w", arg, err)
		}
	}
	return nil
}

// convert validates s and returns its typed value. A false result means
// the owning rule does not match; it is never an error.
func (c *converter) convert(s string) (any, bool) {
	switch c.kind {
	case convString:
		if c.length > 0 && len(s) != c.length {
			return nil, false
		}
		if len(s) < c.minLength {
			return nil, false
		}
		if c.maxLength > 0 && len(s) > c.maxLength {
			return nil, false
		}
		return s, true

	case convInt:
		if len(s) == 0 {
			return nil, false
		}
		for i := 0; i < len(s); i++ {
			if s[i] < '0' || s[i] > '9' {
				return nil, false
			}
		}
		if c.fixedDigits > 0 && len(s) != c.fixedDigits {
			return nil, false
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, false
		}
		if c.hasIntMin && v < c.intMin {
			return nil, false
		}
		if c.hasIntMax && v > c.intMax {
			return nil, false
		}
		return v, true

	case convFloat:
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		if c.hasFloatMin && v < c.floatMin {
			return nil, false
		}
		if c.hasFloatMax && v > c.floatMax {
			return nil, false
		}
		return v, true

	case convUUID:
		if len(s) != 36 {
			return nil, false
		}
		for i := 0; i < 36; i++ {
			switch i {
			case 8, 13, 18, 23:
				if s[i] != '-' {
					return nil, false
				}
			default:
				if !isHex(s[i]) {
					return nil, false
				}
			}
		}
		return s, true

	case convPath:
		return s, true

	case convAny:
		for _, item := range c.items {
			if item == s {
				return s, true
			}
		}
		return nil, false
	}
	return s, true
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// buildValue renders a substituted value during reverse building. Floats
// always carry a decimal point or exponent so they re-match the float
// converter.
func buildValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		s := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	default:
		return fmt.Sprint(x)
	}
}
