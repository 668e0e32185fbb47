package wire

// Values holds decoded key/value data where one key may appear more than
// once. Values for the same key keep their arrival order.
type Values map[string][]string

// Get returns the first value recorded for key, or "" if the key is absent.
func (v Values) Get(key string) string {
	if vs := v[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// GetList returns every value recorded for key, in order.
func (v Values) GetList(key string) []string {
	return v[key]
}

// Add appends value to the list for key.
func (v Values) Add(key, value string) {
	v[key] = append(v[key], value)
}

// Has reports whether key is present.
func (v Values) Has(key string) bool {
	_, ok := v[key]
	return ok
}
