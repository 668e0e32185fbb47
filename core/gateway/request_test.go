package gateway

import (
	"bytes"
	"testing"
)

func testEnv() *Environ {
	return &Environ{
		Method:     "GET",
		Path:       "/items/7",
		Query:      "a=1&b=2",
		ServerName: "0.0.0.0",
		ServerPort: "8080",
		Protocol:   "HTTP/1.1",
		Scheme:     "http",
		RemoteAddr: "10.0.0.5",
		RemotePort: "40000",
		Headers:    map[string]string{},
	}
}

func TestRequestFullPath(t *testing.T) {
	env := testEnv()
	if got := NewRequest(env).FullPath(); got != "/items/7?a=1&b=2" {
		t.Errorf("FullPath = %q", got)
	}
	env.Query = ""
	if got := NewRequest(env).FullPath(); got != "/items/7?" {
		t.Errorf("FullPath without query = %q, the '?' must stay", got)
	}
}

func TestRequestHost(t *testing.T) {
	env := testEnv()
	env.Headers["HTTP_HOST"] = "app.example:9999"
	if got := NewRequest(env).Host(); got != "app.example:9999" {
		t.Errorf("Host = %q", got)
	}

	cases := []struct {
		name, port, want string
	}{
		{"0.0.0.0", "8080", "0.0.0.0:8080"},
		{"web.internal", "80", "web.internal"},
		{"web.internal", "443", "web.internal"},
		{"", "", "localhost"},
	}
	for _, tc := range cases {
		env := testEnv()
		env.ServerName = tc.name
		env.ServerPort = tc.port
		if got := NewRequest(env).Host(); got != tc.want {
			t.Errorf("Host(%q, %q) = %q, want %q", tc.name, tc.port, got, tc.want)
		}
	}
}

func TestRequestURL(t *testing.T) {
	env := testEnv()
	env.Headers["HTTP_HOST"] = "app.example"
	r := NewRequest(env)

	if got := r.BaseURL(); got != "http://app.example/items/7" {
		t.Errorf("BaseURL = %q", got)
	}
	if got := r.URL(); got != "http://app.example/items/7?a=1&b=2" {
		t.Errorf("URL = %q", got)
	}
	if r.IsSecure() {
		t.Error("IsSecure over http")
	}

	env.Scheme = "https"
	env.Query = ""
	r = NewRequest(env)
	if got := r.URL(); got != "https://app.example/items/7" {
		t.Errorf("https URL = %q", got)
	}
	if !r.IsSecure() {
		t.Error("IsSecure over https")
	}
}

func TestRequestMimetype(t *testing.T) {
	cases := []struct {
		ct, want string
	}{
		{"text/html; charset=utf-8", "text/html"},
		{"application/json", "application/json"},
		{"text/plain \t; charset=x", "text/plain"},
		{"", ""},
	}
	for _, tc := range cases {
		env := testEnv()
		env.ContentType = tc.ct
		if got := NewRequest(env).Mimetype(); got != tc.want {
			t.Errorf("Mimetype(%q) = %q, want %q", tc.ct, got, tc.want)
		}
	}
}

func TestRequestContentLength(t *testing.T) {
	cases := []struct {
		raw  string
		want int
	}{
		{"42", 42},
		{" 10 ", 10},
		{"", -1},
		{"abc", -1},
		{"-5", -1},
	}
	for _, tc := range cases {
		env := testEnv()
		env.ContentLength = tc.raw
		if got := NewRequest(env).ContentLength(); got != tc.want {
			t.Errorf("ContentLength(%q) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestRequestArgsMemoized(t *testing.T) {
	env := testEnv()
	env.Query = "a=1&a=2&b=%20x"
	r := NewRequest(env)

	args := r.Args()
	if got := args["a"]; len(got) != 2 || got[0] != "1" || got[1] != "2" {
		t.Errorf("args[a] = %v", got)
	}
	if got := args["b"]; len(got) != 1 || got[0] != " x" {
		t.Errorf("args[b] = %v", got)
	}

	env.Query = "changed=1"
	again := r.Args()
	if _, ok := again["changed"]; ok {
		t.Error("Args must be computed once, not reparsed")
	}
	if len(again) != 2 {
		t.Errorf("cached args lost entries: %v", again)
	}
}

func TestRequestHeadersRebuilt(t *testing.T) {
	env := testEnv()
	env.ContentType = "text/plain"
	env.ContentLength = "3"
	env.Headers["HTTP_USER_AGENT"] = "curl/8"
	env.Headers["HTTP_HOST"] = "h"
	env.Headers["HTTP_X_FORWARDED_FOR"] = "1.1.1.1"

	h := NewRequest(env).Headers()
	want := [][2]string{
		{"Content-Type", "text/plain"},
		{"Content-Length", "3"},
		{"Host", "h"},
		{"User-Agent", "curl/8"},
		{"X-Forwarded-For", "1.1.1.1"},
	}
	all := h.All()
	if len(all) != len(want) {
		t.Fatalf("rebuilt %d headers, want %d: %v", len(all), len(want), all)
	}
	for i, pair := range want {
		if all[i] != pair {
			t.Errorf("header %d = %v, want %v", i, all[i], pair)
		}
	}
}

func TestRequestData(t *testing.T) {
	env := testEnv()
	env.ContentLength = "5"
	env.Input = bytes.NewReader([]byte("helloEXTRA"))
	r := NewRequest(env)

	if got := r.Data(); string(got) != "hello" {
		t.Errorf("Data = %q", got)
	}
	if got := r.Data(); string(got) != "hello" {
		t.Errorf("second Data = %q, must be memoized", got)
	}

	env = testEnv()
	env.Input = bytes.NewReader([]byte("everything"))
	if got := NewRequest(env).Data(); string(got) != "everything" {
		t.Errorf("Data without declared length = %q", got)
	}

	env = testEnv()
	env.ContentLength = "0"
	env.Input = bytes.NewReader([]byte("ignored"))
	if got := NewRequest(env).Data(); len(got) != 0 {
		t.Errorf("Data with zero length = %q", got)
	}
}

func TestRequestIsJSON(t *testing.T) {
	cases := []struct {
		ct   string
		want bool
	}{
		{"application/json", true},
		{"APPLICATION/JSON", true},
		{"application/json; charset=utf-8", true},
		{"application/vnd.api+json", true},
		{"text/plain", false},
		{"", false},
	}
	for _, tc := range cases {
		env := testEnv()
		env.ContentType = tc.ct
		if got := NewRequest(env).IsJSON(); got != tc.want {
			t.Errorf("IsJSON(%q) = %v, want %v", tc.ct, got, tc.want)
		}
	}
}

func TestRequestJSON(t *testing.T) {
	env := testEnv()
	env.ContentType = "application/json"
	env.ContentLength = "24"
	env.Input = bytes.NewReader([]byte(`{"n": 3, "tags": ["go"]}`))

	v, err := NewRequest(env).JSON()
	if err != nil {
		t.Fatalf("JSON error: %v", err)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("JSON = %T", v)
	}
	if obj["n"].(float64) != 3 {
		t.Errorf("n = %v", obj["n"])
	}
}

func TestRequestJSONEmptyContentType(t *testing.T) {
	env := testEnv()
	env.Input = bytes.NewReader([]byte(`[1,2]`))

	v, err := NewRequest(env).JSON()
	if err != nil || v == nil {
		t.Fatalf("JSON with empty content type = %v, %v; must decode", v, err)
	}
}

func TestRequestJSONRefused(t *testing.T) {
	env := testEnv()
	env.ContentType = "text/plain"
	env.Input = bytes.NewReader([]byte(`{"a":1}`))
	if v, err := NewRequest(env).JSON(); v != nil || err != nil {
		t.Errorf("non-JSON content type = %v, %v; want nil, nil", v, err)
	}

	env = testEnv()
	env.ContentType = "application/json"
	if v, err := NewRequest(env).JSON(); v != nil || err != nil {
		t.Errorf("empty body = %v, %v; want nil, nil", v, err)
	}
}

func TestRequestJSONErrorCached(t *testing.T) {
	env := testEnv()
	env.ContentType = "application/json"
	env.ContentLength = "4"
	env.Input = bytes.NewReader([]byte(`{bad`))
	r := NewRequest(env)

	v1, err1 := r.JSON()
	if err1 == nil || v1 != nil {
		t.Fatalf("malformed body = %v, %v; want error", v1, err1)
	}
	_, err2 := r.JSON()
	if err2 != err1 {
		t.Error("decode failure must be cached")
	}
}

func TestRequestForm(t *testing.T) {
	env := testEnv()
	env.ContentType = "APPLICATION/X-WWW-FORM-URLENCODED; charset=utf-8"
	env.ContentLength = "16"
	env.Input = bytes.NewReader([]byte("name=jo+an&x=%26"))

	form := NewRequest(env).Form()
	if got := form.Get("name"); got != "jo an" {
		t.Errorf("form[name] = %q", got)
	}
	if got := form.Get("x"); got != "&" {
		t.Errorf("form[x] = %q", got)
	}

	env = testEnv()
	env.ContentType = "text/plain"
	env.Input = bytes.NewReader([]byte("name=jo"))
	if form := NewRequest(env).Form(); len(form) != 0 {
		t.Errorf("form for text/plain = %v, want empty", form)
	}
}

func TestRequestCookies(t *testing.T) {
	env := testEnv()
	env.Headers["HTTP_COOKIE"] = `session=abc123; theme="dark mode"`

	c := NewRequest(env).Cookies()
	if c["session"] != "abc123" || c["theme"] != "dark mode" {
		t.Errorf("Cookies = %v", c)
	}

	if c := NewRequest(testEnv()).Cookies(); len(c) != 0 {
		t.Errorf("Cookies without header = %v", c)
	}
}

func TestRequestFiles(t *testing.T) {
	body := "--BND\r\n" +
		"Content-Disposition: form-data; name=\"avatar\"; filename=\"me.png\"\r\n" +
		"Content-Type: image/png\r\n" +
		"\r\n" +
		"PNGDATA\r\n" +
		"--BND--\r\n"

	for _, ct := range []string{
		"multipart/form-data; boundary=BND",
		`multipart/form-data; boundary="BND"`,
	} {
		env := testEnv()
		env.ContentType = ct
		env.Input = bytes.NewReader([]byte(body))

		files := NewRequest(env).Files()
		f := files["avatar"]
		if f == nil {
			t.Fatalf("ct %q: no avatar file: %v", ct, files)
		}
		if f.Filename != "me.png" || f.ContentType != "image/png" || string(f.Data) != "PNGDATA" {
			t.Errorf("ct %q: file = %+v", ct, f)
		}
	}

	env := testEnv()
	env.ContentType = "multipart/form-data"
	env.Input = bytes.NewReader([]byte(body))
	if files := NewRequest(env).Files(); len(files) != 0 {
		t.Errorf("missing boundary must yield no files, got %v", files)
	}

	env = testEnv()
	env.ContentType = "text/plain"
	env.Input = bytes.NewReader([]byte(body))
	if files := NewRequest(env).Files(); len(files) != 0 {
		t.Errorf("non-multipart content type must yield no files, got %v", files)
	}
}

func TestRequestValues(t *testing.T) {
	env := testEnv()
	env.Query = "a=1&b=2"
	env.ContentType = "application/x-www-form-urlencoded"
	env.ContentLength = "7"
	env.Input = bytes.NewReader([]byte("b=9&c=3"))

	v := NewRequest(env).Values()
	if v.Get("a") != "1" || v.Get("b") != "9" || v.Get("c") != "3" {
		t.Errorf("Values = %v, form must win on overlap", v)
	}
}

func TestRequestAccessRoute(t *testing.T) {
	env := testEnv()
	env.Headers["HTTP_X_FORWARDED_FOR"] = " 1.1.1.1, 2.2.2.2,, 3.3.3.3 "
	env.RemoteAddr = "9.9.9.9"

	got := NewRequest(env).AccessRoute()
	want := []string{"1.1.1.1", "2.2.2.2", "3.3.3.3", "9.9.9.9"}
	if len(got) != len(want) {
		t.Fatalf("AccessRoute = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("hop %d = %q, want %q", i, got[i], want[i])
		}
	}

	env = testEnv()
	env.RemoteAddr = ""
	if got := NewRequest(env).AccessRoute(); len(got) != 0 {
		t.Errorf("AccessRoute without peer = %v", got)
	}
}

func TestRequestMisc(t *testing.T) {
	env := testEnv()
	env.Headers["HTTP_REFERER"] = "http://from.example/"
	env.Headers["HTTP_USER_AGENT"] = "curl/8"
	r := NewRequest(env)

	if r.Method() != "GET" || r.Path() != "/items/7" || r.Query() != "a=1&b=2" {
		t.Error("scalar accessors")
	}
	if r.Referrer() != "http://from.example/" || r.UserAgent() != "curl/8" {
		t.Error("header accessors")
	}
	if r.RemoteAddr() != "10.0.0.5" {
		t.Errorf("RemoteAddr = %q", r.RemoteAddr())
	}
	if r.Environ() != env {
		t.Error("Environ must return the backing environ")
	}
}
