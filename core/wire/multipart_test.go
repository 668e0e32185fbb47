package wire

import (
	"bytes"
	"strings"
	"testing"
)

const testBoundary = "----WebKitFormBoundary7MA4YWxkTrZu0gW"

func buildMultipart(parts ...string) []byte {
	var b bytes.Buffer
	for _, p := range parts {
		b.WriteString("--" + testBoundary + "\r\n")
		b.WriteString(p)
		b.WriteString("\r\n")
	}
	b.WriteString("--" + testBoundary + "--\r\n")
	return b.Bytes()
}

func TestParseMultipartFieldAndFile(t *testing.T) {
	body := buildMultipart(
		"Content-Disposition: form-data; name=\"title\"\r\n\r\nhello world",
		"Content-Disposition: form-data; name=\"upload\"; filename=\"a.bin\"\r\n"+
			"Content-Type: application/x-custom\r\n\r\n\x00\x01\x02",
	)

	md := ParseMultipart(body, testBoundary)

	if got := md.Fields["title"]; got != "hello world" {
		t.Errorf("field title = %q, want %q", got, "hello world")
	}
	f := md.Files["upload"]
	if f == nil {
		t.Fatal("file upload missing")
	}
	if f.Filename != "a.bin" {
		t.Errorf("filename = %q, want a.bin", f.Filename)
	}
	if f.ContentType != "application/x-custom" {
		t.Errorf("content type = %q", f.ContentType)
	}
	if !bytes.Equal(f.Data, []byte{0, 1, 2}) {
		t.Errorf("data = %v", f.Data)
	}
}

func TestParseMultipartDefaultContentType(t *testing.T) {
	body := buildMultipart(
		"Content-Disposition: form-data; name=\"f\"; filename=\"x\"\r\n\r\ndata",
	)

	md := ParseMultipart(body, testBoundary)
	f := md.Files["f"]
	if f == nil {
		t.Fatal("file missing")
	}
	if f.ContentType != "application/octet-stream" {
		t.Errorf("content type = %q, want application/octet-stream", f.ContentType)
	}
}

func TestParseMultipartSkipsNamelessParts(t *testing.T) {
	body := buildMultipart(
		"Content-Disposition: form-data\r\n\r\nno name here",
		"X-Other: 1\r\n\r\nno disposition",
		"Content-Disposition: form-data; name=\"ok\"\r\n\r\nkept",
	)

	md := ParseMultipart(body, testBoundary)
	if len(md.Fields) != 1 || md.Fields["ok"] != "kept" {
		t.Errorf("fields = %v, want only ok=kept", md.Fields)
	}
	if len(md.Files) != 0 {
		t.Errorf("files = %v, want none", md.Files)
	}
}

func TestParseMultipartStopsAtTerminalBoundary(t *testing.T) {
	var b bytes.Buffer
	b.WriteString("--" + testBoundary + "\r\n")
	b.WriteString("Content-Disposition: form-data; name=\"a\"\r\n\r\n1\r\n")
	b.WriteString("--" + testBoundary + "--\r\n")
	b.WriteString("--" + testBoundary + "\r\n")
	b.WriteString("Content-Disposition: form-data; name=\"after\"\r\n\r\n2\r\n")

	md := ParseMultipart(b.Bytes(), testBoundary)
	if md.Fields["a"] != "1" {
		t.Errorf("field a = %q", md.Fields["a"])
	}
	if _, ok := md.Fields["after"]; ok {
		t.Error("part after terminal boundary was parsed")
	}
}

func TestParseMultipartNoBoundary(t *testing.T) {
	md := ParseMultipart([]byte("just some bytes"), testBoundary)
	if len(md.Fields) != 0 || len(md.Files) != 0 {
		t.Errorf("expected empty result, got %v / %v", md.Fields, md.Files)
	}
}

func TestParseMultipartDuplicateNameOverwrites(t *testing.T) {
	body := buildMultipart(
		"Content-Disposition: form-data; name=\"k\"\r\n\r\nfirst",
		"Content-Disposition: form-data; name=\"k\"\r\n\r\nsecond",
	)

	md := ParseMultipart(body, testBoundary)
	if md.Fields["k"] != "second" {
		t.Errorf("field k = %q, want second", md.Fields["k"])
	}
}

func TestParseMultipartDataIsCopied(t *testing.T) {
	body := buildMultipart(
		"Content-Disposition: form-data; name=\"f\"; filename=\"x\"\r\n\r\nabcd",
	)

	md := ParseMultipart(body, testBoundary)
	f := md.Files["f"]
	if f == nil {
		t.Fatal("file missing")
	}
	idx := bytes.Index(body, []byte("abcd"))
	body[idx] = 'Z'
	if string(f.Data) != "abcd" {
		t.Errorf("file data aliases caller buffer: %q", f.Data)
	}
}

func TestHeaderParamUnquoted(t *testing.T) {
	v, ok := headerParam([]byte("form-data; name=bare; x=1"), "name")
	if !ok || v != "bare" {
		t.Errorf("headerParam = %q, %v", v, ok)
	}

	if _, ok := headerParam([]byte(`form-data; name="unclosed`), "name"); ok {
		t.Error("unclosed quote should report absent")
	}
}

func BenchmarkParseMultipart(b *testing.B) {
	body := buildMultipart(
		"Content-Disposition: form-data; name=\"title\"\r\n\r\n"+strings.Repeat("x", 64),
		"Content-Disposition: form-data; name=\"upload\"; filename=\"a.bin\"\r\n"+
			"Content-Type: application/octet-stream\r\n\r\n"+strings.Repeat("y", 1024),
	)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ParseMultipart(body, testBoundary)
	}
}
