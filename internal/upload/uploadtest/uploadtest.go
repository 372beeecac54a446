// Package uploadtest builds multipart requests for tests.
package uploadtest

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
)

// File is a single file part.
type File struct {
	Field       string
	Name        string
	ContentType string
	Data        []byte
}

// PNG returns a file part in field named name with an image/png content type.
func PNG(field, name string) File {
	return File{Field: field, Name: name, ContentType: "image/png", Data: []byte("\x89PNG\r\n\x1a\n" + name)}
}

// JPEG returns a file part in field named name with an image/jpeg content type.
func JPEG(field, name string) File {
	return File{Field: field, Name: name, ContentType: "image/jpeg", Data: []byte("\xff\xd8\xff" + name)}
}

// Images returns n png parts in field.
func Images(field string, n int) []File {
	files := make([]File, n)
	for i := range n {
		files[i] = PNG(field, fmt.Sprintf("photo-%02d.png", i))
	}
	return files
}

// Request builds a multipart request with the given text fields and files.
// Text fields are written first, in order.
func Request(t testing.TB, method, target string, fields Fields, files ...File) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			t.Fatalf("write field %s: %v", kv[0], err)
		}
	}
	for _, f := range files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Name))
		if f.ContentType != "" {
			h.Set("Content-Type", f.ContentType)
		}
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatalf("create part %s: %v", f.Name, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			t.Fatalf("write part %s: %v", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// Fields is an ordered list of text form fields.
type Fields [][2]string

// Set appends or replaces key.
func (f Fields) Set(key, value string) Fields {
	for i := range f {
		if strings.EqualFold(f[i][0], key) {
			f[i][1] = value
			return f
		}
	}
	return append(f, [2]string{key, value})
}
