// Package testutil builds multipart upload bodies and in-memory media stores
// for tests.
package testutil

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// FilePart is one file in a multipart body. Size bytes of filler are written.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Size        int
}

// AudioPart is an audio/mpeg file part.
func AudioPart(field, filename string, size int) FilePart {
	return FilePart{Field: field, Filename: filename, ContentType: "audio/mpeg", Size: size}
}

// MultipartBody encodes fields and files. Fields are written in key order.
func MultipartBody(tb testing.TB, fields map[string]string, parts ...FilePart) (*bytes.Buffer, string) {
	tb.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		require.NoError(tb, mw.WriteField(k, fields[k]))
	}

	for _, p := range parts {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+p.Field+`"; filename="`+p.Filename+`"`)
		if p.ContentType != "" {
			h.Set("Content-Type", p.ContentType)
		}
		w, err := mw.CreatePart(h)
		require.NoError(tb, err)
		_, err = w.Write(bytes.Repeat([]byte{0xff}, p.Size))
		require.NoError(tb, err)
	}
	require.NoError(tb, mw.Close())
	return &buf, mw.FormDataContentType()
}

// MultipartRequest returns a POST to target carrying the encoded body.
func MultipartRequest(tb testing.TB, target string, fields map[string]string, parts ...FilePart) *http.Request {
	tb.Helper()
	body, contentType := MultipartBody(tb, fields, parts...)
	req := httptest.NewRequest(http.MethodPost, target, body)
	req.Header.Set("Content-Type", contentType)
	return req
}

// FileHeader parses a single file part back into a *multipart.FileHeader.
func FileHeader(tb testing.TB, p FilePart) *multipart.FileHeader {
	tb.Helper()
	req := MultipartRequest(tb, "/", nil, p)
	require.NoError(tb, req.ParseMultipartForm(int64(p.Size)+1<<20))
	tb.Cleanup(func() { _ = req.MultipartForm.RemoveAll() })
	return req.MultipartForm.File[p.Field][0]
}

// MediaStore records saved and removed media without touching disk.
type MediaStore struct {
	mu      sync.Mutex
	saved   []string
	removed []string
}

// Save returns /media/<filename>.
func (m *MediaStore) Save(fh *multipart.FileHeader) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	url := "/media/" + fh.Filename
	m.saved = append(m.saved, url)
	return url, nil
}

// Remove records url.
func (m *MediaStore) Remove(url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removed = append(m.removed, url)
	return nil
}

// Saved lists the URLs handed out so far.
func (m *MediaStore) Saved() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.saved...)
}

// Removed lists the URLs removed so far.
func (m *MediaStore) Removed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}
