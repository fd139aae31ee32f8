package mediaserver

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func testServer(t *testing.T, content []byte) *Server {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, "clip.mp3"), content, 0644)
	assert.NoError(t, err)
	self := &Server{dir: dir, chunk: 8, ip: "127.0.0.1", port: 10001}
	self.router = mux.NewRouter()
	self.router.HandleFunc("/{file}", self.serveFile).Methods("GET")
	return self
}

func get(s *Server, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func TestServeFull(t *testing.T) {
	s := testServer(t, []byte("0123456789abcdef0123"))
	rr := get(s, "/clip.mp3", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "audio/mpeg", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-store, no-cache, must-revalidate", rr.Header().Get("Cache-Control"))
	assert.Equal(t, "0123456789abcdef0123", rr.Body.String())
}

func TestServeOpenRangeChunked(t *testing.T) {
	s := testServer(t, []byte("0123456789abcdef0123"))
	rr := get(s, "/clip.mp3", map[string]string{"Range": "bytes=0-"})
	assert.Equal(t, http.StatusPartialContent, rr.Code)
	assert.Equal(t, "bytes 0-7/20", rr.Header().Get("Content-Range"))
	assert.Equal(t, "01234567", rr.Body.String())

	rr = get(s, "/clip.mp3", map[string]string{"Range": "bytes=16-"})
	assert.Equal(t, http.StatusPartialContent, rr.Code)
	assert.Equal(t, "bytes 16-19/20", rr.Header().Get("Content-Range"))
	assert.Equal(t, "0123", rr.Body.String())
}

func TestServeExplicitRange(t *testing.T) {
	s := testServer(t, []byte("0123456789abcdef0123"))
	rr := get(s, "/clip.mp3", map[string]string{"Range": "bytes=4-9"})
	assert.Equal(t, http.StatusPartialContent, rr.Code)
	assert.Equal(t, "bytes 4-9/20", rr.Header().Get("Content-Range"))
	assert.Equal(t, "456789", rr.Body.String())
}

func TestServeMissing(t *testing.T) {
	s := testServer(t, []byte("x"))
	rr := get(s, "/nothere.mp3", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	s := testServer(t, []byte("x"))
	req := httptest.NewRequest("POST", "/clip.mp3", nil)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestParseRange(t *testing.T) {
	start, end, partial, ok := parseRange("bytes=0-", 100, 16)
	assert.True(t, ok)
	assert.True(t, partial)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(15), end)

	start, end, partial, ok = parseRange("bytes=90-200", 100, 16)
	assert.True(t, ok)
	assert.True(t, partial)
	assert.Equal(t, int64(90), start)
	assert.Equal(t, int64(99), end)

	_, _, partial, ok = parseRange("", 100, 16)
	assert.True(t, ok)
	assert.False(t, partial)
}

func TestParseRangeSuffix(t *testing.T) {
	start, end, partial, ok := parseRange("bytes=-30", 100, 16)
	assert.True(t, ok)
	assert.True(t, partial)
	assert.Equal(t, int64(70), start)
	assert.Equal(t, int64(99), end)

	// a suffix longer than the file is the whole file
	start, end, partial, ok = parseRange("bytes=-200", 100, 16)
	assert.True(t, ok)
	assert.True(t, partial)
	assert.Equal(t, int64(0), start)
	assert.Equal(t, int64(99), end)
}

func TestParseRangeUnsatisfiable(t *testing.T) {
	_, _, _, ok := parseRange("bytes=100-", 100, 16)
	assert.False(t, ok)

	_, _, _, ok = parseRange("bytes=-0", 100, 16)
	assert.False(t, ok)
}

func TestServeSuffixRange(t *testing.T) {
	s := testServer(t, []byte("0123456789abcdef0123"))
	rr := get(s, "/clip.mp3", map[string]string{"Range": "bytes=-4"})
	assert.Equal(t, http.StatusPartialContent, rr.Code)
	assert.Equal(t, "bytes 16-19/20", rr.Header().Get("Content-Range"))
	assert.Equal(t, "0123", rr.Body.String())
}

func TestServeUnsatisfiableRange(t *testing.T) {
	s := testServer(t, []byte("0123456789abcdef0123"))
	rr := get(s, "/clip.mp3", map[string]string{"Range": "bytes=20-"})
	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rr.Code)
	assert.Equal(t, "bytes */20", rr.Header().Get("Content-Range"))
}

func TestURL(t *testing.T) {
	s := &Server{ip: "192.168.1.10", port: 12345}
	url := s.URL("clip.mp3")
	assert.Contains(t, url, "http://192.168.1.10:12345/clip.mp3?t=")
}
