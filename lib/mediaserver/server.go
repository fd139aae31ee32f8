// Package mediaserver serves generated audio clips to cast devices.
//
// The server binds an ephemeral port picked at random from a range, and
// serves files from a single directory. Cast devices fetch clips with
// Range requests; requests without an end position are answered in
// fixed-size pieces so a dropped connection loses at most one chunk.
package mediaserver

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

const DefaultChunk = 16 * 1024

type Server struct {
	dir      string
	chunk    int
	ip       string
	port     int
	listener net.Listener
	server   *http.Server
	router   *mux.Router
}

// New starts a file server for dir on a random port in [minPort, maxPort].
func New(dir string, chunk, minPort, maxPort int) (*Server, error) {
	ip, err := ExternalIP()
	if err != nil {
		return nil, errors.Wrap(err, "determining external ip")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "creating media directory")
	}
	if chunk <= 0 {
		chunk = DefaultChunk
	}

	listener, port, err := listen(minPort, maxPort)
	if err != nil {
		return nil, err
	}

	self := &Server{dir: dir, chunk: chunk, ip: ip, port: port, listener: listener}
	self.router = mux.NewRouter()
	self.router.HandleFunc("/{file}", self.serveFile).Methods("GET")
	self.server = &http.Server{Handler: self.router}
	go self.server.Serve(listener)
	return self, nil
}

func listen(minPort, maxPort int) (net.Listener, int, error) {
	for _, i := range rand.Perm(maxPort - minPort + 1) {
		port := minPort + i
		listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
		if err == nil {
			return listener, port, nil
		}
	}
	return nil, 0, fmt.Errorf("no free port in %d-%d", minPort, maxPort)
}

func (self *Server) Port() int {
	return self.port
}

// URL for a served file, with a cache buster so devices refetch.
func (self *Server) URL(file string) string {
	return fmt.Sprintf("http://%s:%d/%s?t=%d", self.ip, self.port, file, time.Now().UnixMilli())
}

func (self *Server) Close() error {
	return self.server.Close()
}

func (self *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["file"]
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	path := filepath.Join(self.dir, name)
	f, err := os.Open(path)
	if err != nil {
		log.Printf("Request for missing file: %s", name)
		http.Error(w, "File Not Found", http.StatusNotFound)
		return
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	size := fi.Size()

	h := w.Header()
	h.Set("Content-Type", "audio/mpeg")
	h.Set("Accept-Ranges", "bytes")
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")

	start, end, partial, ok := parseRange(r.Header.Get("Range"), size, int64(self.chunk))
	if !ok {
		h.Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "Requested Range Not Satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	}
	if !partial {
		h.Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, f)
		return
	}

	length := end - start + 1
	h.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, size))
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	w.WriteHeader(http.StatusPartialContent)
	f.Seek(start, io.SeekStart)
	io.CopyN(w, f, length)
}

// parseRange interprets a Range header. An open-ended range is capped to
// chunk bytes, a suffix range means the final n bytes. ok is false for a
// range beyond the end of the file (416).
func parseRange(header string, size, chunk int64) (start, end int64, partial, ok bool) {
	if !strings.HasPrefix(header, "bytes=") {
		return 0, 0, false, true
	}
	spec := strings.SplitN(header[len("bytes="):], "-", 2)
	if len(spec) != 2 {
		return 0, 0, false, true
	}
	if spec[0] == "" {
		n, err := strconv.ParseInt(spec[1], 10, 64)
		if err != nil {
			return 0, 0, false, true
		}
		if n <= 0 {
			return 0, 0, false, false
		}
		if n > size {
			n = size
		}
		return size - n, size - 1, true, true
	}
	start, _ = strconv.ParseInt(spec[0], 10, 64)
	if start >= size {
		return 0, 0, false, false
	}
	if spec[1] != "" {
		end, _ = strconv.ParseInt(spec[1], 10, 64)
	} else {
		end = start + chunk - 1
	}
	if end > size-1 {
		end = size - 1
	}
	return start, end, true, true
}

// ExternalIP finds the address the cast devices can reach us on.
func ExternalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.LocalAddr().(*net.UDPAddr).IP.String(), nil
}
