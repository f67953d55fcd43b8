package server

import (
	"bufio"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/airsql/airsql/internal/registry"
	"github.com/airsql/airsql/pkg"
)

// QueryMarker in a request path flags an encoded query; everything after
// it is URL-decoded and handed to the executor.
const QueryMarker = "/sql-air?query="

// Server accepts connections and runs one worker goroutine per admitted
// connection. Admission is gated: the accept loop predicate-waits on a
// condition variable until the number of in-flight workers drops below
// MaxConns. Each worker's deferred release decrements the counter and
// signals one waiter no matter how the request ended, so the gate always
// reopens.
type Server struct {
	Registry *registry.Registry
	MaxConns int
	Dir      string // root for static file requests

	locker   sync.Mutex
	admit    *sync.Cond
	inflight int
}

func New(reg *registry.Registry, max_conns int, dir string) *Server {
	s := &Server{Registry: reg, MaxConns: max_conns, Dir: dir}
	s.admit = sync.NewCond(&s.locker)
	return s
}

// Serve runs the admission loop until Accept fails.
func (s *Server) Serve(ln net.Listener) error {
	for {
		s.acquire()
		conn, err := ln.Accept()
		if err != nil {
			s.release()
			return err
		}
		go s.handle(conn)
	}
}

func (s *Server) acquire() {
	s.locker.Lock()
	for s.inflight >= s.MaxConns {
		s.admit.Wait()
	}
	s.inflight++
	s.locker.Unlock()
}

func (s *Server) release() {
	s.locker.Lock()
	s.inflight--
	s.admit.Signal()
	s.locker.Unlock()
}

// Inflight reports the number of held admission slots: running workers
// plus the accept loop's pending reservation, if any.
func (s *Server) Inflight() int {
	s.locker.Lock()
	defer s.locker.Unlock()
	return s.inflight
}

// handle is the per-connection worker: read the request line, run the
// query or serve the file, respond, then free the admission slot.
func (s *Server) handle(conn net.Conn) {
	defer s.release()
	defer conn.Close()

	br := bufio.NewReader(conn)
	req_line, err := br.ReadString('\n')
	if err != nil {
		pkg.ErrorLog("reading request line", err)
		return
	}
	fields := strings.Fields(req_line)
	if len(fields) < 2 {
		pkg.ErrorLog("malformed request line", strings.TrimSpace(req_line))
		return
	}
	path := fields[1]

	if i := strings.Index(path, QueryMarker); i >= 0 {
		// the rest of the request is headers we don't care about
		discardHeaders(br)
		body := ""
		text, err := url.QueryUnescape(path[i+len(QueryMarker):])
		if err != nil {
			body = "Error: " + err.Error() + "\n"
		} else {
			body = s.Run(text)
		}
		writeResponse(conn, 200, "OK", body)
		return
	}

	if path != "" && path != "/" {
		s.serveFile(conn, strings.TrimPrefix(path, "/"))
	}
}

// Run executes one query string, rendering errors as the single
// "Error: ..." line the protocol promises.
func (s *Server) Run(text string) string {
	out, err := Execute(s.Registry, text)
	if err != nil {
		return "Error: " + err.Error() + "\n"
	}
	return out
}

func discardHeaders(br *bufio.Reader) {
	for {
		hdr, err := br.ReadString('\n')
		if err != nil || hdr == "\r\n" || hdr == "\n" {
			return
		}
	}
}

func (s *Server) serveFile(conn net.Conn, path string) {
	if decoded, err := url.QueryUnescape(path); err == nil {
		path = decoded
	}
	// Clean against "/" keeps the request under Dir
	data, err := os.ReadFile(filepath.Join(s.Dir, filepath.Clean("/"+path)))
	if err != nil {
		writeResponse(conn, 404, "Not Found", "Error: file not found: "+path+"\n")
		return
	}
	writeResponse(conn, 200, "OK", string(data))
}

func writeResponse(conn net.Conn, status int, reason, body string) {
	fmt.Fprintf(conn,
		"HTTP/1.1 %d %s\r\nServer: airsql\r\nContent-Length: %d\r\nConnection: Close\r\nContent-Type: text/plain\r\n\r\n%s",
		status, reason, len(body), body)
}
