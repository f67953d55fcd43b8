package registry

import (
	"bufio"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/airsql/airsql/internal/query"
	"github.com/airsql/airsql/internal/store"
)

// loadRemote fetches a CSV dataset with a minimal GET exchange: request
// line plus Host/Connection headers out, status line and headers back in
// (headers are discarded), then the raw payload.
func loadRemote(raw_url string) (*store.Table, error) {
	u, err := url.Parse(raw_url)
	if err != nil {
		return nil, query.LoadFailed(err, raw_url)
	}
	if u.Scheme != "http" {
		return nil, query.LoadFailedMsg("unsupported scheme %q in %s", u.Scheme, raw_url)
	}
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "80"
	}
	path := u.RequestURI()

	conn, err := net.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		return nil, query.LoadFailedMsg("unable to connect to %s at port %s", host, port)
	}
	defer conn.Close()

	fmt.Fprintf(conn, "GET %s HTTP/1.1\r\nHost: %s\r\nConnection: Close\r\n\r\n", path, host)

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return nil, query.LoadFailed(err, raw_url)
	}
	if !strings.Contains(status, "200") {
		return nil, query.LoadFailedMsg("error (%s) getting %s from %s at port %s",
			strings.TrimSpace(status), path, host, port)
	}
	for {
		hdr, err := br.ReadString('\n')
		if err != nil {
			return nil, query.LoadFailed(err, raw_url)
		}
		if hdr == "\r\n" || hdr == "\n" {
			break
		}
	}

	t, err := store.Load(br)
	if err != nil {
		return nil, query.LoadFailed(err, raw_url)
	}
	return t, nil
}
