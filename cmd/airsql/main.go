package main

import (
	"fmt"
	"net"

	"github.com/spf13/pflag"

	"github.com/airsql/airsql/internal/registry"
	"github.com/airsql/airsql/internal/server"
	"github.com/airsql/airsql/pkg"
)

func main() {
	port := pflag.Int("port", 8080, "listening port")
	watch_port := pflag.Int("watch-port", 0, "websocket watch port (0 disables)")
	max_conns := pflag.Int("max-conns", 20, "max concurrent in-flight requests")
	dir := pflag.String("dir", ".", "root directory for static file requests")
	debug := pflag.Bool("debug", false, "show debug logs")
	quiet := pflag.Bool("quiet", false, "disable all logs")
	pflag.Parse()

	switch {
	case *quiet:
		pkg.SetLogLevel(pkg.LogLevelNone)
	case *debug:
		pkg.SetLogLevel(pkg.LogLevelDebug)
	default:
		pkg.SetLogLevel(pkg.LogLevelErrOnly)
	}

	reg := registry.New()
	srv := server.New(reg, *max_conns, *dir)

	if *watch_port > 0 {
		go func() {
			if err := srv.ServeWatch(*watch_port); err != nil {
				pkg.FatalLog("watch listener:", err)
			}
		}()
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		pkg.FatalLog(err)
	}
	pkg.InfoLog("listening on port", *port)
	if err := srv.Serve(ln); err != nil {
		pkg.FatalLog(err)
	}
}
