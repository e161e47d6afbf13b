package htcore

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/open-control-systems/ping-monitor/components/core"
)

// Server is a wrapper for http.Server.
type Server struct {
	server http.Server
	ln     net.Listener
	doneCh chan struct{}
	url    string

	shutdownTimeout time.Duration
}

// ServerParams contains server parameters.
type ServerParams struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// ShutdownTimeout - how long Close waits for in-flight requests.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// NewServer creates a new server.
//
// Notes:
//   - The server is not started.
//   - If host is empty, "0.0.0.0" is used.
//   - If port is zero, a random free port is chosen.
func NewServer(handler http.Handler, params ServerParams) (*Server, error) {
	if params.Host == "" {
		params.Host = "0.0.0.0"
	}

	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(params.Host, strconv.Itoa(params.Port)))
	if err != nil {
		return nil, err
	}
	ln, err := net.ListenTCP(addr.Network(), addr)
	if err != nil {
		return nil, err
	}

	server := &Server{
		server: http.Server{
			Addr:              ln.Addr().String(),
			Handler:           handler,
			ReadHeaderTimeout: time.Second * 10,
		},
		ln:              ln,
		doneCh:          make(chan struct{}),
		url:             "http://" + ln.Addr().String(),
		shutdownTimeout: time.Second * 5,
	}

	server.server.RegisterOnShutdown(func() {
		core.LogInf.Infof("http-server: shutting down: url=%s", server.url)
	})

	if params.ShutdownTimeout > 0 {
		server.shutdownTimeout = params.ShutdownTimeout
	}

	return server, nil
}

// Start runs the server.
func (s *Server) Start() {
	go s.run()
}

// Close gracefully stops the server and waits until it finishes.
//
// Remarks:
//   - Connections still active after the shutdown timeout are closed forcibly.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(ctx)
	if err != nil {
		err = s.server.Close()
	}

	_ = s.ln.Close()

	<-s.doneCh

	return err
}

// URL returns base URL of form http://ipaddr:port with no trailing slash.
func (s *Server) URL() string {
	return s.url
}

func (s *Server) run() {
	defer close(s.doneCh)

	if err := s.server.Serve(s.ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		core.LogErr.Errorf("http-server: failed to serve connection: %v", err)
	}
}
