package piphttp

import (
	"net/http"

	"github.com/open-control-systems/ping-monitor/components/core"
	"github.com/open-control-systems/ping-monitor/components/http/htcore"
)

// ServerPipeline owns the HTTP server of the operator API.
type ServerPipeline struct {
	server *htcore.Server
}

// NewServerPipeline initializes all components associated with the HTTP server.
//
// Parameters:
//   - closer - to register handlers for the underlying resource deallocation.
//   - handler - to serve HTTP requests.
//   - serverParams - various HTTP server configuration parameters.
func NewServerPipeline(
	closer *core.FanoutCloser,
	handler http.Handler,
	serverParams htcore.ServerParams,
) (*ServerPipeline, error) {
	server, err := htcore.NewServer(handler, serverParams)
	if err != nil {
		return nil, err
	}
	closer.Add("http-server", server)

	return &ServerPipeline{
		server: server,
	}, nil
}

// URL returns the base URL of the server.
func (p *ServerPipeline) URL() string {
	return p.server.URL()
}

// Start starts serving HTTP requests.
func (p *ServerPipeline) Start() {
	core.LogInf.Infof("http-server-pipeline: starting HTTP server: url=%s", p.server.URL())

	p.server.Start()
}
