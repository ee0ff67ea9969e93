package mcp

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/filings-qa/internal/logger"
)

// shutdownTimeout bounds how long open HTTP sessions may take to finish.
const shutdownTimeout = 5 * time.Second

const instructions = `Answers questions about company annual reports and earnings-call
transcripts listed in a manifest. Use ask for a cited answer, search to
read the matching chunks yourself, and list_documents to find doc_ids
for filtering. Citations name the page or section a claim came from.`

// Server exposes the answer, registry and pipeline ports as MCP tools,
// resources and prompts.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer builds a server over ports. version is reported to clients
// during initialisation.
func NewServer(ports *Ports, version string) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, err
	}

	s := &Server{ports: ports}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "filings",
		Title:   "Company filings Q&A",
		Version: cmp.Or(version, "dev"),
	}, &mcp.ServerOptions{Instructions: instructions})

	s.registerTools()
	s.registerResources()
	s.registerPrompts()
	return s, nil
}

// Run serves one client over stdin and stdout until ctx is cancelled or
// the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	logger.Debug("mcp: serving on stdio")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Handler returns the streamable HTTP endpoint for the server.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, nil)
}

// Serve accepts HTTP clients on ln until ctx is cancelled, then drains
// open requests for up to shutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mcp: serve %s: %w", ln.Addr(), err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
