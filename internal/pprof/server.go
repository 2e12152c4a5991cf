// Package pprof serves runtime profiles on localhost while a command runs.
package pprof

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/pprof"

	"github.com/samsaffron/term-chat/internal/logging"
)

// Server wraps the net/http/pprof handlers.
type Server struct {
	server   *http.Server
	listener net.Listener
	port     int
	log      logging.Logger
}

// NewServer creates a new pprof Server. A nil logger discards output.
func NewServer(log logging.Logger) *Server {
	if log == nil {
		log = logging.Nop()
	}
	return &Server{log: log}
}

// Start binds to localhost on port (0 picks a free one) and serves in the
// background. It returns the bound port.
func (s *Server) Start(port int) (int, error) {
	if s.server != nil {
		return 0, errors.New("pprof server already started")
	}
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return 0, fmt.Errorf("bind to %s: %w", addr, err)
	}

	s.listener = listener
	s.port = listener.Addr().(*net.TCPAddr).Port

	// Dedicated mux: nothing registered on http.DefaultServeMux leaks out.
	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	s.server = &http.Server{Handler: mux}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("pprof server stopped", "error", err)
		}
	}()
	s.log.Info("pprof server listening", "port", s.port)
	return s.port, nil
}

// Port returns the port the server is listening on.
func (s *Server) Port() int {
	return s.port
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// PrintUsage prints helpful pprof commands to the given writer.
func PrintUsage(w io.Writer, port int) {
	base := fmt.Sprintf("http://127.0.0.1:%d/debug/pprof", port)
	fmt.Fprintf(w, "pprof server: %s/\n", base)
	fmt.Fprintf(w, "  go tool pprof %s/profile?seconds=30   # CPU\n", base)
	fmt.Fprintf(w, "  go tool pprof %s/heap                 # memory\n", base)
	fmt.Fprintf(w, "  curl '%s/goroutine?debug=2'           # goroutines\n", base)
}
