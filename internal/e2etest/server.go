package e2etest

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/jersjar7/Fit14-sub001/internal/logging"
)

// LogAddrKey is the key used to log the address the server is listening on.
const LogAddrKey = "addr"

// RunFunc starts an API server and blocks until ctx is done.
type RunFunc func(ctx context.Context, logger *slog.Logger, lookupEnv func(string) (string, bool)) error

// Server is an API server running in the background of a test.
type Server struct {
	url    string
	client *Client
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// StartServer runs the API server until the test ends and waits until it answers health checks.
//
// Server logs go to logSink, usually testhelpers.NewWriter. The server must log its listen address under
// LogAddrKey. lookupEnv has the signature of [os.LookupEnv].
func StartServer(t *testing.T, logSink io.Writer, lookupEnv func(string) (string, bool), run RunFunc) (*Server, error) {
	ctx, cancel := context.WithCancelCause(t.Context())
	done := make(chan struct{})

	addrCh := make(chan string, 1)
	logger := slog.New(logging.NewContextHandler(slog.NewTextHandler(logSink, &slog.HandlerOptions{
		AddSource: false,
		Level:     slog.LevelDebug,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == LogAddrKey {
				select {
				case addrCh <- a.Value.String():
				default:
				}
			}
			return a
		},
	})))

	go func() {
		defer close(done)
		if err := run(ctx, logger, lookupEnv); err != nil {
			cancel(err)
		}
	}()

	server := &Server{url: "", client: nil, cancel: cancel, done: done}
	t.Cleanup(server.Shutdown)

	var addr string
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("server stopped before listening: %w", context.Cause(ctx))
	case addr = <-addrCh:
	}

	server.url = "http://" + addr
	server.client = NewClient(server.url, rand.Text())
	if err := server.client.WaitForReady(ctx, "/api/healthy"); err != nil {
		return nil, fmt.Errorf("wait for ready: %w", err)
	}
	return server, nil
}

// Client returns a client acting as a device of its own.
func (s *Server) Client() *Client {
	return s.client
}

// URL is the base URL of the server.
func (s *Server) URL() string {
	return s.url
}

// Shutdown stops the server and waits for it to return.
func (s *Server) Shutdown() {
	s.cancel(nil)
	<-s.done
}
