// Package bridge is the loopback HTTP server between the UI and the native
// process. It serves the frontend, the socket.io endpoint the UI invokes
// commands through, the invocation shim, and a health probe.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/vk/deskshell/internal/ctxlog"
	"github.com/vk/deskshell/internal/dispatch"
	"github.com/zishang520/socket.io/v2/socket"
)

// Submitter is the dispatch target of the bridge, normally a
// *dispatch.Dispatcher.
type Submitter interface {
	Submit(ctx context.Context, req dispatch.Request, reply dispatch.ReplyFunc) error
}

// Config controls what the bridge listens on and serves.
type Config struct {
	// Address to listen on. Port 0 picks a free port.
	Address string
	// FrontendDist is a directory of built frontend assets.
	FrontendDist string
	// DevURL, when set, is reverse-proxied instead of FrontendDist.
	DevURL string
}

// Server is the bridge HTTP server.
type Server struct {
	cfg     Config
	disp    Submitter
	logger  *slog.Logger
	io      *socket.Server
	handler http.Handler

	baseCtx context.Context
	cancel  context.CancelFunc

	mu      sync.Mutex
	httpSrv *http.Server
	addr    net.Addr
	served  chan struct{}
}

// New builds the bridge. Nothing listens until Start.
func New(ctx context.Context, cfg Config, disp Submitter) (*Server, error) {
	logger := ctxlog.FromContext(ctx).With("component", "bridge")

	frontend, source, err := frontendHandler(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure frontend: %w", err)
	}
	logger.Debug("Frontend source selected.", "source", source)

	baseCtx, cancel := context.WithCancel(ctxlog.WithLogger(context.WithoutCancel(ctx), logger))
	s := &Server{
		cfg:     cfg,
		disp:    disp,
		logger:  logger,
		io:      socket.NewServer(nil, nil),
		baseCtx: baseCtx,
		cancel:  cancel,
	}
	s.io.On("connection", s.onConnection)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.healthHandler)
	mux.Handle("/socket.io/", s.io.ServeHandler(nil))
	mux.Handle("/__deskshell/", shimHandler())
	mux.Handle("/", frontend)
	s.handler = mux

	return s, nil
}

// Handler exposes the bridge routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpSrv != nil {
		return errors.New("bridge already started")
	}

	addr := s.cfg.Address
	if addr == "" {
		addr = "127.0.0.1:0"
	}
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.addr = ln.Addr()
	s.httpSrv = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.baseCtx },
	}
	s.served = make(chan struct{})

	go func() {
		defer close(s.served)
		s.logger.Info("Bridge server starting.", "address", s.url())
		if err := s.httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Bridge server failed unexpectedly.", "error", err)
		}
	}()
	return nil
}

// URL returns the base URL of the running server, or "" before Start.
func (s *Server) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url()
}

func (s *Server) url() string {
	if s.addr == nil {
		return ""
	}
	return "http://" + s.addr.String()
}

// Close disconnects every UI client and shuts the HTTP server down,
// waiting at most until ctx is done.
func (s *Server) Close(ctx context.Context) error {
	s.logger.Debug("Closing bridge server...")
	s.cancel()
	s.io.Close(nil)

	s.mu.Lock()
	srv, served := s.httpSrv, s.served
	s.mu.Unlock()
	if srv == nil {
		s.logger.Debug("Bridge server was not running.")
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("Bridge server shutdown failed.", "error", err)
		return err
	}
	<-served
	s.logger.Debug("Bridge server shut down gracefully.")
	return nil
}

func (s *Server) onConnection(clients ...any) {
	client, ok := clients[0].(*socket.Socket)
	if !ok {
		s.logger.Error("Unexpected socket.io connection value.", "type", fmt.Sprintf("%T", clients[0]))
		return
	}
	caller := string(client.Id())
	logger := s.logger.With("caller", caller)
	connCtx, cancel := context.WithCancel(s.baseCtx)
	logger.Debug("UI client connected.")

	// On listeners each run on a fresh goroutine. OnAny listeners run on the
	// connection's packet reader, which keeps a caller's invocations in the
	// order they were emitted.
	client.OnAny(func(args ...any) {
		if len(args) == 0 {
			return
		}
		if event, _ := args[0].(string); event != EventInvoke {
			return
		}
		s.handleInvoke(connCtx, logger, client, caller, args[1:])
	})
	client.On("disconnect", func(reason ...any) {
		cancel()
		logger.Debug("UI client disconnected.", "reason", reason)
	})
}

// handleInvoke queues one invocation. It is called from the connection's
// packet reader, so a full dispatch queue slows that client down.
func (s *Server) handleInvoke(ctx context.Context, logger *slog.Logger, client *socket.Socket, caller string, data []any) {
	emit := func(r *Reply) {
		if err := client.Emit(EventReply, r.wire()); err != nil {
			logger.Warn("Failed to deliver invoke reply.", "request_id", r.ID, "error", err)
		}
	}

	msg, err := parseInvoke(data)
	if err != nil {
		id := ""
		if msg != nil {
			id = msg.ID
		}
		logger.Warn("Rejected malformed invocation.", "error", err)
		emit(errorReply(id, err))
		return
	}

	req := dispatch.Request{ID: msg.ID, Caller: caller, Command: msg.Cmd, Args: msg.Args}
	err = s.disp.Submit(ctx, req, func(resp dispatch.Response) {
		// The UI correlates by the id it sent, which may be empty.
		resp.ID = msg.ID
		emit(newReply(resp))
	})
	if err != nil {
		logger.Warn("Failed to queue invocation.", "command", msg.Cmd, "error", err)
		emit(errorReply(msg.ID, err))
	}
}
