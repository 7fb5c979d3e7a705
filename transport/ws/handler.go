package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BaSui01/seriesflow/demux"
	"github.com/BaSui01/seriesflow/generator"
	"github.com/BaSui01/seriesflow/internal/ctxkeys"
	"github.com/BaSui01/seriesflow/session"
	"github.com/BaSui01/seriesflow/transport"
	"github.com/coder/websocket"
	"go.uber.org/zap"
)

// RunReport describes one server-side run once its end marker is sent.
type RunReport struct {
	SessionID string
	Subject   string
	Generator string
	DataType  demux.DataType
	Frames    int
	Values    int
	Started   time.Time
	Finished  time.Time
	Err       error
}

// RunHook is called synchronously after every run.
type RunHook func(ctx context.Context, r RunReport)

// Handler upgrades HTTP requests to websocket sessions.
type Handler struct {
	registry *generator.Registry
	opts     session.Options
	logger   *zap.Logger
	accept   *websocket.AcceptOptions
	active   atomic.Int64
	onRun    RunHook

	// base 在 Shutdown 时取消，结束所有会话；mu 保证取消与 sessions.Add 互斥
	mu       sync.Mutex
	base     context.Context
	stop     context.CancelFunc
	sessions sync.WaitGroup
}

// NewHandler serves sessions over the given generators.
func NewHandler(registry *generator.Registry, opts session.Options, accept *websocket.AcceptOptions) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	base, stop := context.WithCancel(context.Background())
	return &Handler{
		registry: registry,
		opts:     opts,
		logger:   logger.With(zap.String("component", "ws_handler")),
		accept:   accept,
		base:     base,
		stop:     stop,
	}
}

// Shutdown cancels every open session and waits for them to finish or for
// ctx to end. Later upgrade requests are refused with 503.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.stop()
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.sessions.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnRun registers a hook for finished runs. It must be set before serving.
func (h *Handler) OnRun(hook RunHook) { h.onRun = hook }

// Active returns the number of open sessions.
func (h *Handler) Active() int64 { return h.active.Load() }

// admit registers a starting session unless Shutdown has begun.
func (h *Handler) admit() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.base.Err() != nil {
		return false
	}
	h.sessions.Add(1)
	return true
}

// ServeHTTP runs one session for the lifetime of the connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !h.admit() {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	defer h.sessions.Done()

	conn, err := websocket.Accept(w, r, h.accept)
	if err != nil {
		h.logger.Warn("websocket accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	defer context.AfterFunc(h.base, cancel)()

	h.active.Add(1)
	defer h.active.Add(-1)

	srv := session.NewServer(h.registry, h.opts)
	logger := h.logger.With(zap.String("session_id", srv.ID()))
	if id, ok := ctxkeys.RequestID(r.Context()); ok {
		logger = logger.With(zap.String("request_id", id))
	}
	subject, ok := ctxkeys.Subject(r.Context())
	if ok {
		logger = logger.With(zap.String("subject", subject))
	}
	logger.Info("session opened", zap.String("remote", r.RemoteAddr))

	err = h.serve(ctx, conn, srv, subject)
	switch {
	case err == nil:
		conn.Close(websocket.StatusNormalClosure, "")
	case h.base.Err() != nil:
		logger.Info("session interrupted by shutdown")
		conn.Close(websocket.StatusGoingAway, "server shutting down")
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway,
		errors.Is(err, context.Canceled):
		logger.Debug("peer closed")
	default:
		logger.Warn("session failed", zap.Error(err))
		conn.Close(websocket.StatusProtocolError, "session failed")
	}
	logger.Info("session closed")
}

func (h *Handler) serve(ctx context.Context, conn *websocket.Conn, srv *session.Server, subject string) error {
	for {
		msg, err := read(ctx, conn)
		if err != nil {
			return err
		}
		if msg.Type != transport.KindConfig {
			if err := write(ctx, conn, transport.ErrorMessage(errUnexpected(msg.Type))); err != nil {
				return err
			}
			continue
		}

		if msg.Config.Operation != session.OpGet {
			if err := write(ctx, conn, transport.InfoMessage(srv.Dispatch(ctx, *msg.Config))); err != nil {
				return err
			}
			continue
		}

		payload, _ := srv.Payload()
		report := RunReport{
			SessionID: srv.ID(),
			Subject:   subject,
			Generator: srv.Generator(),
			DataType:  payload.DataType,
			Started:   time.Now(),
		}
		report.Frames, err = srv.Stream(ctx, func(f session.Frame) error {
			report.Values += len(f.Real) + len(f.Complex)
			return write(ctx, conn, transport.FrameMessage(f))
		})
		end := transport.EndMessage()
		if err != nil {
			end = transport.ErrorMessage(err)
		}
		werr := write(ctx, conn, end)
		report.Finished = time.Now()
		report.Err = errors.Join(err, werr)
		if h.onRun != nil {
			h.onRun(ctx, report)
		}
		if werr != nil {
			return werr
		}
	}
}
