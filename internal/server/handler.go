package server

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/clean-dependency-project/devserve/internal/config"
)

// RequestIDHeader carries the per-request correlation id. A client-supplied value is kept.
const RequestIDHeader = "X-Request-Id"

// State is a step in the lifecycle of a single request.
type State int

const (
	StateReceived State = iota
	StateResolving
	StateStreaming
	StateErrored
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateResolving:
		return "resolving"
	case StateStreaming:
		return "streaming"
	case StateErrored:
		return "errored"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// exchange tracks one request from accept to close.
type exchange struct {
	id      string
	start   time.Time
	state   State
	outcome State
	status  int
	bytes   int64
	aborted bool
	err     error
}

// advance moves to the next state. Closed is entered only by close.
func (x *exchange) advance(to State) {
	x.state = to
	if to == StateStreaming || to == StateErrored {
		x.outcome = to
	}
}

func (x *exchange) close() {
	x.state = StateClosed
}

// Handler serves files from the configured root. Each request moves through
// received, resolving, then streaming or errored, and finally closed.
type Handler struct {
	resolver  *Resolver
	responder *Responder
	logger    *slog.Logger
}

// NewHandler wires a resolver and a responder from cfg. open may be nil.
func NewHandler(cfg config.ServerConfig, logger *slog.Logger, open OpenFunc) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		resolver:  NewResolver(cfg),
		responder: NewResponder(cfg.ChunkSize(), open),
		logger:    logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	x := &exchange{
		id:    r.Header.Get(RequestIDHeader),
		start: time.Now(),
		state: StateReceived,
	}
	if x.id == "" {
		x.id = uuid.NewString()
	}
	w.Header().Set(RequestIDHeader, x.id)
	defer h.logExchange(r, x)

	x.advance(StateResolving)
	target, err := h.resolver.Resolve(r.URL.EscapedPath())
	if err != nil {
		x.advance(StateErrored)
		x.err = err
		var re *ResolutionError
		if errors.As(err, &re) {
			h.fail(w, x, re.Kind.Status(), re.Kind.Message())
		} else {
			h.fail(w, x, http.StatusInternalServerError, msgInternal)
		}
		return
	}

	x.advance(StateStreaming)
	x.status = http.StatusOK
	n, err := h.responder.Respond(w, target)
	x.bytes = n
	if err == nil {
		return
	}
	x.err = err

	var te *TransferError
	if errors.As(err, &te) && te.HeadersSent {
		// A status line is already on the wire; the only safe signal left
		// is to drop the connection.
		x.aborted = true
		panic(http.ErrAbortHandler)
	}
	x.advance(StateErrored)
	h.fail(w, x, http.StatusInternalServerError, msgInternal)
}

func (h *Handler) fail(w http.ResponseWriter, x *exchange, status int, message string) {
	x.status = status
	respondError(w, status, message)
}

func (h *Handler) logExchange(r *http.Request, x *exchange) {
	x.close()

	level := slog.LevelInfo
	switch {
	case x.aborted || x.status >= http.StatusInternalServerError:
		level = slog.LevelError
	case x.status == http.StatusForbidden:
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("request_id", x.id),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", x.status),
		slog.String("outcome", x.outcome.String()),
		slog.String("state", x.state.String()),
		slog.Int64("bytes", x.bytes),
		slog.String("size", humanize.Bytes(uint64(x.bytes))),
		slog.Int64("duration_ms", time.Since(x.start).Milliseconds()),
		slog.String("remote_addr", r.RemoteAddr),
	}
	if x.aborted {
		attrs = append(attrs, slog.Bool("aborted", true))
	}
	if x.err != nil {
		attrs = append(attrs, slog.String("error", x.err.Error()))
	}
	h.logger.LogAttrs(r.Context(), level, "request", attrs...)
}
