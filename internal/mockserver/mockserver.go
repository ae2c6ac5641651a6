// Package mockserver is an in-process stand-in for the live service a take
// or record run talks to: a fasthttp listener that answers programmed
// request/response stubs, for exercising internal/take and internal/record
// in tests without a real network dependency. Adapted from the teacher's
// WireMock-compatible mapping/matching engine, trimmed to the subset an
// integration test needs (register a stub, reset, serve) and stripped of
// the WireMock admin-import/snapshot surface, which would duplicate
// internal/record's own recording domain.
package mockserver

import (
	"net"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/valyala/fasthttp"
)

// Server holds the mutable set of programmed stubs plus an optional logger
// for per-request tracing.
type Server struct {
	mu    sync.RWMutex
	stubs []Stub
	log   logr.Logger
}

// New builds an empty Server. A zero logr.Logger discards everything, so
// passing logr.Logger{} is fine when the caller doesn't care about tracing.
func New(log logr.Logger) *Server {
	return &Server{log: log}
}

// AddStub programs one more stub, evaluated alongside every existing one on
// the next request; the most specific match wins ties.
func (s *Server) AddStub(st Stub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs = append(s.stubs, st)
}

// Reset drops every programmed stub.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs = nil
}

// Handler returns the fasthttp.RequestHandler serving programmed stubs.
func (s *Server) Handler() fasthttp.RequestHandler {
	return s.handleRequest
}

// Serve runs the server on ln until ln is closed, in the caller's goroutine.
// Tests typically pair this with net.Listen("tcp", "127.0.0.1:0") and run it
// in a goroutine so the ephemeral port is known before the server starts.
func (s *Server) Serve(ln net.Listener) error {
	srv := &fasthttp.Server{Handler: s.Handler()}
	return srv.Serve(ln)
}

func (s *Server) handleRequest(ctx *fasthttp.RequestCtx) {
	rawURI := string(ctx.RequestURI())
	path := rawURI
	if idx := strings.IndexByte(rawURI, '?'); idx != -1 {
		path = rawURI[:idx]
	}
	method := string(ctx.Method())
	body := ctx.PostBody()

	s.log.V(1).Info("mockserver request", "method", method, "uri", rawURI)

	result := s.matchRequest(method, path, rawURI, ctx.QueryArgs(), body, &ctx.Request.Header)
	if !result.matched {
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString(`{"error":"no matching stub"}`)
		return
	}

	resp := result.stub.Response
	for key, value := range resp.Headers {
		ctx.Response.Header.Set(key, value)
	}
	ctx.SetStatusCode(resp.Status)
	if resp.Body != "" {
		ctx.SetBodyString(resp.Body)
	}
}
