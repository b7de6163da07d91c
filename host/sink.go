package host

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Sink delivers outbound envelopes to a host transport (stdout for a
// driving process, a websocket peer, an in-process callback).
type Sink interface {
	Send(ctx context.Context, env Envelope) error
	Close() error
}

// Router fans out envelopes to all configured sinks. One sink error does
// not block the others; errors are logged and the first encountered is
// returned.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a fan-out router delivering to all sinks.
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

func (r *Router) Send(ctx context.Context, env Envelope) error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Send(ctx, env); err != nil {
			r.logger.Warn("host: sink send failed", "type", env.Type, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Router) Close() error {
	var firstErr error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WriterSink writes one JSON envelope per line. NewStdoutSink is the
// usual constructor; tests hand it a buffer.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewStdoutSink returns a sink printing envelopes to stdout, one per line.
func NewStdoutSink() *WriterSink {
	return &WriterSink{w: os.Stdout}
}

// NewWriterSink returns a sink printing envelopes to w, one per line.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Send(_ context.Context, env Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("host: marshal envelope: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("host: write envelope: %w", err)
	}
	return nil
}

func (s *WriterSink) Close() error { return nil }

// CallbackSink hands envelopes to an in-process function. Embedding hosts
// use it instead of a transport.
type CallbackSink struct {
	Fn func(ctx context.Context, env Envelope) error
}

func (s CallbackSink) Send(ctx context.Context, env Envelope) error {
	if s.Fn == nil {
		return nil
	}
	return s.Fn(ctx, env)
}

func (s CallbackSink) Close() error { return nil }
