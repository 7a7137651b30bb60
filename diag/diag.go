// Package diag accumulates and logs the pipeline's diagnostics: every
// stage that can fail softly (a warning) or hard (an error) reports
// through a Sink instead of returning bare errors, so a caller gets
// both the full warning list and, if one was configured, a structured
// log trail.
package diag

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Kind classifies a diagnostic by the failure category it represents.
type Kind uint8

const (
	KindInvalidArgument Kind = iota
	KindLayerValidation
	KindNullPointer
	KindRuntime
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindLayerValidation:
		return "layer_validation"
	case KindNullPointer:
		return "null_pointer"
	case KindRuntime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Sentinel errors for the four diagnostic kinds. The pipeline stages in
// this module wrap the graph package's sentinels (graph.ErrInvalidArgument
// and its siblings) via fmt.Errorf("...: %w", ...), not these; no stage
// wraps a diag sentinel.
var (
	ErrInvalidArgument = errors.New("graphc: invalid argument")
	ErrLayerValidation = errors.New("graphc: layer validation failed")
	ErrNullPointer      = errors.New("graphc: required constant missing")
	ErrRuntime          = errors.New("graphc: runtime failure")
)

// Entry is one recorded diagnostic: a kind, the layer (if any) it
// concerns, and a human-readable message.
type Entry struct {
	Kind      Kind
	Layer     string
	Backend   string
	Message   string
	Err       error // non-nil only for entries that also failed the pipeline
}

// Sink accumulates diagnostics for the duration of one optimize.Run call
// and optionally mirrors each one to a *zap.Logger. Its methods take mu,
// so it is safe for concurrent use; the pipeline itself reports from a
// single goroutine.
type Sink struct {
	mu      sync.Mutex
	entries []Entry
	logger  *zap.Logger
}

// NewSink returns a Sink. A nil logger is valid and disables structured
// logging; diagnostics still accumulate.
func NewSink(logger *zap.Logger) *Sink {
	return &Sink{logger: logger}
}

// Warn records a non-fatal diagnostic.
func (s *Sink) Warn(kind Kind, layer, backend, format string, args ...any) {
	s.record(Entry{Kind: kind, Layer: layer, Backend: backend, Message: fmt.Sprintf(format, args...)})
}

// Fail records a fatal diagnostic alongside the error that will be
// returned to the caller.
func (s *Sink) Fail(kind Kind, layer, backend string, err error) {
	s.record(Entry{Kind: kind, Layer: layer, Backend: backend, Message: err.Error(), Err: err})
}

func (s *Sink) record(e Entry) {
	s.mu.Lock()
	s.entries = append(s.entries, e)
	s.mu.Unlock()

	if s.logger == nil {
		return
	}
	fields := []zap.Field{zap.String("kind", e.Kind.String())}
	if e.Layer != "" {
		fields = append(fields, zap.String("layer", e.Layer))
	}
	if e.Backend != "" {
		fields = append(fields, zap.String("backend", e.Backend))
	}
	if e.Err != nil {
		s.logger.Error(e.Message, fields...)
	} else {
		s.logger.Warn(e.Message, fields...)
	}
}

// Entries returns a copy of every diagnostic recorded so far, in order.
func (s *Sink) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// HasFailures reports whether any recorded entry carried an error.
func (s *Sink) HasFailures() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Err != nil {
			return true
		}
	}
	return false
}
