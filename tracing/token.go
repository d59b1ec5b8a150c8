// Package tracing provides the correlation-token adapter for cross-
// environment calls. A token is opened when a call is made from the host's
// primary goroutine, activated around the phase that settles the call, and
// closed afterwards, so a host can correlate a settlement with its
// invocation. Everywhere else the adapter is a no-op capability: tokens are
// passed explicitly, never read from ambient state.
package tracing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/IsoBridge/internal/shared/id"
)

// Tracer creates and closes correlation tokens.
type Tracer struct {
	logger  *zap.Logger
	enabled bool
}

// New creates a tracer. A nil logger or enabled=false yields a no-op
// capability; Open then returns nil tokens, which every method accepts.
func New(logger *zap.Logger, enabled bool) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracer{logger: logger, enabled: enabled}
}

// Token correlates the phases of one cross-environment call.
type Token struct {
	tracer *Tracer
	uid    uuid.UUID
	trace  id.TraceID
	label  string
	opened time.Time
}

// Open creates a token for a call against env, tied to the settlement
// target (typically the call's future). Returns nil, a valid no-op token,
// when tracing is disabled or the call does not originate on the host's
// primary goroutine.
func (t *Tracer) Open(env id.EnvID, target any, label string, onPrimary bool) *Token {
	if t == nil || !t.enabled || !onPrimary {
		return nil
	}
	tok := &Token{
		tracer: t,
		uid:    uuid.New(),
		trace:  id.NewTraceID(),
		label:  label,
		opened: time.Now(),
	}
	t.logger.Debug("trace opened",
		zap.String("trace_id", tok.trace.String()),
		zap.String("token", tok.uid.String()),
		zap.String("env_id", env.String()),
		zap.String("label", label),
		zap.String("target", fmt.Sprintf("%p", target)),
	)
	return tok
}

// Close ends the token's scope. Nil-safe.
func (t *Tracer) Close(tok *Token) {
	if t == nil || tok == nil {
		return
	}
	t.logger.Debug("trace closed",
		zap.String("trace_id", tok.trace.String()),
		zap.Duration("open_for", time.Since(tok.opened)),
	)
}

// With activates the token for the duration of fn. Nil tokens run fn
// directly.
func (tok *Token) With(fn func()) {
	if tok == nil {
		fn()
		return
	}
	tok.tracer.logger.Debug("trace active", zap.String("trace_id", tok.trace.String()))
	defer tok.tracer.logger.Debug("trace inactive", zap.String("trace_id", tok.trace.String()))
	fn()
}

// TraceID returns the token's correlation id, empty for nil tokens.
func (tok *Token) TraceID() id.TraceID {
	if tok == nil {
		return ""
	}
	return tok.trace
}
