package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RequestScope tracks one client request from dispatch to completion.
type RequestScope struct {
	Method    string
	Host      string
	StartTime time.Time

	span    trace.Span
	metrics *ClientMetrics
}

// StartRequest opens a client span and, when metrics is non-nil, marks the
// request in flight.
func StartRequest(ctx context.Context, metrics *ClientMetrics, method, host string) (context.Context, *RequestScope) {
	ctx, span := StartSpan(ctx, SpanClientRequest,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String(AttrMethod, method),
			attribute.String(AttrHost, host),
		),
	)
	if metrics != nil {
		metrics.recordStart(ctx)
	}
	return ctx, &RequestScope{
		Method:    method,
		Host:      host,
		StartTime: time.Now(),
		span:      span,
		metrics:   metrics,
	}
}

// SetTaskID tags the span with the transport task identifier.
func (s *RequestScope) SetTaskID(id string) {
	s.span.SetAttributes(attribute.String(AttrTaskID, id))
}

// End closes the span and records the outcome. status is 0 when no response
// arrived; code is empty on success.
func (s *RequestScope) End(ctx context.Context, status int, code string, err error) {
	if status > 0 {
		s.span.SetAttributes(attribute.Int(AttrStatusCode, status))
	}
	if err != nil {
		s.span.RecordError(err)
		s.span.SetAttributes(attribute.String(AttrErrorCode, code))
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()

	if s.metrics != nil {
		s.metrics.recordEnd(ctx, s.Method, s.Host, status, code, s.Duration().Seconds())
	}
}

// Duration returns the time since the request started.
func (s *RequestScope) Duration() time.Duration {
	return time.Since(s.StartTime)
}
