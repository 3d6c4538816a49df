package observability

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span records one traced step. Implementations must never block the caller.
type Span interface {
	SetInput(v interface{})
	SetOutput(v interface{})
	SetError(err error)
	End()
}

// Observer starts spans for the analytics workflow and its steps.
type Observer interface {
	StartSpan(ctx context.Context, name string) (context.Context, Span)
}

// ==========================
// No-op
// ==========================

type noopObserver struct{}

type noopSpan struct{}

// NewNoopObserver returns an Observer that records nothing.
func NewNoopObserver() Observer { return noopObserver{} }

func (noopObserver) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

func (noopSpan) SetInput(interface{})  {}
func (noopSpan) SetOutput(interface{}) {}
func (noopSpan) SetError(error)        {}
func (noopSpan) End()                  {}

// ==========================
// OpenTelemetry
// ==========================

// maxAttributeLen caps serialized input/output attributes.
const maxAttributeLen = 4096

type otelObserver struct {
	tracer trace.Tracer
}

type otelSpan struct {
	span trace.Span
}

// NewOTelObserver adapts an OTel tracer to Observer.
func NewOTelObserver(tracer trace.Tracer) Observer {
	return &otelObserver{tracer: tracer}
}

func (o *otelObserver) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	ctx, span := o.tracer.Start(ctx, name)
	return ctx, &otelSpan{span: span}
}

func (s *otelSpan) SetInput(v interface{}) {
	s.span.SetAttributes(attribute.String("span.input", serialize(v)))
}

func (s *otelSpan) SetOutput(v interface{}) {
	s.span.SetAttributes(attribute.String("span.output", serialize(v)))
}

func (s *otelSpan) SetError(err error) {
	if err == nil {
		return
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *otelSpan) End() { s.span.End() }

func serialize(v interface{}) string {
	var out string
	switch val := v.(type) {
	case string:
		out = val
	case fmt.Stringer:
		out = val.String()
	default:
		b, err := json.Marshal(val)
		if err != nil {
			out = fmt.Sprintf("%v", val)
		} else {
			out = string(b)
		}
	}
	if len(out) > maxAttributeLen {
		out = out[:maxAttributeLen]
	}
	return out
}

// ==========================
// Fan-out
// ==========================

type multiObserver struct {
	observers []Observer
}

type multiSpan struct {
	spans []Span
}

// NewMultiObserver sends every span to all observers in order.
func NewMultiObserver(observers ...Observer) Observer {
	switch len(observers) {
	case 0:
		return NewNoopObserver()
	case 1:
		return observers[0]
	}
	return &multiObserver{observers: observers}
}

func (m *multiObserver) StartSpan(ctx context.Context, name string) (context.Context, Span) {
	spans := make([]Span, 0, len(m.observers))
	for _, o := range m.observers {
		var s Span
		ctx, s = o.StartSpan(ctx, name)
		spans = append(spans, s)
	}
	return ctx, &multiSpan{spans: spans}
}

func (m *multiSpan) SetInput(v interface{}) {
	for _, s := range m.spans {
		s.SetInput(v)
	}
}

func (m *multiSpan) SetOutput(v interface{}) {
	for _, s := range m.spans {
		s.SetOutput(v)
	}
}

func (m *multiSpan) SetError(err error) {
	for _, s := range m.spans {
		s.SetError(err)
	}
}

func (m *multiSpan) End() {
	for _, s := range m.spans {
		s.End()
	}
}
