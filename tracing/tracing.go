// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package tracing

import (
	"context"
	"errors"
	"strings"

	"github.com/gogama/hopper"
	"github.com/gogama/hopper/request"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.32.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation name of the tracer.
const TracerName = "github.com/gogama/hopper/tracing"

// Attribute keys specific to hopper.
const (
	ExecutionIDKey = attribute.Key("hopper.execution.id")
	AttemptKey     = attribute.Key("hopper.attempt")
	HopKey         = attribute.Key("hopper.hop")
	WaitKey        = attribute.Key("hopper.wait_ms")
)

type spanKey int

const (
	executionSpan spanKey = iota
	attemptSpan
)

// An Option configures the tracing handlers.
type Option func(h *handler)

// WithTracerProvider sets the tracer provider. The default is the
// global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(h *handler) {
		h.tp = tp
	}
}

// WithPropagator sets the propagator used to inject the trace context
// into outgoing requests. The default is the global propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(h *handler) {
		h.propagator = p
	}
}

// Install adds handlers to g which trace each execution.
//
// An execution is traced as one client span whose children are one
// client span per attempt. Redirects and retries are recorded as events
// on the execution span. The context of the attempt span is injected
// into the request headers.
func Install(g *hopper.HandlerGroup, opts ...Option) {
	h := &handler{}
	for _, opt := range opts {
		opt(h)
	}
	if h.tp == nil {
		h.tp = otel.GetTracerProvider()
	}
	if h.propagator == nil {
		h.propagator = otel.GetTextMapPropagator()
	}
	h.tracer = h.tp.Tracer(TracerName)

	g.PushBack(hopper.BeforeExecutionStart, hopper.HandlerFunc(h.beforeExecutionStart))
	g.PushBack(hopper.BeforeAttempt, hopper.HandlerFunc(h.beforeAttempt))
	g.PushBack(hopper.AfterAttempt, hopper.HandlerFunc(h.afterAttempt))
	g.On(hopper.HandlerFunc(h.event), hopper.BeforeRedirect, hopper.BeforeRetry, hopper.AfterPlanTimeout)
	g.PushBack(hopper.AfterExecutionEnd, hopper.HandlerFunc(h.afterExecutionEnd))
}

type handler struct {
	tp         trace.TracerProvider
	propagator propagation.TextMapPropagator
	tracer     trace.Tracer
}

type spanContext struct {
	ctx  context.Context
	span trace.Span
}

func (h *handler) beforeExecutionStart(_ hopper.Event, e *request.Execution) {
	ctx, span := h.tracer.Start(e.Plan.Context(), "HTTP "+e.Plan.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			ExecutionIDKey.String(e.ID),
			semconv.HTTPRequestMethodKey.String(e.Plan.Method),
			semconv.URLFull(e.Plan.URL.Redacted()),
		))
	e.SetValue(executionSpan, &spanContext{ctx: ctx, span: span})
}

func (h *handler) beforeAttempt(_ hopper.Event, e *request.Execution) {
	parent := context.Background()
	if sc, ok := e.Value(executionSpan).(*spanContext); ok {
		parent = sc.ctx
	}
	ctx, span := h.tracer.Start(parent, "HTTP "+e.Plan.Method+" attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttemptKey.Int(e.Attempt),
			HopKey.Int(e.Hop),
			semconv.HTTPRequestMethodKey.String(e.Plan.Method),
			semconv.URLFull(e.Plan.URL.Redacted()),
			semconv.ServerAddress(e.Plan.URL.Hostname()),
		))
	if e.Retries > 0 {
		span.SetAttributes(semconv.HTTPRequestResendCount(e.Retries))
	}
	if e.Request != nil {
		h.propagator.Inject(ctx, propagation.HeaderCarrier(e.Request.Header))
	}
	e.SetValue(attemptSpan, &spanContext{ctx: ctx, span: span})
}

func (h *handler) afterAttempt(_ hopper.Event, e *request.Execution) {
	sc, ok := e.Value(attemptSpan).(*spanContext)
	if !ok || sc == nil {
		return
	}
	e.SetValue(attemptSpan, (*spanContext)(nil))
	if e.Proto != "" {
		sc.span.SetAttributes(semconv.NetworkProtocolVersion(strings.TrimPrefix(e.Proto, "HTTP/")))
	}
	end(sc.span, e)
}

func (h *handler) event(evt hopper.Event, e *request.Execution) {
	sc, ok := e.Value(executionSpan).(*spanContext)
	if !ok {
		return
	}
	attrs := []attribute.KeyValue{AttemptKey.Int(e.Attempt), HopKey.Int(e.Hop)}
	if evt != hopper.AfterPlanTimeout {
		attrs = append(attrs, WaitKey.Int64(e.Wait.Milliseconds()))
	}
	sc.span.AddEvent(evt.Name(), trace.WithAttributes(attrs...))
}

func (h *handler) afterExecutionEnd(_ hopper.Event, e *request.Execution) {
	sc, ok := e.Value(executionSpan).(*spanContext)
	if !ok {
		return
	}
	sc.span.SetAttributes(semconv.HTTPRequestResendCount(e.Retries), HopKey.Int(e.Hop))
	end(sc.span, e)
}

func end(span trace.Span, e *request.Execution) {
	if e.Response != nil {
		span.SetAttributes(semconv.HTTPResponseStatusCode(e.Response.StatusCode))
	}
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, errorType(e.Err))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func errorType(err error) string {
	var se *request.StatusError
	if errors.As(err, &se) {
		return se.Response.Status
	}
	return err.Error()
}
