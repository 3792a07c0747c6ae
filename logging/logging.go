// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package logging

import (
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gogama/hopper"
	"github.com/gogama/hopper/request"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Field names used in log entries.
const (
	FieldExecutionID = "execution_id"
	FieldAttempt     = "attempt"
	FieldHop         = "hop"
	FieldRetries     = "retries"
	FieldMethod      = "method"
	FieldURL         = "url"
	FieldStatus      = "status"
	FieldProto       = "proto"
	FieldWait        = "wait"
	FieldDuration    = "duration"
	FieldHeader      = "header"
	FieldCode        = "code"
)

// Mask replaces the values of sensitive headers.
const Mask = "***"

// SensitiveHeaders are the headers whose values are never logged.
var SensitiveHeaders = []string{
	"Authorization",
	"Cookie",
	"Proxy-Authorization",
	"Set-Cookie",
}

// New returns a logger writing to standard error at the named level. An
// unknown level means info. If pretty is true, entries are formatted for
// humans instead of as JSON.
func New(level string, pretty bool) zerolog.Logger {
	return NewWriter(os.Stderr, level, pretty)
}

// NewWriter is like New but writes to w. Pretty output is colored only
// when w is a terminal.
func NewWriter(w io.Writer, level string, pretty bool) zerolog.Logger {
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: !terminal(w)}
	}
	l := zerolog.New(w).With().Timestamp().Logger()
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return l.Level(lvl)
}

// terminal reports whether w is an interactive terminal, the only
// place where pretty output is colored.
func terminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

// Install adds handlers to g which log the progress of each execution
// to l.
//
// Attempts are logged at debug level when they start and at info level
// when they end, or at warn level if they failed. Redirects are logged
// at debug level and retries at warn level. The end of an execution is
// logged at info level, or at error level if it failed.
func Install(g *hopper.HandlerGroup, l zerolog.Logger) {
	h := &handler{l: l}
	g.PushBack(hopper.BeforeAttempt, hopper.HandlerFunc(h.beforeAttempt))
	g.PushBack(hopper.AfterAttemptTimeout, hopper.HandlerFunc(h.afterAttemptTimeout))
	g.PushBack(hopper.AfterAttempt, hopper.HandlerFunc(h.afterAttempt))
	g.PushBack(hopper.BeforeRedirect, hopper.HandlerFunc(h.beforeRedirect))
	g.PushBack(hopper.BeforeRetry, hopper.HandlerFunc(h.beforeRetry))
	g.PushBack(hopper.AfterPlanTimeout, hopper.HandlerFunc(h.afterPlanTimeout))
	g.PushBack(hopper.AfterExecutionEnd, hopper.HandlerFunc(h.afterExecutionEnd))
}

type handler struct {
	l zerolog.Logger
}

func (h *handler) beforeAttempt(evt hopper.Event, e *request.Execution) {
	ev := h.l.Debug()
	if !ev.Enabled() {
		return
	}
	ev = fields(ev, e)
	if e.Request != nil {
		ev = ev.Interface(FieldHeader, Redact(e.Request.Header))
	}
	ev.Msg(evt.Name())
}

func (h *handler) afterAttemptTimeout(evt hopper.Event, e *request.Execution) {
	fields(h.l.Warn(), e).Err(e.Err).Msg(evt.Name())
}

func (h *handler) afterAttempt(evt hopper.Event, e *request.Execution) {
	ev := h.l.Info()
	if e.Err != nil {
		ev = h.l.Warn().Err(e.Err)
		if code := e.Code(); code != "" {
			ev = ev.Str(FieldCode, code)
		}
	}
	ev = fields(ev, e)
	if e.Response != nil {
		ev = ev.Int(FieldStatus, e.Response.StatusCode)
	}
	ev.Msg(evt.Name())
}

func (h *handler) beforeRedirect(evt hopper.Event, e *request.Execution) {
	ev := fields(h.l.Debug(), e).Dur(FieldWait, e.Wait)
	if e.Response != nil {
		ev = ev.Int(FieldStatus, e.Response.StatusCode).
			Str("location", e.Response.Header.Get("Location"))
	}
	ev.Msg(evt.Name())
}

func (h *handler) beforeRetry(evt hopper.Event, e *request.Execution) {
	fields(h.l.Warn(), e).Dur(FieldWait, e.Wait).Err(e.Err).Msg(evt.Name())
}

func (h *handler) afterPlanTimeout(evt hopper.Event, e *request.Execution) {
	fields(h.l.Error(), e).Msg(evt.Name())
}

func (h *handler) afterExecutionEnd(evt hopper.Event, e *request.Execution) {
	ev := h.l.Info()
	if e.Err != nil {
		ev = h.l.Error().Err(e.Err)
	}
	ev = fields(ev, e).
		Int(FieldRetries, e.Retries).
		Dur(FieldDuration, e.Duration())
	if e.Response != nil {
		ev = ev.Int(FieldStatus, e.Response.StatusCode)
	}
	ev.Msg(evt.Name())
}

func fields(ev *zerolog.Event, e *request.Execution) *zerolog.Event {
	ev = ev.Str(FieldExecutionID, e.ID).
		Int(FieldAttempt, e.Attempt).
		Int(FieldHop, e.Hop)
	if p := e.Plan; p != nil {
		ev = ev.Str(FieldMethod, p.Method)
		if p.URL != nil {
			ev = ev.Str(FieldURL, p.URL.Redacted())
		}
	}
	if e.Proto != "" {
		ev = ev.Str(FieldProto, e.Proto)
	}
	return ev
}

// Redact returns a flattened copy of h, one comma-separated value per
// name, with the values of SensitiveHeaders replaced by Mask.
func Redact(h http.Header) map[string]string {
	m := make(map[string]string, len(h))
	for name, values := range h {
		if sensitive(name) {
			m[name] = Mask
			continue
		}
		vs := append([]string(nil), values...)
		sort.Strings(vs)
		m[name] = strings.Join(vs, ",")
	}
	return m
}

func sensitive(name string) bool {
	for _, s := range SensitiveHeaders {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}
