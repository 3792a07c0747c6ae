// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package hopper

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gogama/hopper/alpn"
	"github.com/gogama/hopper/cookie"
	"github.com/gogama/hopper/dispatch"
	"github.com/gogama/hopper/request"
	"github.com/gogama/hopper/retry"
	"github.com/gogama/hopper/timeout"
	"github.com/gogama/hopper/transient"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

func newID() string {
	return uuid.NewString()
}

// A transfer executes one logical request. Hops are run one at a time
// by run, each yielding a step which either ends the logical request or
// carries the plan of the next hop.
type transfer struct {
	e          *request.Execution
	dispatcher Dispatcher
	negotiator *alpn.Negotiator
	jar        *cookie.Jar
	policy     timeout.Policy
	handlers   *HandlerGroup
	limiter    *rate.Limiter
	jitter     *retry.Jitter
	clock      clock.Clock

	// h2c is true once the HTTP/2 fallback for a plaintext target which
	// rejected HTTP/1.1 has been used.
	h2c bool
}

func (t *transfer) run(p *request.Plan) {
	e := t.e
	for {
		s := t.hop(p)
		switch s.action {
		case accept:
			return
		case fail:
			t.finish(p, s.err)
			return
		}

		e.Wait = s.wait
		if s.action == redirect {
			e.Hop++
			t.handlers.run(BeforeRedirect, e)
			discard(e.Response)
		} else {
			e.Retries++
			t.handlers.run(BeforeRetry, e)
		}
		if err := t.sleep(p.Context(), s.wait); err != nil {
			e.Err = urlErrorWrap(p, err)
			if err == context.DeadlineExceeded {
				t.handlers.run(AfterPlanTimeout, e)
			}
			return
		}
		p = s.plan
		e.Plan = p
		e.Attempt++
	}
}

// finish records the terminal failure err of the hop plan p, digesting
// the body of any response which provoked it.
func (t *transfer) finish(p *request.Plan, err error) {
	e := t.e
	if e.Response != nil && p.Config.Digest {
		_ = e.Response.Digest(p.Config.Parse)
	}
	e.Err = urlErrorWrap(p, err)
}

// hop sends one attempt of the hop plan p and decides what follows it.
func (t *transfer) hop(p *request.Plan) step {
	e := t.e
	e.Request = nil
	e.Response = nil
	e.Err = nil
	e.Wait = 0

	if p.Config.Follow == 0 {
		return step{action: fail, err: &request.Error{Message: request.MsgMaxRedirect}}
	}

	s := t.attempt(p)
	if s.action == fail {
		e.Err = s.err
		if e.Timeout() {
			e.AttemptTimeouts++
			t.handlers.run(AfterAttemptTimeout, e)
		}
	}
	t.handlers.run(AfterAttempt, e)

	if err := p.Context().Err(); err != nil {
		discard(e.Response)
		e.Response = nil
		e.Err = err
		if err == context.DeadlineExceeded {
			t.handlers.run(AfterPlanTimeout, e)
		}
		return step{action: fail, err: err}
	}

	if s.action == fail {
		if r, ok := t.retry(p, s.err); ok {
			return r
		}
	}
	return s
}

// attempt negotiates, prepares and dispatches the hop plan p, then runs
// postflight on the response. An accepted response is digested if the
// plan asks for it.
func (t *transfer) attempt(p *request.Plan) step {
	e := t.e
	ctx := p.Context()

	limit := t.policy.Timeout(e)
	start := t.clock.Now()

	var conn *alpn.Conn
	var err error
	if p.URL.Scheme == "https" {
		conn, err = t.negotiate(ctx, p, limit)
		if err != nil {
			return step{action: fail, err: err}
		}
		if limit > 0 {
			// The handshake counts against the attempt timeout.
			limit -= t.clock.Since(start)
			if limit <= 0 {
				closeConn(conn)
				return step{action: fail, err: &request.TimeoutError{After: t.clock.Since(start)}}
			}
		}
	}
	h2 := p.Config.H2
	if conn != nil {
		h2 = conn.H2()
	}

	q := preflight(p, t.jar, h2)
	e.Plan = q
	e.Proto = dispatch.ProtoHTTP11
	if h2 {
		e.Proto = dispatch.ProtoHTTP2
	}

	if t.limiter != nil {
		if err = t.limiter.Wait(ctx); err != nil {
			closeConn(conn)
			return step{action: fail, err: err}
		}
	}

	e.Request, err = q.ToRequest(ctx)
	if err != nil {
		closeConn(conn)
		return step{action: fail, err: err}
	}
	t.handlers.run(BeforeAttempt, e)

	raw, err := t.dispatcher.Dispatch(e.Request, dispatch.Attempt{
		Conn:    conn,
		H2:      q.Config.H2,
		Timeout: limit,
	})
	if err != nil {
		return step{action: fail, err: err}
	}
	e.Proto = raw.Proto

	var store *cookie.Store
	if q.Config.Cookies {
		store = t.jar.Store(cookie.Origin(q.URL))
		store.Ingest(raw.Header)
	}
	e.Response = request.NewResponse(raw, q.URL, q.Redirected, store)
	t.handlers.run(BeforeReadBody, e)

	// The next hop of a redirect derives from the hop plan rather than
	// the prepared one, so nothing preflight attached leaks into it.
	s := postflight(p, e.Response, t.clock.Now())
	if s.action == accept && q.Config.Digest {
		if err = e.Response.Digest(q.Config.Parse); err != nil {
			return step{action: fail, err: err}
		}
	}
	return s
}

// negotiate runs ALPN for the hop plan p. A positive limit bounds the
// dial and the handshake; running out of it yields a *request.TimeoutError
// so the failure classifies like any other attempt timeout.
func (t *transfer) negotiate(ctx context.Context, p *request.Plan, limit time.Duration) (*alpn.Conn, error) {
	if limit <= 0 {
		return t.negotiator.Negotiate(ctx, p.URL)
	}
	timeoutErr := &request.TimeoutError{After: limit}
	nctx, cancel := context.WithTimeoutCause(ctx, limit, timeoutErr)
	defer cancel()
	conn, err := t.negotiator.Negotiate(nctx, p.URL)
	if err != nil && ctx.Err() == nil && context.Cause(nctx) == timeoutErr {
		return nil, timeoutErr
	}
	return conn, err
}

// retry consults the retry policy of the hop plan p about its failure
// err. It reports false if the failure is final as it is.
func (t *transfer) retry(p *request.Plan, err error) (step, bool) {
	if !t.h2c && !p.Config.H2 && p.URL.Scheme == "http" && transient.Code(err) == transient.CodeBadStatusLine {
		t.h2c = true
		if p.Consumed() && p.Method != "GET" && p.Method != "HEAD" {
			return step{action: fail, err: request.ErrStreamConsumed}, true
		}
		next := p.Clone()
		next.Config.H2 = true
		return step{action: again, plan: next}, true
	}

	a := retry.Attempt{
		Err:      err,
		Method:   p.Method,
		Consumed: p.Consumed(),
		Now:      t.clock.Now(),
	}
	var se *request.StatusError
	if errors.As(err, &se) {
		a.StatusCode = se.Response.StatusCode
		a.Header = se.Response.Header
	}

	d, err := p.Config.Retry.Decide(a, t.jitter)
	if err != nil {
		var mra *retry.MaxRetryAfterError
		if errors.As(err, &mra) {
			err = &request.Error{Message: request.MsgMaxRetryAfter, Cause: err, Response: t.e.Response}
		}
		return step{action: fail, err: err}, true
	}
	if !d.Retry {
		return step{}, false
	}

	discard(t.e.Response)
	next := p.Clone()
	next.Config.Retry = d.Next
	return step{action: again, plan: next, wait: d.Wait}, true
}

// sleep waits for d on the client clock, or until ctx is done.
func (t *transfer) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := t.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func closeConn(conn *alpn.Conn) {
	if conn != nil {
		_ = conn.Close()
	}
}
