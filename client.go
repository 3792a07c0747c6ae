// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package hopper

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/gogama/hopper/alpn"
	"github.com/gogama/hopper/cookie"
	"github.com/gogama/hopper/dispatch"
	"github.com/gogama/hopper/request"
	"github.com/gogama/hopper/retry"
	"github.com/gogama/hopper/timeout"
	"golang.org/x/time/rate"
)

// A Dispatcher sends the request of a single attempt, in the manner of
// dispatch.Dispatcher, which is the standard implementation.
type Dispatcher interface {
	// Dispatch sends req over the connection or protocol described by
	// a and returns the response. It must take ownership of any
	// negotiated connection in a, and must fail with a
	// *request.TimeoutError if a's timeout elapses.
	Dispatch(req *http.Request, a dispatch.Attempt) (*http.Response, error)
}

var (
	emptyHandlers     = HandlerGroup{}
	defaultDispatcher = dispatch.New()
	defaultNegotiator = &alpn.Negotiator{}
)

// DefaultJar is the fallback cookie jar for clients whose Jar field is
// nil. It is shared by every such client in the process, so tests and
// callers needing isolated cookie state should set Jar to their own
// cookie.NewJar().
var DefaultJar = cookie.NewJar()

// A Client is an HTTP client which follows redirects, retries failed
// attempts and keeps cookies. Its zero value is a valid configuration.
//
// The zero value client sends requests with a shared default
// dispatch.Dispatcher, negotiates the protocol of https requests with a
// zero alpn.Negotiator, keeps cookies in DefaultJar, uses
// timeout.DefaultPolicy as the timeout policy and request.DefaultConfig
// as the configuration of the plans it creates.
//
// Client is safe for concurrent use by multiple goroutines. Clients
// should be reused instead of created as needed, as the Dispatcher
// caches connections.
//
// Unlike the Go standard HTTP client, Client.Do consumes a request.Plan
// which describes a logical request and the policies governing it: how
// redirects are followed, how failed attempts are retried, whether
// cookies and credentials are sent and whether the response body is
// read before Do returns. A logical request is sent as one or more
// hops. Each hop is negotiated, prepared, dispatched and examined in
// turn, and either ends the logical request or produces the plan of the
// next hop.
type Client struct {
	// Dispatcher sends the requests. If nil, a shared default
	// dispatch.Dispatcher is used.
	Dispatcher Dispatcher
	// Negotiator negotiates the protocol of https requests. If nil, a
	// zero alpn.Negotiator is used.
	Negotiator *alpn.Negotiator
	// Jar stores cookies by origin. If nil, DefaultJar is used.
	Jar *cookie.Jar
	// TimeoutPolicy specifies how to set timeouts on individual request
	// attempts.
	//
	// If TimeoutPolicy is nil, timeout.DefaultPolicy is used.
	TimeoutPolicy timeout.Policy
	// Handlers allows custom handler chains to be invoked when
	// designated events occur during execution of a request plan.
	//
	// If Handlers is nil, no custom handlers will be run.
	Handlers *HandlerGroup
	// Limiter, if not nil, is waited on before every attempt.
	Limiter *rate.Limiter
	// Jitter is the randomness source of the random-log backoff. If nil,
	// a shared source is used.
	Jitter *retry.Jitter
	// Clock measures retry and redirect waits and cookie ages. If nil,
	// the system clock is used.
	Clock clock.Clock
	// Config is the configuration of the plans the client creates in
	// Get, Head, Post, PostForm and Stream. If nil,
	// request.DefaultConfig is used. Plans passed to Do carry their own
	// configuration.
	Config *request.Config

	opts []request.Option
}

// Do executes an HTTP request plan and returns the results.
//
// The plan is validated first, and a *request.ValidationError is
// returned unwrapped if it is invalid. Otherwise hops are sent until a
// response is accepted or the logical request fails.
//
// A response is accepted if its status is below 400 and it is not a
// redirect to follow. The logical request fails if an attempt fails
// and the retry policy declines to retry it, if a redirect can't be
// followed, or if the plan context ends. A response with a status of
// 400 or above is a failure: it is available from the returned
// *request.StatusError as well as from the Execution.
//
// The returned Execution is never nil. If the plan asks for the body to
// be digested, the body of the final response, whether accepted or not,
// is read before Do returns. Otherwise the caller must close the
// response.
//
// Any returned error other than a *request.ValidationError is of type
// *url.Error. If the plan is thenable, the execution is returned with a
// nil error and its Err field set.
func (c *Client) Do(p *request.Plan) (*request.Execution, error) {
	e := &request.Execution{
		ID:   newID(),
		Plan: p,
	}
	if err := p.Validate(); err != nil {
		e.Err = err
		return e, err
	}

	t := c.transfer(e)
	t.handlers.run(BeforeExecutionStart, e)
	e.Start = t.clock.Now()
	t.run(p)
	e.End = t.clock.Now()
	t.handlers.run(AfterExecutionEnd, e)

	if e.Err != nil && p.Config.Thenable {
		return e, nil
	}
	return e, e.Err
}

// Get issues a GET to the specified URL, using the client's
// configuration and the same policies followed by Do.
func (c *Client) Get(url string) (*request.Execution, error) {
	p, err := c.plan("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(p)
}

// Head issues a HEAD to the specified URL, using the client's
// configuration and the same policies followed by Do.
func (c *Client) Head(url string) (*request.Execution, error) {
	p, err := c.plan("HEAD", url, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(p)
}

// Post issues a POST to the specified URL, using the client's
// configuration and the same policies followed by Do.
//
// The body parameter may be nil for an empty body, or any value
// accepted by request.Transform. If contentType is not empty, it
// replaces the content type derived from the body.
func (c *Client) Post(url, contentType string, body interface{}) (*request.Execution, error) {
	p, err := c.plan("POST", url, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		p.Header.Set("Content-Type", contentType)
	}
	return c.Do(p)
}

// PostForm issues a POST to the specified URL, with data's keys and
// values URL-encoded as the request body.
//
// The Content-Type header is set to application/x-www-form-urlencoded.
func (c *Client) PostForm(url string, data url.Values) (*request.Execution, error) {
	return c.Post(url, request.TypeForm, data)
}

// Stream executes p without following redirects, retrying or digesting
// the body, and returns as soon as the first response is received. The
// caller reads the live body through the execution's response and
// must close it.
//
// Unless p sets a content type, a request body is sent as
// application/octet-stream.
func (c *Client) Stream(p *request.Plan) (*request.Execution, error) {
	return c.Do(streamPlan(p))
}

// Extend returns a copy of c whose Get, Head, Post, PostForm apply opts
// to the plans they create, after any options c already applies. The
// copy shares the dispatcher, jar and handlers of c.
func (c *Client) Extend(opts ...request.Option) *Client {
	c2 := new(Client)
	*c2 = *c
	c2.opts = append(append([]request.Option(nil), c.opts...), opts...)
	return c2
}

// CloseIdleConnections invokes the same method on the client's
// dispatcher.
//
// If the dispatcher has no CloseIdleConnections method, this method
// does nothing.
func (c *Client) CloseIdleConnections() {
	if ic, ok := c.dispatcher().(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}

func (c *Client) plan(method, url string, body interface{}) (*request.Plan, error) {
	cfg := request.DefaultConfig()
	if c.Config != nil {
		cfg = c.Config.Clone()
	}
	return request.NewPlanWithConfig(context.Background(), cfg, method, url, body, c.opts...)
}

func (c *Client) dispatcher() Dispatcher {
	if c.Dispatcher == nil {
		return defaultDispatcher
	}
	return c.Dispatcher
}

func (c *Client) transfer(e *request.Execution) *transfer {
	t := &transfer{
		e:          e,
		dispatcher: c.dispatcher(),
		negotiator: c.Negotiator,
		jar:        c.Jar,
		policy:     c.TimeoutPolicy,
		handlers:   c.Handlers,
		limiter:    c.Limiter,
		jitter:     c.Jitter,
		clock:      c.Clock,
	}
	if t.negotiator == nil {
		t.negotiator = defaultNegotiator
	}
	if t.jar == nil {
		t.jar = DefaultJar
	}
	if t.policy == nil {
		t.policy = timeout.DefaultPolicy
	}
	if t.handlers == nil {
		t.handlers = &emptyHandlers
	}
	if t.clock == nil {
		t.clock = clock.New()
	}
	return t
}

func urlErrorWrap(p *request.Plan, err error) error {
	if _, ok := err.(*url.Error); ok {
		return err
	}

	return &url.Error{
		Op:  urlErrorOp(p.Method),
		URL: p.URL.String(),
		Err: err,
	}
}

// urlErrorOp is lifted verbatim from net/http/client.go
func urlErrorOp(method string) string {
	if method == "" {
		return "Get"
	}
	return method[:1] + strings.ToLower(method[1:])
}
