// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package dispatch

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gogama/hopper/alpn"
	"github.com/gogama/hopper/request"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/net/http2"
)

// Protocol versions reported in http.Response.Proto.
const (
	ProtoHTTP11 = "HTTP/1.1"
	ProtoHTTP2  = "HTTP/2.0"
)

// An Attempt describes how to dispatch one request.
type Attempt struct {
	// Conn, if not nil, is a negotiated connection to send the request
	// over. The Dispatcher takes ownership of it.
	Conn *alpn.Conn
	// H2 selects HTTP/2 when Conn is nil: over TLS for https requests,
	// and h2c for http requests.
	H2 bool
	// Timeout bounds the attempt, including reading the response body.
	// Zero or less means no timeout.
	Timeout time.Duration
}

// A Dispatcher sends requests. It is safe for concurrent use by multiple
// goroutines.
type Dispatcher struct {
	h1  *http.Transport
	h2  *http2.Transport
	h2c *http2.Transport
}

// An Option configures a Dispatcher.
type Option func(d *dispatcherConfig)

type dispatcherConfig struct {
	tlsConfig *tls.Config
	dialer    *net.Dialer
	maxIdle   int
}

// WithTLSConfig sets the TLS configuration used by the HTTP/1.1 and
// HTTP/2 transports.
func WithTLSConfig(c *tls.Config) Option {
	return func(d *dispatcherConfig) {
		d.tlsConfig = c
	}
}

// WithDialer sets the dialer used to open connections.
func WithDialer(dialer *net.Dialer) Option {
	return func(d *dispatcherConfig) {
		d.dialer = dialer
	}
}

// WithMaxIdleConnsPerHost sets the idle connection pool size per host
// of the HTTP/1.1 transport.
func WithMaxIdleConnsPerHost(n int) Option {
	return func(d *dispatcherConfig) {
		d.maxIdle = n
	}
}

// New constructs a Dispatcher.
func New(opts ...Option) *Dispatcher {
	cfg := dispatcherConfig{
		dialer:  &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second},
		maxIdle: 10,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	dialer := cfg.dialer
	return &Dispatcher{
		h1: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			TLSClientConfig:     cfg.tlsConfig,
			TLSHandshakeTimeout: 10 * time.Second,
			MaxIdleConnsPerHost: cfg.maxIdle,
			IdleConnTimeout:     90 * time.Second,
			// Content decoding is done by the caller, and HTTP/2 is only
			// spoken when asked for.
			DisableCompression: true,
			TLSNextProto:       map[string]func(string, *tls.Conn) http.RoundTripper{},
		},
		h2: &http2.Transport{
			TLSClientConfig:    cfg.tlsConfig,
			DisableCompression: true,
		},
		h2c: &http2.Transport{
			AllowHTTP:          true,
			DisableCompression: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dialer.DialContext(ctx, network, addr)
			},
		},
	}
}

// CloseIdleConnections closes idle pooled connections.
func (d *Dispatcher) CloseIdleConnections() {
	d.h1.CloseIdleConnections()
	d.h2.CloseIdleConnections()
	d.h2c.CloseIdleConnections()
}

// Dispatch sends req as described by a and returns the response. The
// context of req is the parent of the attempt context: if it is
// cancelled the attempt fails with its error, while if the attempt
// timeout elapses first the attempt fails with a *request.TimeoutError.
//
// The caller must close the response body, which also releases the
// attempt timer.
func (d *Dispatcher) Dispatch(req *http.Request, a Attempt) (*http.Response, error) {
	parent := req.Context()
	var ctx context.Context
	var cancel context.CancelFunc
	var timeoutErr error
	if a.Timeout > 0 {
		timeoutErr = &request.TimeoutError{After: a.Timeout}
		ctx, cancel = context.WithTimeoutCause(parent, a.Timeout, timeoutErr)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	req = req.WithContext(ctx)

	var resp *http.Response
	var err error
	switch {
	case a.Conn != nil && a.Conn.H2():
		resp, err = d.overH2Conn(req, a.Conn)
	case a.Conn != nil:
		resp, err = overH1Conn(req, a.Conn)
	case a.H2 && req.URL.Scheme == "http":
		resp, err = d.h2c.RoundTrip(req)
	case a.H2:
		resp, err = d.h2.RoundTrip(req)
	default:
		resp, err = d.h1.RoundTrip(req)
	}

	if err != nil {
		err = attemptErr(ctx, parent, err)
		cancel()
		return nil, err
	}
	resp.Body = &attemptBody{
		ReadCloser: resp.Body,
		ctx:        ctx,
		parent:     parent,
		cancel:     cancel,
	}
	return resp, nil
}

func (d *Dispatcher) overH2Conn(req *http.Request, conn *alpn.Conn) (*http.Response, error) {
	cc, err := d.h2.NewClientConn(conn)
	if err != nil {
		_ = conn.Close()
		return nil, pkgerrors.Wrap(err, "h2 client connection")
	}
	resp, err := cc.RoundTrip(req)
	if err != nil {
		_ = cc.Close()
		return nil, err
	}
	resp.Body = &closeAlso{ReadCloser: resp.Body, closer: cc}
	return resp, nil
}

func overH1Conn(req *http.Request, conn *alpn.Conn) (*http.Response, error) {
	stop := context.AfterFunc(req.Context(), func() {
		_ = conn.Close()
	})
	fail := func(err error) (*http.Response, error) {
		stop()
		_ = conn.Close()
		return nil, err
	}

	req.Close = true
	if err := req.Write(conn); err != nil {
		return fail(err)
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		return fail(err)
	}
	resp.Body = &closeAlso{ReadCloser: resp.Body, closer: conn, stop: stop}
	return resp, nil
}

// attemptErr maps err to the attempt timeout error or the parent
// context error when either explains the failure.
func attemptErr(ctx, parent context.Context, err error) error {
	if ctx.Err() == nil {
		return err
	}
	if perr := parent.Err(); perr != nil {
		return perr
	}
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return err
}

type attemptBody struct {
	io.ReadCloser
	ctx    context.Context
	parent context.Context
	cancel context.CancelFunc
	once   sync.Once
}

func (b *attemptBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err != nil && err != io.EOF {
		err = attemptErr(b.ctx, b.parent, err)
	}
	return n, err
}

func (b *attemptBody) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(b.cancel)
	return err
}

type closeAlso struct {
	io.ReadCloser
	closer io.Closer
	stop   func() bool
	once   sync.Once
}

func (b *closeAlso) Close() error {
	err := b.ReadCloser.Close()
	b.once.Do(func() {
		if b.stop != nil {
			b.stop()
		}
		_ = b.closer.Close()
	})
	return err
}
