// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	urlpkg "net/url"
	"regexp"
	"strings"

	"golang.org/x/net/http/httpguts"
)

var (
	template, _ = http.NewRequest("GET", "", nil)
)

const (
	nilCtxMsg = "hopper/request: nil context"
)

// A Plan describes one hop of a logical HTTP request: the request to
// send, and the resolved Config governing how the hop is sent, how its
// response is handled and whether it is retried.
//
// A Plan is derived, never mutated in place, when the client follows a
// redirect: the next hop gets a Clone of the Plan with its URL, method,
// body and Config updated.
type Plan struct {
	// Method specifies the HTTP method (GET, POST, PUT, etc.).
	Method string

	// URL specifies the URL to access.
	URL *urlpkg.URL

	// Header contains the request header fields to be sent.
	Header http.Header

	// Body is the request body value, as accepted by Transform.
	Body interface{}

	// Cookies are caller-supplied cookies. Before the first hop they
	// are merged into the cookie jar for the target origin without
	// overwriting cookies already present there.
	Cookies map[string]string

	// Config is the resolved configuration of the hop.
	Config Config

	// Redirected is true if the Plan is the target of a redirect.
	Redirected bool

	// Pseudo holds the HTTP/2 request pseudo-headers (":method",
	// ":scheme", ":authority" and ":path"). It is computed by the client
	// just before an HTTP/2 hop is sent and is nil otherwise. It is for
	// inspection by event handlers only: the HTTP/2 transport writes the
	// wire pseudo-headers itself and never reads this field.
	Pseudo map[string]string

	// EndStream is set by the client just before an HTTP/2 hop is sent
	// if the request carries no body, meaning the HEADERS frame ends
	// the stream. Like Pseudo it is informational; changing it has no
	// effect on the frames sent.
	EndStream bool

	params urlpkg.Values
	ctx    context.Context
}

// NewPlan creates a new Plan, with the default Config, given a method,
// URL, optional body and options.
//
// If the method is empty, GET is assumed. The body may be any value
// Transform accepts; an io.Reader is wrapped as a single-use Stream.
//
// NewPlan wraps NewPlanWithConfig using context.Background and
// DefaultConfig.
func NewPlan(method, url string, body interface{}, opts ...Option) (*Plan, error) {
	return NewPlanWithConfig(context.Background(), DefaultConfig(), method, url, body, opts...)
}

// NewPlanWithContext creates a new Plan, with the default Config, given
// a context, method, URL, optional body and options.
func NewPlanWithContext(ctx context.Context, method, url string, body interface{}, opts ...Option) (*Plan, error) {
	return NewPlanWithConfig(ctx, DefaultConfig(), method, url, body, opts...)
}

// NewPlanWithConfig creates a new Plan given a context, a Config holding
// defaults, a method, URL, optional body and options. The options are
// applied on top of the defaults in cfg.
//
// A relative url is resolved against cfg.BaseURL. The resulting Plan is
// validated, and a *ValidationError is returned if it can't be sent as
// described.
func NewPlanWithConfig(ctx context.Context, cfg Config, method, url string, body interface{}, opts ...Option) (*Plan, error) {
	if ctx == nil {
		return nil, errors.New(nilCtxMsg)
	}
	if method == "" {
		method = "GET"
	}
	if !validMethod(method) {
		return nil, fmt.Errorf("hopper/request: invalid method %q", method)
	}
	if r, ok := body.(io.Reader); ok {
		body = NewStream(r)
	}
	p := &Plan{
		ctx:    ctx,
		Method: strings.ToUpper(method),
		Header: cfg.Header.Clone(),
		Body:   body,
		Config: cfg.Clone(),
	}
	if p.Header == nil {
		p.Header = make(http.Header)
	}
	for _, opt := range opts {
		opt(p)
	}
	u, err := resolveURL(p.Config, url)
	if err != nil {
		return nil, err
	}
	if len(p.params) > 0 {
		q := u.Query()
		for k, vs := range p.params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		p.params = nil
	}
	p.URL = u
	if err = p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

var slashes = regexp.MustCompile(`/{2,}`)

func resolveURL(cfg Config, raw string) (*urlpkg.URL, error) {
	u, err := urlpkg.Parse(raw)
	if err != nil {
		return nil, err
	}
	if cfg.BaseURL != "" && !u.IsAbs() {
		base, err := urlpkg.Parse(cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		u = base.ResolveReference(u)
	}
	u.Host = removeEmptyPort(u.Host)
	if cfg.TrimTrailingSlashes {
		u.Path = slashes.ReplaceAllString(u.Path, "/")
		u.RawPath = ""
	}
	if cfg.StripTrailingSlash && len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = ""
	}
	return u, nil
}

// Context returns the plan's context. To change the context, use
// WithContext.
//
// The returned context is always non-nil; it defaults to the background
// context.
func (p *Plan) Context() context.Context {
	if p.ctx != nil {
		return p.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of p with its context changed
// to ctx. The provided ctx must be non-nil.
func (p *Plan) WithContext(ctx context.Context) *Plan {
	if ctx == nil {
		panic(nilCtxMsg)
	}
	p2 := new(Plan)
	*p2 = *p
	p2.ctx = ctx
	return p2
}

// Clone returns a deep copy of p, sharing only the context and the body
// value.
func (p *Plan) Clone() *Plan {
	p2 := new(Plan)
	*p2 = *p
	if p.URL != nil {
		u := *p.URL
		if p.URL.User != nil {
			u.User = new(urlpkg.Userinfo)
			*u.User = *p.URL.User
		}
		p2.URL = &u
	}
	p2.Header = p.Header.Clone()
	if p.Cookies != nil {
		p2.Cookies = make(map[string]string, len(p.Cookies))
		for k, v := range p.Cookies {
			p2.Cookies[k] = v
		}
	}
	p2.Config = p.Config.Clone()
	p2.Pseudo = nil
	p2.EndStream = false
	return p2
}

// AddCookie adds a caller-supplied cookie to the plan.
func (p *Plan) AddCookie(name, value string) {
	if p.Cookies == nil {
		p.Cookies = make(map[string]string)
	}
	p.Cookies[name] = value
}

// SetBasicAuth sets the plan's Authorization header to use HTTP
// Basic Authentication with the provided username and password.
//
// With HTTP Basic Authentication the provided username and password
// are not encrypted.
func (p *Plan) SetBasicAuth(username, password string) {
	p.Header.Set("Authorization", "Basic "+basicAuth(username, password))
}

// Consumed reports whether the plan body is a single-use stream that
// an earlier attempt has already sent.
func (p *Plan) Consumed() bool {
	return consumed(p.Body)
}

// Streaming reports whether the plan body is a single-use stream.
func (p *Plan) Streaming() bool {
	return isStream(p.Body)
}

// ToRequest converts the plan to a new HTTP request with the given
// context, transforming the body into its wire form. Because the
// transformation consumes a stream body, ToRequest may only be called
// once per attempt.
func (p *Plan) ToRequest(ctx context.Context) (*http.Request, error) {
	r := template.WithContext(ctx)
	r.Method = p.Method
	r.URL = p.URL
	r.Host = p.URL.Host
	r.Header = p.Header.Clone()
	w, err := Transform(p.Body, r.Header)
	if err != nil {
		return nil, err
	}
	switch {
	case w.Reader == nil:
	case w.Length == 0:
		r.Body = http.NoBody
		r.GetBody = func() (io.ReadCloser, error) { return http.NoBody, nil }
	default:
		rc, ok := w.Reader.(io.ReadCloser)
		if !ok {
			rc = io.NopCloser(w.Reader)
		}
		r.Body = rc
		r.GetBody = w.GetBody
		r.ContentLength = w.Length
	}
	return r, nil
}

func basicAuth(username, password string) string {
	auth := username + ":" + password
	return base64.StdEncoding.EncodeToString([]byte(auth))
}

// validMethod reports whether method is an RFC 7230 token. The empty
// string is interpreted as GET before this is called.
func validMethod(method string) bool {
	return strings.IndexFunc(method, isNotToken) == -1
}

func isNotToken(r rune) bool {
	return !httpguts.IsTokenRune(r)
}

func hasPort(s string) bool { return strings.LastIndex(s, ":") > strings.LastIndex(s, "]") }

// removeEmptyPort strips the empty port in "host:" to "host".
func removeEmptyPort(host string) string {
	if hasPort(host) {
		return strings.TrimSuffix(host, ":")
	}
	return host
}
