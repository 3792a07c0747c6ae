// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package hopper

import (
	"net/url"

	"github.com/gogama/hopper/request"
	"github.com/gogama/hopper/retry"
)

// A Doer executes request plans. Client is the standard Doer; any other
// implementation must follow the contract of Client.Do, including
// returning a non-nil Execution whenever the plan is valid.
//
// Inflate turns any Doer into an Executor.
type Doer interface {
	Do(p *request.Plan) (*request.Execution, error)
}

// A Getter sends a GET for a URL as one logical request, like
// Client.Get. The Get function emulates it with any Doer.
type Getter interface {
	Get(url string) (*request.Execution, error)
}

// A Header sends a HEAD for a URL as one logical request, like
// Client.Head. The Head function emulates it with any Doer.
type Header interface {
	Head(url string) (*request.Execution, error)
}

// A Poster sends a POST with a body as one logical request, like
// Client.Post. The body may be nil or any value request.Transform
// accepts. The Post function emulates it with any Doer.
type Poster interface {
	Post(url, contentType string, body interface{}) (*request.Execution, error)
}

// A FormPoster sends a POST with an URL-encoded form body, like
// Client.PostForm. The PostForm function emulates it with any Doer.
type FormPoster interface {
	PostForm(url string, data url.Values) (*request.Execution, error)
}

// A Streamer sends a request plan as a single hop and returns as soon
// as the response header arrives, leaving the live body to the caller,
// like Client.Stream. The Stream function emulates it with any Doer.
type Streamer interface {
	Stream(p *request.Plan) (*request.Execution, error)
}

// An IdleCloser can close the idle keep-alive connections it holds.
// Connections in use are not interrupted.
type IdleCloser interface {
	CloseIdleConnections()
}

// An Executor has every method of Client.
type Executor interface {
	Doer
	Getter
	Header
	Poster
	FormPoster
	Streamer
	IdleCloser
}

// Get sends a GET for url with d, using a plan with the default
// configuration.
func Get(d Doer, url string) (*request.Execution, error) {
	p, err := request.NewPlan("GET", url, nil)
	if err != nil {
		return nil, err
	}
	return d.Do(p)
}

// Head sends a HEAD for url with d, using a plan with the default
// configuration.
func Head(d Doer, url string) (*request.Execution, error) {
	p, err := request.NewPlan("HEAD", url, nil)
	if err != nil {
		return nil, err
	}
	return d.Do(p)
}

// Post sends a POST of body for url with d, using a plan with the
// default configuration. If contentType is not empty, it replaces the
// content type derived from the body.
func Post(d Doer, url, contentType string, body interface{}) (*request.Execution, error) {
	p, err := request.NewPlan("POST", url, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		p.Header.Set("Content-Type", contentType)
	}
	return d.Do(p)
}

// PostForm sends a POST of the URL-encoded data for url with d.
func PostForm(d Doer, url string, data url.Values) (*request.Execution, error) {
	return Post(d, url, request.TypeForm, data)
}

// Stream uses the specified Doer to execute p as a streaming request:
// redirects are not followed, failed attempts are not retried and the
// response body is left for the caller to read and close.
//
// Unless p sets a content type, a request body is sent as
// application/octet-stream.
func Stream(d Doer, p *request.Plan) (*request.Execution, error) {
	if s, ok := d.(Streamer); ok {
		return s.Stream(p)
	}
	return d.Do(streamPlan(p))
}

func streamPlan(p *request.Plan) *request.Plan {
	s := p.Clone()
	s.Config.Redirect = request.RedirectManual
	s.Config.Retry = retry.Never()
	s.Config.Digest = false
	if s.Body != nil && s.Header.Get("Content-Type") == "" {
		s.Header.Set("Content-Type", request.TypeOctetStream)
	}
	return s
}

// Inflate returns d as an Executor, wrapping it if it lacks some of the
// methods. The missing methods are emulated with Get, Head, Post,
// PostForm and Stream, and CloseIdleConnections does nothing unless d
// is an IdleCloser.
func Inflate(d Doer) Executor {
	if d == nil {
		panic("hopper: nil doer")
	}

	if e, ok := d.(Executor); ok {
		return e
	}

	return inflated{d}
}

type inflated struct {
	doer Doer
}

func (i inflated) Do(p *request.Plan) (*request.Execution, error) {
	return i.doer.Do(p)
}

func (i inflated) Get(url string) (*request.Execution, error) {
	return Get(i.doer, url)
}

func (i inflated) Head(url string) (*request.Execution, error) {
	return Head(i.doer, url)
}

func (i inflated) Post(url, contentType string, body interface{}) (*request.Execution, error) {
	return Post(i.doer, url, contentType, body)
}

func (i inflated) PostForm(url string, data url.Values) (*request.Execution, error) {
	return PostForm(i.doer, url, data)
}

func (i inflated) Stream(p *request.Plan) (*request.Execution, error) {
	return Stream(i.doer, p)
}

func (i inflated) CloseIdleConnections() {
	if ic, ok := i.doer.(IdleCloser); ok {
		ic.CloseIdleConnections()
	}
}
