// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"net/http"
	"time"

	"github.com/gogama/hopper/codec"
	"github.com/gogama/hopper/retry"
)

// Credentials controls whether credentials (the Authorization header,
// cookies and URL user info) are sent with a request.
type Credentials string

const (
	// Omit never sends credentials.
	Omit Credentials = "omit"
	// SameOrigin sends credentials unless a redirect crossed to a
	// different origin.
	SameOrigin Credentials = "same-origin"
	// Include always sends credentials, even across origins.
	Include Credentials = "include"
)

// RedirectMode controls what happens when a response is a redirect.
type RedirectMode string

const (
	// RedirectFollow follows redirects, up to Config.Follow hops.
	RedirectFollow RedirectMode = "follow"
	// RedirectError fails the request on a redirect.
	RedirectError RedirectMode = "error"
	// RedirectManual returns the redirect response to the caller as-is.
	RedirectManual RedirectMode = "manual"
)

// Config holds the per-request settings which can be given defaults at
// the client level.
//
// The zero Config is not useful. Start from DefaultConfig and change
// what you need.
type Config struct {
	// BaseURL, if set, is the URL relative request URLs are resolved
	// against.
	BaseURL string `koanf:"baseURL" validate:"omitempty,url"`
	// Header holds headers sent with every request. Keys are
	// canonicalized before sending, so any case works.
	Header http.Header `koanf:"headers"`
	// Cookies enables the cookie jar. When disabled, no cookies are
	// attached to requests and Set-Cookie headers are ignored.
	Cookies bool `koanf:"cookies"`
	// Credentials controls whether credentials are sent.
	Credentials Credentials `koanf:"credentials" validate:"required,oneof=omit same-origin include"`
	// Redirect controls how redirect responses are handled.
	Redirect RedirectMode `koanf:"redirect" validate:"required,oneof=follow error manual"`
	// Follow is the number of remaining hops which may be sent. A
	// request with Follow equal to zero fails before it is sent, so
	// Follow set to n allows at most n-1 redirects.
	Follow int `koanf:"follow" validate:"gte=0"`
	// Retry is the retry policy.
	Retry retry.Policy `koanf:"retry"`
	// Timeout bounds each individual attempt. Zero means no timeout.
	Timeout time.Duration `koanf:"timeout" validate:"gte=0"`
	// Digest reads the whole response body before returning.
	Digest bool `koanf:"digest"`
	// Parse decodes a digested body according to its content type.
	Parse bool `koanf:"parse"`
	// Thenable returns failures as an Execution with Err set instead
	// of as an error.
	Thenable bool `koanf:"thenable"`
	// H2 forces HTTP/2. For https URLs the protocol is negotiated
	// whatever H2 says; for http URLs H2 selects cleartext HTTP/2
	// (h2c).
	H2 bool `koanf:"h2"`
	// AllowDowngrade allows following a redirect from https to http.
	AllowDowngrade bool `koanf:"allowDowngrade"`
	// TrimTrailingSlashes collapses repeated slashes in the URL path.
	TrimTrailingSlashes bool `koanf:"trimTrailingSlashes"`
	// StripTrailingSlash removes a trailing slash from the URL path.
	StripTrailingSlash bool `koanf:"stripTrailingSlash"`
}

// DefaultTimeout is the default attempt timeout.
const DefaultTimeout = 300 * time.Second

// DefaultFollow is the default number of hops a request may make.
const DefaultFollow = 20

// DefaultAccept is the default value of the Accept header.
const DefaultAccept = "application/json, text/plain, */*"

// DefaultConfig returns the default Config.
func DefaultConfig() Config {
	r := retry.DefaultPolicy()
	r.MaxRetryAfter = DefaultTimeout
	return Config{
		Header: http.Header{
			"Accept":          {DefaultAccept},
			"Accept-Encoding": {codec.Prune("br, zstd, gzip, deflate, deflate-raw")},
		},
		Cookies:     true,
		Credentials: SameOrigin,
		Redirect:    RedirectFollow,
		Follow:      DefaultFollow,
		Retry:       r,
		Timeout:     DefaultTimeout,
		Digest:      true,
		Parse:       true,
	}
}

// Clone returns a deep copy of c.
func (c Config) Clone() Config {
	c.Header = c.Header.Clone()
	c.Retry = c.Retry.Clone()
	return c
}
