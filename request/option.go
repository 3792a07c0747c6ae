// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gogama/hopper/retry"
)

// An Option adjusts a Plan while it is being created. Options are
// applied in order after the defaults, so a later Option wins.
type Option func(p *Plan)

// WithHeader sets a request header, replacing any default value.
func WithHeader(key, value string) Option {
	return func(p *Plan) {
		p.Header.Set(key, value)
	}
}

// WithHeaders sets every header in h, replacing any default values.
func WithHeaders(h http.Header) Option {
	return func(p *Plan) {
		for k, vs := range h {
			p.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
		}
	}
}

// WithoutHeader removes a header, including a default one.
func WithoutHeader(key string) Option {
	return func(p *Plan) {
		p.Header.Del(key)
	}
}

// WithCookies supplies cookies to merge into the cookie jar for the
// request's origin.
func WithCookies(cookies map[string]string) Option {
	return func(p *Plan) {
		for name, value := range cookies {
			p.AddCookie(name, value)
		}
	}
}

// WithoutCookies disables the cookie jar for the request.
func WithoutCookies() Option {
	return func(p *Plan) {
		p.Config.Cookies = false
	}
}

// WithCredentials sets the credentials mode.
func WithCredentials(c Credentials) Option {
	return func(p *Plan) {
		p.Config.Credentials = c
	}
}

// WithRedirect sets the redirect mode.
func WithRedirect(m RedirectMode) Option {
	return func(p *Plan) {
		p.Config.Redirect = m
	}
}

// WithFollow sets the hop budget. See Config.Follow.
func WithFollow(n int) Option {
	return func(p *Plan) {
		p.Config.Follow = n
	}
}

// WithRetry sets the retry policy.
func WithRetry(policy retry.Policy) Option {
	return func(p *Plan) {
		p.Config.Retry = policy.Clone()
	}
}

// WithAttempts sets the number of retries, keeping the rest of the
// retry policy.
func WithAttempts(n int) Option {
	return func(p *Plan) {
		p.Config.Retry.Attempts = n
	}
}

// WithTimeout sets the attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Plan) {
		p.Config.Timeout = d
	}
}

// WithDigest sets whether the response body is read before returning.
func WithDigest(digest bool) Option {
	return func(p *Plan) {
		p.Config.Digest = digest
	}
}

// WithParse sets whether a digested body is decoded by content type.
func WithParse(parse bool) Option {
	return func(p *Plan) {
		p.Config.Parse = parse
	}
}

// WithThenable sets whether failures are returned as values.
func WithThenable(thenable bool) Option {
	return func(p *Plan) {
		p.Config.Thenable = thenable
	}
}

// WithH2 sets whether HTTP/2 is forced.
func WithH2(h2 bool) Option {
	return func(p *Plan) {
		p.Config.H2 = h2
	}
}

// WithAllowDowngrade sets whether https to http redirects are followed.
func WithAllowDowngrade(allow bool) Option {
	return func(p *Plan) {
		p.Config.AllowDowngrade = allow
	}
}

// WithBaseURL sets the URL relative request URLs are resolved against.
func WithBaseURL(base string) Option {
	return func(p *Plan) {
		p.Config.BaseURL = base
	}
}

// WithParams appends query parameters to the request URL.
func WithParams(params url.Values) Option {
	return func(p *Plan) {
		if p.params == nil {
			p.params = make(url.Values)
		}
		for k, vs := range params {
			p.params[k] = append(p.params[k], vs...)
		}
	}
}

// WithConfig replaces the whole Config, discarding defaults and the
// effect of earlier options on it.
func WithConfig(cfg Config) Option {
	return func(p *Plan) {
		p.Config = cfg.Clone()
	}
}
