// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package hopper

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gogama/hopper/cookie"
	"github.com/gogama/hopper/request"
	"github.com/gogama/hopper/retry"
)

// An action is what the transfer loop does after a hop.
type action int

const (
	accept action = iota
	redirect
	again
	fail
)

// A step is the outcome of one hop. For redirect and again, plan is the
// plan of the next hop and wait is the delay before sending it.
type step struct {
	action action
	plan   *request.Plan
	wait   time.Duration
	err    error
}

// redirectStatus reports whether code is one of the followable
// redirect status codes.
func redirectStatus(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// postflight decides what to do with the response r received for the
// hop plan p: accept it, fail with it, or follow it to a new hop.
//
// Set-Cookie ingestion has already been done when postflight runs.
func postflight(p *request.Plan, r *request.Response, now time.Time) step {
	location := r.Header.Get("Location")
	if p.Config.Follow > 0 && r.StatusCode >= 300 && r.StatusCode < 400 && location != "" {
		if !redirectStatus(r.StatusCode) {
			return step{action: fail, err: &request.Error{Message: request.MsgRedirectStatus, Response: r}}
		}
		switch p.Config.Redirect {
		case request.RedirectError:
			return step{action: fail, err: &request.Error{Message: request.MsgUnexpectedRedirect, Response: r}}
		case request.RedirectFollow:
			return follow(p, r, location, now)
		}
	}

	if r.StatusCode >= 400 {
		return step{action: fail, err: &request.StatusError{Response: r}}
	}
	return step{action: accept}
}

// follow builds the next hop of a redirect from p to location.
func follow(p *request.Plan, r *request.Response, location string, now time.Time) step {
	u, err := p.URL.Parse(location)
	if err != nil {
		return step{action: fail, err: &request.Error{Message: request.MsgRedirectLocation, Cause: err, Response: r}}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return step{action: fail, err: &request.Error{Message: request.MsgRedirectScheme, Response: r}}
	}
	if p.URL.Scheme == "https" && u.Scheme == "http" && !p.Config.AllowDowngrade {
		return step{action: fail, err: &request.Error{Message: request.MsgDowngrade, Response: r}}
	}

	next := p.Clone()
	if !cookie.SameOrigin(p.URL, u) {
		// A new origin may not speak HTTP/2; https targets renegotiate.
		next.Config.H2 = false
		if p.Config.Credentials != request.Include {
			next.Config.Credentials = request.Omit
		}
	}

	code := r.StatusCode
	if (code == http.StatusTemporaryRedirect || code == http.StatusPermanentRedirect) && p.Consumed() {
		return step{action: fail, err: &request.Error{Message: request.MsgRedirectStream, Response: r}}
	}
	if ((code == http.StatusMovedPermanently || code == http.StatusFound) && p.Method == http.MethodPost) ||
		(code == http.StatusSeeOther && p.Method != http.MethodGet && p.Method != http.MethodHead) {
		next.Method = http.MethodGet
		next.Body = nil
		for name := range next.Header {
			if strings.HasPrefix(http.CanonicalHeaderKey(name), "Content-") {
				delete(next.Header, name)
			}
		}
	}

	next.Config.Follow--
	next.Redirected = true
	next.URL = u

	var wait time.Duration
	if code == http.StatusMovedPermanently {
		var err error
		wait, _, err = retry.Hint(r.Header, now, p.Config.Retry.MaxRetryAfter)
		if err != nil {
			return step{action: fail, err: &request.Error{Message: request.MsgMaxRetryAfter, Cause: err, Response: r}}
		}
	}

	return step{action: redirect, plan: next, wait: wait}
}

// discard drains a little of the body of a response which is not going
// to be read, so the connection may be reused, and closes it.
func discard(r *request.Response) {
	if r == nil || r.Raw() == nil {
		return
	}
	const maxDrain = 4 << 10
	body := r.Raw().Body
	_, _ = io.CopyN(io.Discard, body, maxDrain)
	_ = body.Close()
}
