// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package hopper

import (
	"net/http"
	"sort"
	"strings"

	"github.com/gogama/hopper/codec"
	"github.com/gogama/hopper/cookie"
	"github.com/gogama/hopper/request"
)

// preflight derives the plan actually sent for a hop from the hop plan
// p. The hop plan itself is not modified, except that caller-supplied
// cookies of an initial hop are merged into jar.
//
// The derived plan has jar cookies attached, credentials stripped if
// the credentials mode is request.Omit, canonical header names, a pruned
// Accept-Encoding and, if h2 is true, the HTTP/2 pseudo-headers.
func preflight(p *request.Plan, jar *cookie.Jar, h2 bool) *request.Plan {
	q := p.Clone()
	q.Header = canonicalHeader(q.Header)

	if q.Config.Credentials == request.Omit {
		q.Header.Del("Authorization")
		q.Header.Del("Cookie")
		q.URL.User = nil
		q.Config.Cookies = false
	}

	if q.Config.Cookies && jar != nil {
		store := jar.Store(cookie.Origin(q.URL))
		if !q.Redirected && len(q.Cookies) > 0 {
			store.Merge(q.Cookies)
		}
		if v := store.Header(); v != "" {
			q.Header.Set("Cookie", v)
		}
	}

	if v := q.Header.Get("Accept-Encoding"); v != "" {
		if pruned := codec.Prune(v); pruned != "" {
			q.Header.Set("Accept-Encoding", pruned)
		} else {
			q.Header.Del("Accept-Encoding")
		}
	}

	if h2 {
		q.EndStream = q.Method == http.MethodGet || q.Method == http.MethodHead
		q.Pseudo = map[string]string{
			":method":    q.Method,
			":scheme":    q.URL.Scheme,
			":authority": q.URL.Host,
			":path":      q.URL.RequestURI(),
		}
	}

	return q
}

// canonicalHeader returns a copy of h with canonical names. Names are
// visited in sorted order, so when two names collide the values of the
// name sorting last win. Pseudo-header names are dropped: HTTP/2
// pseudo-headers are derived from the request by the transport.
func canonicalHeader(h http.Header) http.Header {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)

	c := make(http.Header, len(h))
	for _, name := range names {
		if strings.HasPrefix(name, ":") {
			continue
		}
		c[http.CanonicalHeaderKey(name)] = append([]string(nil), h[name]...)
	}
	return c
}
