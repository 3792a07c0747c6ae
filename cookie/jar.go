// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cookie

import (
	"net"
	"net/url"
	"strings"
	"sync"

	"github.com/benbjohnson/clock"
)

// A Jar holds one Store per origin.
type Jar struct {
	clock  clock.Clock
	lock   sync.RWMutex
	stores map[string]*Store
}

// An Option configures a Jar.
type Option func(j *Jar)

// WithClock makes the Jar, and every Store it creates, measure cookie
// lifetimes using c instead of the wall clock.
func WithClock(c clock.Clock) Option {
	return func(j *Jar) {
		j.clock = c
	}
}

// NewJar constructs an empty Jar.
func NewJar(opts ...Option) *Jar {
	j := &Jar{
		clock:  clock.New(),
		stores: make(map[string]*Store),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Store returns the Store for origin, creating an empty one if none
// exists yet.
func (j *Jar) Store(origin string) *Store {
	j.lock.RLock()
	s := j.stores[origin]
	j.lock.RUnlock()
	if s != nil {
		return s
	}

	j.lock.Lock()
	defer j.lock.Unlock()
	if s = j.stores[origin]; s == nil {
		s = newStore(j.clock)
		j.stores[origin] = s
	}
	return s
}

// Lookup returns the Store for origin if one exists.
func (j *Jar) Lookup(origin string) (*Store, bool) {
	j.lock.RLock()
	defer j.lock.RUnlock()
	s, ok := j.stores[origin]
	return s, ok
}

// Origins returns the origins that currently have a Store, in no
// particular order.
func (j *Jar) Origins() []string {
	j.lock.RLock()
	defer j.lock.RUnlock()
	origins := make([]string, 0, len(j.stores))
	for origin := range j.stores {
		origins = append(origins, origin)
	}
	return origins
}

// Clear empties the Jar, cancelling every pending expiry timer.
func (j *Jar) Clear() {
	j.lock.Lock()
	stores := j.stores
	j.stores = make(map[string]*Store)
	j.lock.Unlock()

	for _, s := range stores {
		s.Clear()
	}
}

// Origin returns the origin of u in the form scheme://host:port, with
// scheme and host lower-cased and the default port made explicit for
// http and https.
func Origin(u *url.URL) string {
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	if port == "" {
		switch scheme {
		case "https":
			port = "443"
		case "http":
			port = "80"
		}
	}
	if port == "" {
		return scheme + "://" + host
	}
	return scheme + "://" + net.JoinHostPort(host, port)
}

// SameOrigin reports whether a and b share an origin.
func SameOrigin(a, b *url.URL) bool {
	return Origin(a) == Origin(b)
}
