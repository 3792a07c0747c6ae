// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package cookie

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// MaxLifetime caps the lifetime a server may give a cookie.
const MaxLifetime = 400 * 24 * time.Hour

// A Cookie is a name/value pair held in a Store.
type Cookie struct {
	Name  string
	Value string
	// Expires is the zero time for a cookie that lives until the Store
	// is cleared.
	Expires time.Time
}

// A Store holds the cookies of a single origin.
type Store struct {
	clock   clock.Clock
	lock    sync.Mutex
	order   []string
	entries map[string]*entry
}

type entry struct {
	value    string
	deadline time.Time
	timer    *clock.Timer
}

// NewStore constructs an empty Store which uses the wall clock.
func NewStore() *Store {
	return newStore(clock.New())
}

func newStore(c clock.Clock) *Store {
	return &Store{
		clock:   c,
		entries: make(map[string]*entry),
	}
}

// Set stores a cookie that never expires, replacing any cookie of the
// same name and cancelling its expiry timer.
func (s *Store) Set(name, value string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.set(name, value, 0)
}

// SetExpiring stores a cookie which expires after ttl, replacing any
// cookie of the same name. A ttl of zero or less deletes the cookie,
// and a ttl above MaxLifetime is capped.
func (s *Store) SetExpiring(name, value string, ttl time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if ttl <= 0 {
		s.delete(name)
		return
	}
	s.set(name, value, ttl)
}

// Add stores a cookie that never expires only if the Store holds no
// live cookie of the same name. It reports whether the cookie was
// added.
func (s *Store) Add(name, value string) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.live(name); ok {
		return false
	}
	s.set(name, value, 0)
	return true
}

// Merge adds every cookie in m using Add, in sorted name order.
func (s *Store) Merge(m map[string]string) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.Add(name, m[name])
	}
}

// Get returns the value of the named cookie if it is present and not
// expired.
func (s *Store) Get(name string) (string, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	e, ok := s.live(name)
	if !ok {
		return "", false
	}
	return e.value, true
}

// Delete removes the named cookie.
func (s *Store) Delete(name string) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.delete(name)
}

// Len returns the number of live cookies.
func (s *Store) Len() int {
	return len(s.Cookies())
}

// Cookies returns the live cookies in the order their names were first
// stored.
func (s *Store) Cookies() []Cookie {
	s.lock.Lock()
	defer s.lock.Unlock()
	cookies := make([]Cookie, 0, len(s.order))
	for _, name := range append([]string(nil), s.order...) {
		if e, ok := s.live(name); ok {
			cookies = append(cookies, Cookie{Name: name, Value: e.value, Expires: e.deadline})
		}
	}
	return cookies
}

// Map returns the live cookies as a name to value map.
func (s *Store) Map() map[string]string {
	cookies := s.Cookies()
	m := make(map[string]string, len(cookies))
	for _, c := range cookies {
		m[c.Name] = c.Value
	}
	return m
}

// Header formats the live cookies as a Cookie request header value, for
// example "a=1; b=2". It returns the empty string if the Store is
// empty.
func (s *Store) Header() string {
	cookies := s.Cookies()
	var b strings.Builder
	for i, c := range cookies {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(c.Name)
		b.WriteByte('=')
		b.WriteString(c.Value)
	}
	return b.String()
}

// Clear removes every cookie and cancels every expiry timer.
func (s *Store) Clear() {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, e := range s.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
	s.order = nil
	s.entries = make(map[string]*entry)
}

// Ingest stores the cookies of every Set-Cookie header in h. A cookie
// with a Max-Age of zero or less, or an Expires in the past, is deleted.
// Max-Age takes precedence over Expires.
func (s *Store) Ingest(h http.Header) {
	if len(h.Values("Set-Cookie")) == 0 {
		return
	}
	now := s.clock.Now()
	for _, c := range (&http.Response{Header: h}).Cookies() {
		switch {
		case c.MaxAge < 0:
			s.Delete(c.Name)
		case c.MaxAge > 0:
			s.SetExpiring(c.Name, c.Value, time.Duration(c.MaxAge)*time.Second)
		case !c.Expires.IsZero():
			s.SetExpiring(c.Name, c.Value, c.Expires.Sub(now))
		default:
			s.Set(c.Name, c.Value)
		}
	}
}

func (s *Store) set(name, value string, ttl time.Duration) {
	if old, ok := s.entries[name]; !ok {
		s.order = append(s.order, name)
	} else if old.timer != nil {
		old.timer.Stop()
	}
	e := &entry{value: value}
	s.entries[name] = e
	if ttl <= 0 {
		return
	}
	if ttl > MaxLifetime {
		ttl = MaxLifetime
	}
	e.deadline = s.clock.Now().Add(ttl)
	e.timer = s.clock.AfterFunc(ttl, func() {
		s.expire(name, e)
	})
}

// live returns the named entry unless it has expired, in which case it
// is evicted. The lock must be held.
func (s *Store) live(name string) (*entry, bool) {
	e, ok := s.entries[name]
	if !ok {
		return nil, false
	}
	if !e.deadline.IsZero() && !s.clock.Now().Before(e.deadline) {
		s.delete(name)
		return nil, false
	}
	return e, true
}

func (s *Store) expire(name string, e *entry) {
	s.lock.Lock()
	defer s.lock.Unlock()
	// The entry may have been replaced after the timer fired.
	if s.entries[name] == e {
		s.delete(name)
	}
}

func (s *Store) delete(name string) {
	e, ok := s.entries[name]
	if !ok {
		return
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	delete(s.entries, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
