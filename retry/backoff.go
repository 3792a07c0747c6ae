// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"math"
	"math/rand"
	"sync"
	"time"
)

// A Backoff names a strategy for computing the next retry interval from
// the current one.
type Backoff string

const (
	// Fixed waits the current interval again.
	Fixed Backoff = "fixed"
	// ServerHint waits exactly as long as the server's Retry-After
	// header asks, whether or not Policy.RetryAfter is set. Without a
	// hint it behaves like Fixed.
	ServerHint Backoff = "server-hint"
	// RandomLog waits ceil(interval * ln(x)) for x drawn uniformly from
	// [e, e²), giving a jittered wait between one and two intervals.
	RandomLog Backoff = "random-log"
)

// Valid reports whether b names a known strategy. The empty Backoff is
// valid and means RandomLog.
func (b Backoff) Valid() bool {
	switch b {
	case "", Fixed, ServerHint, RandomLog:
		return true
	default:
		return false
	}
}

// Next computes the interval to wait after interval using strategy b.
// The result is never negative.
func (b Backoff) Next(interval time.Duration, j *Jitter) time.Duration {
	return b.next(interval, j)
}

func (b Backoff) next(interval time.Duration, j *Jitter) time.Duration {
	if interval <= 0 {
		return 0
	}
	switch b {
	case Fixed, ServerHint:
		return interval
	default:
		if j == nil {
			j = defaultJitter
		}
		x := math.E + j.Float64()*(math.E*math.E-math.E)
		d := float64(interval) * math.Log(x)
		return ceilMillis(time.Duration(d))
	}
}

func ceilMillis(d time.Duration) time.Duration {
	if r := d % time.Millisecond; r != 0 {
		d += time.Millisecond - r
	}
	return d
}

// A Jitter is a source of randomness for the RandomLog strategy. It is
// safe for concurrent use by multiple goroutines.
type Jitter struct {
	lock sync.Mutex
	rand *rand.Rand
}

var defaultJitter = NewJitter(time.Now())

// NewJitter constructs a Jitter. You may specify either a random number
// generator seed value (as a time.Time, int, or int64) or a random
// number generator (as a *rand.Rand or rand.Source).
func NewJitter(seed interface{}) *Jitter {
	return &Jitter{rand: seedToRand(seed)}
}

// Float64 returns a pseudo-random number in [0.0, 1.0).
func (j *Jitter) Float64() float64 {
	j.lock.Lock()
	defer j.lock.Unlock()
	return j.rand.Float64()
}

func seedToRand(seed interface{}) *rand.Rand {
	var s rand.Source
	switch v := seed.(type) {
	case time.Time:
		s = rand.NewSource(v.UnixNano())
	case int:
		s = rand.NewSource(int64(v))
	case int64:
		s = rand.NewSource(v)
	case *rand.Rand:
		if v == nil {
			panic("hopper/retry: seed may not be a typed nil")
		}
		return v
	case rand.Source:
		s = v
	default:
		panic("hopper/retry: invalid seed type")
	}
	return rand.New(s)
}
