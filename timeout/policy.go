// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package timeout

import (
	"math"
	"time"

	"github.com/gogama/hopper/request"
)

// A Policy chooses the timeout of each attempt. The Client asks it
// once per hop, whether the hop is the first request, a redirect or a
// retry, and arms a fresh timer with the answer.
//
// A Policy is shared by every execution of a Client and must be safe
// for concurrent use.
type Policy interface {
	// Timeout returns the timeout for the hop about to be sent. A
	// result of zero or less disables the attempt timeout.
	//
	// The execution still holds the outcome of the previous hop, if
	// any, and e.Plan is the plan of the hop about to be sent.
	Timeout(e *request.Execution) time.Duration
}

// PolicyFunc adapts a function to the Policy interface.
type PolicyFunc func(e *request.Execution) time.Duration

// Timeout calls f.
func (f PolicyFunc) Timeout(e *request.Execution) time.Duration {
	return f(e)
}

// FromPlan reads the timeout from the Timeout field of the hop plan's
// configuration. An execution without a plan gets
// request.DefaultTimeout.
var FromPlan Policy = PolicyFunc(func(e *request.Execution) time.Duration {
	if e.Plan == nil {
		return request.DefaultTimeout
	}
	return e.Plan.Config.Timeout
})

// DefaultPolicy is used by a Client with no TimeoutPolicy. It is
// FromPlan.
var DefaultPolicy = FromPlan

// Infinite never times out an attempt. Only the plan's context can
// then stop a hop.
var Infinite Policy = Fixed(math.MaxInt64)

// Fixed returns a Policy that answers d for every hop.
func Fixed(d time.Duration) Policy {
	return steps{d}
}

// Adaptive returns a Policy that lengthens the timeout after a hop
// timed out.
//
// A hop whose predecessor did not time out, including the first hop,
// gets usual. A hop following a timeout gets after[n-1], where n is
// the number of attempt timeouts the execution has seen so far; once
// after runs out its last value is reused.
//
// For instance
//
//	Adaptive(200*time.Millisecond, time.Second, 10*time.Second)
//
// tries with 200ms, allows 1s after the first timeout and 10s after
// every later one. This suits servers with rare slow outliers: a short
// timeout and a quick retry usually win, but a burst of slowness does
// not turn into a retry storm.
func Adaptive(usual time.Duration, after ...time.Duration) Policy {
	return append(steps{usual}, after...)
}

// Capped returns a Policy which never answers more than limit. A hop
// for which p disables the timeout gets limit.
func Capped(p Policy, limit time.Duration) Policy {
	return PolicyFunc(func(e *request.Execution) time.Duration {
		d := p.Timeout(e)
		if d <= 0 || d > limit {
			return limit
		}
		return d
	})
}

// steps[0] is the usual timeout. steps[i] is used after the i-th
// attempt timeout.
type steps []time.Duration

func (s steps) Timeout(e *request.Execution) time.Duration {
	if !e.Timeout() {
		return s[0]
	}
	return s[min(e.AttemptTimeouts, len(s)-1)]
}
