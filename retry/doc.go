// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package retry decides whether a failed HTTP request attempt should be
// retried, and how long to wait before retrying it.
//
// A Policy is a plain configuration value: the number of retries left,
// the current wait interval, a Backoff strategy, and the transient error
// codes and HTTP status codes that make an attempt retryable. After a
// failed attempt, Policy.Decide examines the Attempt and returns a
// Decision carrying the wait and the updated Policy to use for the next
// attempt:
//
//	p := retry.Policy{
//		Attempts:    3,
//		Interval:    250 * time.Millisecond,
//		Backoff:     retry.RandomLog,
//		StatusCodes: []int{429, 503},
//		RetryAfter:  true,
//	}
//	d, err := p.Decide(retry.Attempt{StatusCode: 503, Method: "GET"}, nil)
//
// When RetryAfter is enabled and the server sent a Retry-After header,
// the header value takes precedence over the Backoff strategy, bounded
// by MaxRetryAfter.
package retry
