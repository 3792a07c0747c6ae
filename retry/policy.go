// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"errors"
	"net/http"
	"time"

	"github.com/gogama/hopper/transient"
)

// ErrStreamConsumed is returned by Policy.Decide when the attempt sent a
// single-use request body that has already been read, and the method
// is not one that can be replayed without its body.
var ErrStreamConsumed = errors.New("request stream already read")

// A Policy controls if and how retries are done. Policy is a value:
// Decide never modifies the receiver, and instead returns the Policy
// the next attempt should use.
type Policy struct {
	// Attempts is the number of retries remaining.
	Attempts int `koanf:"attempts" validate:"gte=0"`
	// Interval is the most recent wait interval. It seeds the Backoff
	// strategy and is rewritten with the wait actually used after
	// every retry.
	Interval time.Duration `koanf:"interval" validate:"gte=0"`
	// Backoff selects how the next interval is computed from Interval.
	// The zero value means RandomLog.
	Backoff Backoff `koanf:"backoff" validate:"omitempty,oneof=fixed server-hint random-log"`
	// ErrorCodes lists the transient error codes, as returned by
	// transient.Code, which make a failed attempt retryable.
	ErrorCodes []string `koanf:"errorCodes"`
	// StatusCodes lists the HTTP status codes which make a failed
	// attempt retryable.
	StatusCodes []int `koanf:"statusCodes" validate:"dive,gte=100,lte=599"`
	// RetryAfter enables honoring the Retry-After response header.
	RetryAfter bool `koanf:"retryAfter"`
	// MaxRetryAfter bounds the honored Retry-After wait. A Retry-After
	// hint above this bound fails the attempt with a
	// *MaxRetryAfterError. Zero or negative means no bound.
	MaxRetryAfter time.Duration `koanf:"maxRetryAfter" validate:"gte=0"`
}

// DefaultErrorCodes are the transient error codes retried by default.
var DefaultErrorCodes = []string{
	transient.CodeAgain,
	transient.CodeConnRefused,
	transient.CodeConnReset,
	transient.CodeHostDown,
	transient.CodeHostUnreach,
	transient.CodeNetDown,
	transient.CodeNetUnreach,
	transient.CodeNotFound,
	transient.CodePipe,
	transient.CodeStreamError,
}

// DefaultStatusCodes are the HTTP status codes retried by default: 429
// (Too Many Requests), 500 (Internal Server Error), 502 (Bad Gateway),
// 503 (Service Unavailable) and 504 (Gateway Timeout).
var DefaultStatusCodes = []int{429, 500, 502, 503, 504}

// DefaultPolicy returns the default retry policy. It does not retry,
// since Attempts is zero, but every other field carries a sensible
// value so that setting Attempts alone enables retries.
func DefaultPolicy() Policy {
	return Policy{
		Interval:    time.Second,
		Backoff:     RandomLog,
		ErrorCodes:  append([]string(nil), DefaultErrorCodes...),
		StatusCodes: append([]int(nil), DefaultStatusCodes...),
		RetryAfter:  true,
	}
}

// Never returns a policy that never retries.
func Never() Policy {
	return Policy{}
}

// An Attempt describes a failed request attempt to Policy.Decide.
type Attempt struct {
	// Err is the error the attempt failed with.
	Err error
	// StatusCode is the HTTP status of the response which caused the
	// failure, or zero if no response was received.
	StatusCode int
	// Header is the header of the response which caused the failure,
	// or nil if no response was received.
	Header http.Header
	// Method is the request method of the attempt.
	Method string
	// Consumed is true if the attempt sent a single-use request body
	// which can't be sent again.
	Consumed bool
	// Now is the current time, used to resolve HTTP-date Retry-After
	// values. The zero value means time.Now().
	Now time.Time
}

// A Decision is the outcome of Policy.Decide.
type Decision struct {
	// Retry indicates whether the attempt should be retried.
	Retry bool
	// Wait is how long to wait before retrying.
	Wait time.Duration
	// Next is the policy the retried attempt should carry. It is only
	// meaningful if Retry is true.
	Next Policy
}

// Clone returns a deep copy of p.
func (p Policy) Clone() Policy {
	p.ErrorCodes = append([]string(nil), p.ErrorCodes...)
	p.StatusCodes = append([]int(nil), p.StatusCodes...)
	return p
}

// Retryable reports whether a has a retryable error code or status
// code, ignoring the remaining attempt budget.
func (p Policy) Retryable(a Attempt) bool {
	if a.StatusCode != 0 {
		for _, s := range p.StatusCodes {
			if s == a.StatusCode {
				return true
			}
		}
	}
	if a.Err != nil {
		if code := transient.Code(a.Err); code != "" {
			for _, c := range p.ErrorCodes {
				if c == code {
					return true
				}
			}
		}
	}
	return false
}

// Decide decides whether the failed attempt a should be retried.
//
// No retry is done if no attempts remain or if the attempt is not
// Retryable. If the attempt is retryable but consumed a single-use body
// of a method other than GET or HEAD, ErrStreamConsumed is returned. If
// a Retry-After hint exceeds MaxRetryAfter, a *MaxRetryAfterError is
// returned.
//
// The jitter source j is used by the RandomLog strategy. If j is nil, a
// shared package-level source is used.
func (p Policy) Decide(a Attempt, j *Jitter) (Decision, error) {
	if p.Attempts <= 0 || !p.Retryable(a) {
		return Decision{}, nil
	}
	if a.Consumed && a.Method != http.MethodGet && a.Method != http.MethodHead {
		return Decision{}, ErrStreamConsumed
	}

	wait, hinted, err := p.hint(a)
	if err != nil {
		return Decision{}, err
	}
	if !hinted {
		wait = p.Backoff.next(p.Interval, j)
	}

	next := p.Clone()
	next.Attempts--
	next.Interval = wait
	return Decision{Retry: true, Wait: wait, Next: next}, nil
}

func (p Policy) hint(a Attempt) (time.Duration, bool, error) {
	if !p.RetryAfter && p.Backoff != ServerHint {
		return 0, false, nil
	}
	now := a.Now
	if now.IsZero() {
		now = time.Now()
	}
	return Hint(a.Header, now, p.MaxRetryAfter)
}
