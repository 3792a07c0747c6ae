// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"net/http"
	"time"

	"github.com/gogama/hopper/transient"
)

// An Execution represents the state of a single logical request, from
// the first hop to the final response or error.
//
// When a Plan is executed, an Execution is created for it. The Execution
// is updated as the logical request progresses (for example when a
// response becomes available, a redirect is followed or a retry is
// needed) and is ultimately the return value of the client.
//
// Event handlers may set values on an Execution using its SetValue
// method and read them back using the Value method. However, they should
// treat the structure's exported field values as immutable, as the
// execution state is vital to the correct functioning of the client.
// Making reasonable changes to the http.Request before it is sent (for
// example, to sign it) is allowed.
type Execution struct {
	// ID uniquely identifies the logical request. It is assigned when
	// the execution starts.
	ID string

	// Plan is the plan of the current hop. It starts as the plan
	// passed to the client and is replaced by a derived plan whenever
	// a redirect is followed or a retry is scheduled. It is never nil.
	Plan *Plan

	// Start is the start time of the execution. It is assigned a
	// non-zero value when the execution starts, and this value remains
	// constant thereafter.
	Start time.Time

	// End is the end time of the execution. It contains the zero value
	// until the execution ends, when it is set to the current time.
	End time.Time

	// Attempt is the zero-based number of the current attempt. Every
	// hop sent, whether initial, redirected or retried, is one attempt.
	Attempt int

	// Hop is the number of redirects followed so far.
	Hop int

	// Retries is the number of retries scheduled so far.
	Retries int

	// AttemptTimeouts is the count of the number of times an attempt
	// timed out during the execution.
	AttemptTimeouts int

	// Wait is the wait before the next hop. It is set before the
	// BeforeRedirect and BeforeRetry events.
	Wait time.Duration

	// Proto is the protocol used, or to be used, by the current
	// attempt: "HTTP/1.1" or "HTTP/2.0".
	Proto string

	// Request specifies the HTTP request to be made in the current
	// attempt, or already made in the last attempt.
	Request *http.Request

	// Response is the response received in the most recent attempt.
	// It is nil if the most recent attempt failed without a response,
	// while an attempt is underway, or before the execution starts.
	//
	// Note that Response and Err may both be non-nil, for example if
	// the response status indicates an error.
	Response *Response

	// Err is the error of the most recent attempt. Once the execution
	// has ended, Err has the same value as the error the client
	// returned, or the error it would have returned if the request was
	// thenable.
	//
	// Whenever Err is non-nil after the execution ends, it has the
	// type *url.Error.
	Err error

	values map[any]any
}

// StatusCode returns the status code of the most recent response, or
// zero if there is no response.
func (e *Execution) StatusCode() int {
	if e.Response == nil {
		return 0
	}

	return e.Response.StatusCode
}

// Header returns the header of the most recent response, or nil if
// there is no response.
func (e *Execution) Header() http.Header {
	if e.Response == nil {
		return nil
	}

	return e.Response.Header
}

// OK reports whether the execution ended with a 2xx response and no
// error.
func (e *Execution) OK() bool {
	return e.Err == nil && e.Response != nil && e.Response.OK()
}

// Duration returns the duration of the execution. If the execution has
// not started, zero is returned. If it has started but not ended, the
// duration so far is returned.
func (e *Execution) Duration() time.Duration {
	if !e.Started() {
		return time.Duration(0)
	} else if !e.Ended() {
		return time.Since(e.Start)
	}

	return e.End.Sub(e.Start)
}

// Started reports whether the execution has started.
func (e *Execution) Started() bool {
	return e.Start != (time.Time{})
}

// Ended reports whether the execution has ended.
func (e *Execution) Ended() bool {
	return e.End != (time.Time{})
}

// Timeout reports whether the most recent error is a timeout.
func (e *Execution) Timeout() bool {
	return transient.Categorize(e.Err) == transient.Timeout
}

// Code returns the transient code of the most recent error, such as
// "ECONNRESET", or the empty string.
func (e *Execution) Code() string {
	return transient.Code(e.Err)
}

// SetValue stores value under key for later retrieval with Value.
// Handlers use it to carry state from one event to the next. Keys
// follow the same rules as context keys: use an unexported type.
func (e *Execution) SetValue(key, value any) {
	if e.values == nil {
		e.values = make(map[any]any)
	}
	e.values[key] = value
}

// Value returns the value stored under key, or nil.
func (e *Execution) Value(key any) any {
	return e.values[key]
}
