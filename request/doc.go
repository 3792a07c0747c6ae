// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package request contains the core types Plan (describes one hop of a
logical HTTP request), Execution (describes the state of a logical
request) and Response (the client's view of an HTTP response), together
with the Config defaults record and the error types of the client.

A Plan describes how to make a logical HTTP request: the method, URL,
header and body of the request, and a Config governing how redirects
are followed, how failed attempts are retried, whether cookies and
credentials are sent and how the response is read. Plan fields are
named and typed consistently with http.Request wherever possible. The
body may be any value accepted by Transform; an io.Reader is wrapped as
a single-use Stream, which prevents it from being sent twice.

Create a plan to make a reliable HTTP request:

	p, err := request.NewPlan("GET", "https://example.com", nil,
		request.WithAttempts(3), request.WithTimeout(10*time.Second))
	...
	e, err := client.Do(p)
	...

A plan may be assigned a context to allow timeouts to be set on the
entire logical request, and to allow it to be cancelled:

	p, err := request.NewPlanWithContext(ctx, "POST", "https://example.com/upload", body)
	...

If a deadline is set on the plan context, it is separate from the
deadlines set on individual request attempts, which are dictated by the
client's timeout.Policy. An individual attempt may fail due either to an
attempt timeout or a plan timeout. The former is potentially retryable,
the latter is not.

NewPlan validates the plan and returns a *ValidationError listing every
problem found, for example an unknown credentials mode or a GET request
carrying a body. Failures of a logical request are reported as an
*Error (a redirect which can't be followed, an exhausted redirect budget
or an excessive Retry-After), a *StatusError (a response status of 400
or above), a *TimeoutError (an attempt timeout) or the transport error.

An Execution is both the output type of the client's plan executing
methods, and the input type for callbacks invoked during plan execution:
timeout policies and event handlers. You will typically not allocate
Execution instances yourself.
*/
package request
