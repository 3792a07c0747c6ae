// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package hopper

import "strconv"

// An Event names a point in the life of a plan execution at which the
// Client runs the matching handler chain of its HandlerGroup.
type Event int

const (
	// BeforeExecutionStart fires once per execution, before the first
	// hop is prepared. Only the execution's ID and plan are set at this
	// point.
	BeforeExecutionStart Event = iota
	// BeforeAttempt fires before every hop is sent. The first request,
	// each redirect and each retry are all attempts.
	//
	// When Client fires BeforeAttempt, the execution's plan has been
	// through preflight (cookies attached, headers canonicalized and
	// credentials stripped as required), the execution's protocol is
	// set, and the execution's request field is set to the HTTP
	// request that WILL BE sent after all BeforeAttempt handlers have
	// finished.
	//
	// Handlers may edit the request, for example to add headers. The
	// request URL is shared with the plan, so clone it before changing
	// it.
	BeforeAttempt
	// BeforeReadBody fires when a hop produced a response, before
	// postflight looks at it and before the body is read.
	//
	// When Client fires BeforeReadBody, the execution's response field
	// is set to the response whose body MAY BE read after all
	// BeforeReadBody handlers have finished. Set-Cookie headers of the
	// response have already been stored in the cookie jar.
	//
	// BeforeReadBody is skipped for hops that failed at the transport
	// level. Any status code triggers it, with or without a body.
	BeforeReadBody
	// AfterAttemptTimeout fires when a hop hit its attempt timeout. The
	// execution's error is the *request.TimeoutError and its
	// AttemptTimeouts counter already includes this hop.
	AfterAttemptTimeout
	// AfterAttempt fires after every hop, successful or not, and before
	// the retry policy is asked for a decision.
	//
	// At least one of the execution's response and error is set. Both
	// are set when the response arrived but its body could not be
	// read, or when postflight rejected the response.
	AfterAttempt
	// BeforeRedirect identifies the event that occurs after a redirect
	// response has been accepted for following, before waiting for
	// any Retry-After delay it carries.
	//
	// When Client fires BeforeRedirect, the execution's response is the
	// redirect response, and its wait field holds the delay before the
	// next hop is sent.
	BeforeRedirect
	// BeforeRetry identifies the event that occurs after the retry
	// policy has decided to retry a failed attempt, before waiting.
	//
	// When Client fires BeforeRetry, the execution's error field holds
	// the error of the failed attempt, its wait field holds the delay
	// before the retry and its retry counter has been incremented.
	BeforeRetry
	// AfterPlanTimeout fires when the plan's context deadline passed,
	// either during a hop or while waiting between hops. The
	// execution's error is the context error. If the deadline passed
	// during a hop, AfterPlanTimeout follows that hop's AfterAttempt.
	AfterPlanTimeout
	// AfterExecutionEnd fires exactly once, last. The end time is set
	// and any error has already been wrapped in a *url.Error.
	// Otherwise the execution looks as it did after the final
	// AfterAttempt.
	AfterExecutionEnd
	eventSentinel

	numEvents = int(eventSentinel)
)

var eventNames = [numEvents]string{
	BeforeExecutionStart: "BeforeExecutionStart",
	BeforeAttempt:        "BeforeAttempt",
	BeforeReadBody:       "BeforeReadBody",
	AfterAttemptTimeout:  "AfterAttemptTimeout",
	AfterAttempt:         "AfterAttempt",
	BeforeRedirect:       "BeforeRedirect",
	BeforeRetry:          "BeforeRetry",
	AfterPlanTimeout:     "AfterPlanTimeout",
	AfterExecutionEnd:    "AfterExecutionEnd",
}

// Events lists every Event in firing order. At most one of
// BeforeRedirect and BeforeRetry fires between two attempts.
func Events() []Event {
	evts := make([]Event, numEvents)
	for i := range evts {
		evts[i] = Event(i)
	}
	return evts
}

// Name returns the identifier of evt, such as "BeforeRetry". Values
// outside the known range are rendered as "Event(n)".
func (evt Event) Name() string {
	if evt < 0 || int(evt) >= numEvents {
		return "Event(" + strconv.Itoa(int(evt)) + ")"
	}
	return eventNames[evt]
}

// String is an alias for Name.
func (evt Event) String() string {
	return evt.Name()
}
