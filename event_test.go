// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package hopper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvents(t *testing.T) {
	evts := Events()

	assert.Len(t, evts, numEvents)
	for i, evt := range evts {
		assert.Equal(t, Event(i), evt)
		assert.NotEmpty(t, evt.Name())
	}
	assert.Equal(t, BeforeExecutionStart, evts[0])
	assert.Equal(t, AfterExecutionEnd, evts[len(evts)-1])

	evts[0] = AfterPlanTimeout
	assert.Equal(t, BeforeExecutionStart, Events()[0], "Events must return a fresh slice")
}

func TestEvent_Name(t *testing.T) {
	testCases := map[Event]string{
		BeforeExecutionStart: "BeforeExecutionStart",
		BeforeAttempt:        "BeforeAttempt",
		BeforeReadBody:       "BeforeReadBody",
		AfterAttemptTimeout:  "AfterAttemptTimeout",
		AfterAttempt:         "AfterAttempt",
		BeforeRedirect:       "BeforeRedirect",
		BeforeRetry:          "BeforeRetry",
		AfterPlanTimeout:     "AfterPlanTimeout",
		AfterExecutionEnd:    "AfterExecutionEnd",
		Event(-1):            "Event(-1)",
		Event(numEvents):     "Event(9)",
	}
	for evt, name := range testCases {
		assert.Equal(t, name, evt.Name())
		assert.Equal(t, name, evt.String())
	}
}
