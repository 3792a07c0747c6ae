// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"net/http"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExecution_Response(t *testing.T) {
	e := &Execution{}

	assert.Equal(t, 0, e.StatusCode())
	assert.Nil(t, e.Header())
	assert.Empty(t, e.Header().Get("Location"))
	assert.False(t, e.OK())

	h := http.Header{"Location": {"/next"}, "Vary": {"Accept", "Cookie"}}
	e.Response = NewResponse(&http.Response{StatusCode: 204, Header: h}, nil, false, nil)

	assert.Equal(t, 204, e.StatusCode())
	assert.Equal(t, "/next", e.Header().Get("Location"))
	assert.Equal(t, []string{"Accept", "Cookie"}, e.Header()["Vary"])
	assert.True(t, e.OK())

	e.Err = errors.New("body truncated")
	assert.False(t, e.OK())

	e.Err = nil
	e.Response.StatusCode = 302
	assert.False(t, e.OK())
}

func TestExecution_Duration(t *testing.T) {
	start := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)

	e := &Execution{}
	assert.False(t, e.Started())
	assert.False(t, e.Ended())
	assert.Zero(t, e.Duration())

	e.Start = time.Now()
	assert.True(t, e.Started())
	assert.False(t, e.Ended())
	time.Sleep(time.Millisecond)
	assert.GreaterOrEqual(t, e.Duration(), time.Millisecond)

	e.Start = start
	e.End = start.Add(1500 * time.Millisecond)
	assert.True(t, e.Ended())
	assert.Equal(t, 1500*time.Millisecond, e.Duration())
}

func TestExecution_Timeout(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
		code string
	}{
		{"nil", nil, false, ""},
		{"plain", errors.New("foo"), false, ""},
		{"errno", syscall.ETIMEDOUT, true, "ETIMEDOUT"},
		{"attempt", &url.Error{Op: "Get", URL: "http://x", Err: &TimeoutError{After: time.Second}}, true, "ETIMEDOUT"},
		{"wrapped errno", &url.Error{Err: syscall.ETIMEDOUT}, true, "ETIMEDOUT"},
		{"reset", &url.Error{Err: syscall.ECONNRESET}, false, "ECONNRESET"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			e := &Execution{Err: testCase.err}

			assert.Equal(t, testCase.want, e.Timeout())
			assert.Equal(t, testCase.code, e.Code())
		})
	}
}

type spanKey struct{}

type counterKey struct{}

func TestExecution_Value(t *testing.T) {
	e := &Execution{}

	assert.Nil(t, e.Value(spanKey{}))

	e.SetValue(spanKey{}, "span-1")
	e.SetValue(counterKey{}, 1)
	e.SetValue("plain", true)
	assert.Equal(t, "span-1", e.Value(spanKey{}))
	assert.Equal(t, 1, e.Value(counterKey{}))
	assert.Equal(t, true, e.Value("plain"))

	e.SetValue(spanKey{}, "span-2")
	e.SetValue(counterKey{}, nil)
	assert.Equal(t, "span-2", e.Value(spanKey{}))
	assert.Nil(t, e.Value(counterKey{}))
}
