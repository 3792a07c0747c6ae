// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 0, p.Attempts)
	assert.Equal(t, time.Second, p.Interval)
	assert.Equal(t, RandomLog, p.Backoff)
	assert.True(t, p.RetryAfter)
	assert.Equal(t, DefaultStatusCodes, p.StatusCodes)
	assert.Equal(t, DefaultErrorCodes, p.ErrorCodes)

	p.StatusCodes[0] = 999
	assert.Equal(t, 429, DefaultStatusCodes[0], "DefaultPolicy must copy its slices")

	d, err := p.Decide(Attempt{StatusCode: 503, Method: http.MethodGet}, nil)
	require.NoError(t, err)
	assert.False(t, d.Retry, "zero attempts must never retry")
}

func TestNever(t *testing.T) {
	for _, code := range DefaultStatusCodes {
		d, err := Never().Decide(Attempt{StatusCode: code}, nil)
		require.NoError(t, err)
		assert.False(t, d.Retry)
	}
}

func TestPolicyRetryable(t *testing.T) {
	p := DefaultPolicy()
	t.Run("Retryable status codes", func(t *testing.T) {
		for i, code := range DefaultStatusCodes {
			t.Run(fmt.Sprintf("codes[%d]=%d", i, code), func(t *testing.T) {
				assert.True(t, p.Retryable(Attempt{StatusCode: code}))
			})
		}
	})
	t.Run("Non-retryable status codes", func(t *testing.T) {
		for _, code := range []int{200, 201, 204, 301, 400, 401, 403, 404, 501} {
			assert.False(t, p.Retryable(Attempt{StatusCode: code}), code)
		}
	})
	t.Run("Transient errors", func(t *testing.T) {
		for i, te := range transientErrs {
			t.Run(fmt.Sprintf("transientErrs[%d]=%v", i, te), func(t *testing.T) {
				assert.True(t, p.Retryable(Attempt{Err: te}))
				assert.True(t, p.Retryable(Attempt{Err: &url.Error{Op: "Get", URL: "x", Err: te}}))
			})
		}
	})
	t.Run("Non-transient errors", func(t *testing.T) {
		for i, nte := range nonTransientErrs {
			t.Run(fmt.Sprintf("nonTransientErrs[%d]=%v", i, nte), func(t *testing.T) {
				assert.False(t, p.Retryable(Attempt{Err: nte}))
			})
		}
	})
}

func TestPolicyDecide(t *testing.T) {
	now := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	base := Policy{
		Attempts:    2,
		Interval:    100 * time.Millisecond,
		Backoff:     Fixed,
		StatusCodes: []int{429},
		ErrorCodes:  []string{"ECONNRESET"},
	}

	t.Run("budget consumed monotonically", func(t *testing.T) {
		p := base
		d, err := p.Decide(Attempt{StatusCode: 429, Method: http.MethodGet, Now: now}, nil)
		require.NoError(t, err)
		require.True(t, d.Retry)
		assert.Equal(t, 100*time.Millisecond, d.Wait)
		assert.Equal(t, 1, d.Next.Attempts)
		assert.Equal(t, 2, p.Attempts, "receiver must not change")

		d, err = d.Next.Decide(Attempt{Err: syscall.ECONNRESET, Method: http.MethodGet, Now: now}, nil)
		require.NoError(t, err)
		require.True(t, d.Retry)
		assert.Equal(t, 0, d.Next.Attempts)

		d, err = d.Next.Decide(Attempt{StatusCode: 429, Method: http.MethodGet, Now: now}, nil)
		require.NoError(t, err)
		assert.False(t, d.Retry)
	})
	t.Run("not retryable", func(t *testing.T) {
		d, err := base.Decide(Attempt{StatusCode: 500, Method: http.MethodGet}, nil)
		require.NoError(t, err)
		assert.False(t, d.Retry)
	})
	t.Run("consumed stream", func(t *testing.T) {
		_, err := base.Decide(Attempt{StatusCode: 429, Method: http.MethodPost, Consumed: true}, nil)
		assert.ErrorIs(t, err, ErrStreamConsumed)
		d, err := base.Decide(Attempt{StatusCode: 429, Method: http.MethodGet, Consumed: true}, nil)
		require.NoError(t, err)
		assert.True(t, d.Retry)
	})
	t.Run("consumed stream without budget", func(t *testing.T) {
		p := base
		p.Attempts = 0
		d, err := p.Decide(Attempt{StatusCode: 429, Method: http.MethodPut, Consumed: true}, nil)
		require.NoError(t, err)
		assert.False(t, d.Retry)
	})
	t.Run("retry-after seconds", func(t *testing.T) {
		p := base
		p.RetryAfter = true
		h := http.Header{"Retry-After": {"2"}}
		d, err := p.Decide(Attempt{StatusCode: 429, Header: h, Method: http.MethodGet, Now: now}, nil)
		require.NoError(t, err)
		assert.Equal(t, 2*time.Second, d.Wait)
		assert.Equal(t, 2*time.Second, d.Next.Interval)
	})
	t.Run("retry-after ignored", func(t *testing.T) {
		h := http.Header{"Retry-After": {"2"}}
		d, err := base.Decide(Attempt{StatusCode: 429, Header: h, Method: http.MethodGet, Now: now}, nil)
		require.NoError(t, err)
		assert.Equal(t, 100*time.Millisecond, d.Wait)
	})
	t.Run("server-hint honors header", func(t *testing.T) {
		p := base
		p.Backoff = ServerHint
		h := http.Header{"Retry-After": {now.Add(3 * time.Second).Format(http.TimeFormat)}}
		d, err := p.Decide(Attempt{StatusCode: 429, Header: h, Method: http.MethodGet, Now: now}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3*time.Second, d.Wait)
	})
	t.Run("retry-after exceeds max", func(t *testing.T) {
		p := base
		p.RetryAfter = true
		p.MaxRetryAfter = time.Minute
		h := http.Header{"Retry-After": {"360000"}}
		_, err := p.Decide(Attempt{StatusCode: 429, Header: h, Method: http.MethodGet, Now: now}, nil)
		var maxErr *MaxRetryAfterError
		require.ErrorAs(t, err, &maxErr)
		assert.Equal(t, 360000*time.Second, maxErr.Wait)
		assert.Equal(t, time.Minute, maxErr.Max)
		assert.EqualError(t, err, "retry-after 100h0m0s exceeds maximum 1m0s")
	})
	t.Run("random-log", func(t *testing.T) {
		p := base
		p.Backoff = RandomLog
		d, err := p.Decide(Attempt{StatusCode: 429, Method: http.MethodGet}, NewJitter(1))
		require.NoError(t, err)
		assert.Greater(t, d.Wait, 100*time.Millisecond)
		assert.LessOrEqual(t, d.Wait, 200*time.Millisecond)
	})
}

func TestPolicyClone(t *testing.T) {
	p := DefaultPolicy()
	q := p.Clone()
	q.ErrorCodes[0] = "X"
	q.StatusCodes[0] = 1
	assert.NotEqual(t, "X", p.ErrorCodes[0])
	assert.NotEqual(t, 1, p.StatusCodes[0])
}

var (
	transientErrs = []error{
		syscall.ECONNREFUSED,
		syscall.ECONNRESET,
		syscall.EPIPE,
		syscall.EHOSTUNREACH,
		syscall.ENETDOWN,
	}
	nonTransientErrs = []error{
		nil,
		errors.New("ain't transient"),
		syscall.EACCES,
	}
)
