// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package retry

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// A MaxRetryAfterError reports a Retry-After hint larger than the
// configured maximum.
type MaxRetryAfterError struct {
	Wait time.Duration
	Max  time.Duration
}

func (err *MaxRetryAfterError) Error() string {
	return fmt.Sprintf("retry-after %v exceeds maximum %v", err.Wait, err.Max)
}

// ParseRetryAfter parses a Retry-After header value, which is either a
// number of seconds or an HTTP-date, into a wait duration relative to
// now. Negative results are clamped to zero, which means "retry now".
// The boolean result is false if the value is empty or unparseable.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		if math.IsNaN(secs) || secs <= 0 {
			return 0, true
		}
		if secs >= math.MaxInt64/float64(time.Second) {
			return time.Duration(math.MaxInt64), true
		}
		return time.Duration(secs * float64(time.Second)), true
	}
	t, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	d := t.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}

// Hint extracts the Retry-After wait from h. The boolean result is false
// if h carries no usable Retry-After value. If max is positive and the
// wait exceeds it, a *MaxRetryAfterError is returned.
func Hint(h http.Header, now time.Time, max time.Duration) (time.Duration, bool, error) {
	if h == nil {
		return 0, false, nil
	}
	d, ok := ParseRetryAfter(h.Get("Retry-After"), now)
	if !ok {
		return 0, false, nil
	}
	if max > 0 && d > max {
		return 0, false, &MaxRetryAfterError{Wait: d, Max: max}
	}
	return d, true, nil
}
