// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gogama/hopper/retry"
)

// ErrStreamConsumed indicates a single-use request body was needed a
// second time, either to retry the request or to follow a 307 or 308
// redirect.
var ErrStreamConsumed = retry.ErrStreamConsumed

// ErrBodyUsed indicates a response body was read a second time.
var ErrBodyUsed = errors.New("response stream already read")

// Messages of the Error values produced by the client.
const (
	MsgMaxRedirect        = "maximum redirect reached"
	MsgUnexpectedRedirect = "unexpected redirect"
	MsgRedirectScheme     = "unsupported redirect protocol"
	MsgRedirectLocation   = "invalid redirect location"
	MsgDowngrade          = "protocol downgrade"
	MsgRedirectStatus     = "unsupported redirect status"
	MsgRedirectStream     = "unable to follow redirect with streamable body"
	MsgMaxRetryAfter      = "maximum retry-after exceeded"
)

// An Error is a protocol-level failure of a request: a disallowed
// redirect, an exhausted redirect budget, an excessive Retry-After, and
// similar. Errors of this type are never retried.
type Error struct {
	// Message describes the failure.
	Message string
	// Cause is the underlying error, if any.
	Cause error
	// Response is the response which provoked the failure, if any.
	Response *Response
}

func (err *Error) Error() string {
	if err.Cause == nil {
		return err.Message
	}
	return err.Message + ": " + err.Cause.Error()
}

func (err *Error) Unwrap() error {
	return err.Cause
}

// Is reports whether target is an *Error with the same Message. It lets
// callers match on the kind of failure with errors.Is.
func (err *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Message == err.Message
}

// A StatusError reports a response with a status code of 400 or above.
// The response remains available to the caller through the error.
type StatusError struct {
	Response *Response
}

func (err *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d", err.Response.StatusCode)
}

// StatusCode returns the status code of the response.
func (err *StatusError) StatusCode() int {
	return err.Response.StatusCode
}

// Header returns the header of the response.
func (err *StatusError) Header() http.Header {
	return err.Response.Header
}

// A TimeoutError reports that an attempt ran out of time.
type TimeoutError struct {
	After time.Duration
}

func (err *TimeoutError) Error() string {
	return fmt.Sprintf("attempt timed out after %v", err.After)
}

// Timeout always returns true.
func (err *TimeoutError) Timeout() bool { return true }

// Temporary always returns true.
func (err *TimeoutError) Temporary() bool { return true }

// A ValidationError reports a request that can't be sent as described.
// It is returned before any network activity.
type ValidationError struct {
	Errors []FieldError
}

// FieldError describes one invalid field of a request.
type FieldError struct {
	Field   string
	Message string
	Value   string
}

func (ve *ValidationError) Error() string {
	switch len(ve.Errors) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + ve.Errors[0].Message
	default:
		msgs := make([]string, len(ve.Errors))
		for i := range ve.Errors {
			msgs[i] = ve.Errors[i].Message
		}
		return fmt.Sprintf("validation failed: %d errors: %s", len(ve.Errors), strings.Join(msgs, "; "))
	}
}

func newValidationError(errs validator.ValidationErrors) *ValidationError {
	fieldErrors := make([]FieldError, 0, len(errs))
	for _, fe := range errs {
		fieldErrors = append(fieldErrors, FieldError{
			Field:   fe.Namespace(),
			Message: fieldMessage(fe),
			Value:   fmt.Sprintf("%v", fe.Value()),
		})
	}
	return &ValidationError{Errors: fieldErrors}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Namespace())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Namespace(), fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", fe.Namespace(), fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Namespace(), fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", fe.Namespace())
	default:
		return fmt.Sprintf("%s failed validation", fe.Namespace())
	}
}
