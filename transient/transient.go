// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transient

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"golang.org/x/net/http2"
)

// A Category says whether, and how, an error is worth retrying. Not
// means a retry is very unlikely to help. Every other Category names a
// failure that may clear up on its own.
type Category int

const (
	// Not covers nil and every error without a transient cause.
	Not Category = iota
	// Timeout is a client-side timeout: some error in the chain has a
	// Timeout method reporting true. A slow server may answer a later
	// attempt, possibly one given more time.
	Timeout
	// ConnRefused means the peer refused the connection
	// (syscall.ECONNREFUSED somewhere in the chain).
	ConnRefused
	// ConnReset means the peer reset an established connection
	// (syscall.ECONNRESET somewhere in the chain).
	ConnReset
)

// Transient codes reported by Code.
const (
	CodeConnRefused   = "ECONNREFUSED"
	CodeConnReset     = "ECONNRESET"
	CodeHostDown      = "EHOSTDOWN"
	CodeHostUnreach   = "EHOSTUNREACH"
	CodeNetDown       = "ENETDOWN"
	CodeNetUnreach    = "ENETUNREACH"
	CodeNotFound      = "ENOTFOUND"
	CodeAgain         = "EAI_AGAIN"
	CodePipe          = "EPIPE"
	CodeTimedOut      = "ETIMEDOUT"
	CodeStreamError   = "ERR_HTTP2_STREAM_ERROR"
	CodeGoAway        = "ERR_HTTP2_GOAWAY"
	CodeBadStatusLine = "EBADSTATUSLINE"
	CodeSessionError  = "ERR_HTTP2_SESSION_ERROR"
)

// Categorize walks the chain of err and returns its Category. A
// timeout wins over any errno found further down the chain. Temporary
// methods are ignored because their meaning differs between packages.
func Categorize(err error) Category {
	if err == nil {
		return Not
	}

	var hasTimeout hasTimeout
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return Timeout
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if errno == syscall.ECONNRESET {
			return ConnReset
		} else if errno == syscall.ECONNREFUSED {
			return ConnRefused
		}
	}

	return Not
}

var errnoCodes = map[syscall.Errno]string{
	syscall.ECONNREFUSED: CodeConnRefused,
	syscall.ECONNRESET:   CodeConnReset,
	syscall.EHOSTDOWN:    CodeHostDown,
	syscall.EHOSTUNREACH: CodeHostUnreach,
	syscall.ENETDOWN:     CodeNetDown,
	syscall.ENETUNREACH:  CodeNetUnreach,
	syscall.EPIPE:        CodePipe,
	syscall.ETIMEDOUT:    CodeTimedOut,
}

// Code returns the transient code naming err, or the empty string if
// err is nil or cannot be named.
//
// Like Categorize, Code looks through wrapped cause errors. A client-side
// timeout always yields CodeTimedOut, even if the timeout was caused by a
// lower-level error with a code of its own.
func Code(err error) string {
	if err == nil {
		return ""
	}

	var coded hasCode
	if errors.As(err, &coded) {
		if c := coded.Code(); c != "" {
			return c
		}
	}

	var hasTimeout hasTimeout
	if errors.As(err, &hasTimeout) && hasTimeout.Timeout() {
		return CodeTimedOut
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		if c, ok := errnoCodes[errno]; ok {
			return c
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return CodeNotFound
		}
		return CodeAgain
	}

	var streamErr http2.StreamError
	if errors.As(err, &streamErr) {
		return CodeStreamError
	}

	var goAway http2.GoAwayError
	if errors.As(err, &goAway) {
		return CodeGoAway
	}

	var connErr http2.ConnectionError
	if errors.As(err, &connErr) {
		return CodeSessionError
	}

	if malformedStatusLine(err) {
		return CodeBadStatusLine
	}

	return ""
}

// malformedStatusLine reports whether err is the HTTP/1.x parser's
// complaint about a response that does not start with a status line.
// An HTTP/2-only peer answering an HTTP/1.1 request produces exactly this
// condition, because the first bytes it sends are a binary SETTINGS frame.
func malformedStatusLine(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "malformed HTTP response") ||
		strings.Contains(msg, "malformed HTTP version")
}

type hasTimeout interface {
	Timeout() bool
}

type hasCode interface {
	Code() string
}
