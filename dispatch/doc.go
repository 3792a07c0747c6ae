// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package dispatch sends a prepared HTTP request over HTTP/1.1 or
// HTTP/2 and returns the raw response.
//
// A Dispatcher owns three transports: a pooled HTTP/1.1 transport, an
// HTTP/2 transport for TLS, and an HTTP/2 transport for cleartext
// (h2c). When handed a connection already negotiated by package alpn,
// it sends the request over that connection instead, and closes the
// connection when the response body is closed.
//
// Every dispatch runs under its own attempt timeout. If the timeout
// elapses before the response body is closed, the attempt fails with a
// *request.TimeoutError.
package dispatch
