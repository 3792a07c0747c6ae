// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package transient tells retryable transport failures apart from
// permanent ones.
//
// Categorize sorts an error into a coarse Category. Code gives it a
// short stable name, for instance "ECONNRESET" or
// "ERR_HTTP2_STREAM_ERROR", which is what retry policies list in their
// ErrorCodes and what log entries carry.
package transient
