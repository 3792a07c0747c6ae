// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package alpn negotiates the HTTP version spoken by a secure server.
//
// For an https target, a Negotiator dials the server, performs the TLS
// handshake offering "h2" and "http/1.1" through ALPN, and returns the
// established connection together with the protocol the server chose.
// The connection is meant to carry the request which prompted the
// negotiation; whoever receives it must either use it or Close it.
//
// Plaintext targets are not negotiated: there is no handshake to carry
// the offer, so the caller decides between HTTP/1.1 and cleartext
// HTTP/2 (h2c) from configuration.
package alpn
