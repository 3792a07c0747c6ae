// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package alpn

import (
	"context"
	"crypto/tls"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Protocol identifiers exchanged during ALPN.
const (
	H2     = "h2"
	HTTP11 = "http/1.1"
)

// A Conn is a TLS connection whose application protocol has been
// negotiated.
type Conn struct {
	*tls.Conn
	// Proto is the negotiated protocol, H2 or HTTP11.
	Proto string

	once sync.Once
	err  error
}

// H2 reports whether the peer chose HTTP/2.
func (c *Conn) H2() bool {
	return c.Proto == H2
}

// Close closes the connection. It is safe to call more than once.
func (c *Conn) Close() error {
	c.once.Do(func() {
		c.err = c.Conn.Close()
	})
	return c.err
}

// A Negotiator performs ALPN against https targets.
//
// The zero value is ready to use: it dials with a plain net.Dialer and
// verifies certificates against the system roots.
type Negotiator struct {
	// TLSConfig is cloned for every handshake. NextProtos and, unless
	// set, ServerName are filled in by the Negotiator.
	TLSConfig *tls.Config
	// Dialer opens the underlying TCP connection. If nil, a net.Dialer
	// with a 30 second timeout is used.
	Dialer interface {
		DialContext(ctx context.Context, network, address string) (net.Conn, error)
	}
}

var defaultDialer = &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}

// Negotiate negotiates the protocol for a request to u. It returns nil
// and no error if u is not an https URL. The context bounds the dial and
// the handshake only.
//
// Errors are returned wrapped with context, but errors.As and errors.Is
// see through the wrapping to the dial or handshake error.
func (n *Negotiator) Negotiate(ctx context.Context, u *url.URL) (*Conn, error) {
	if u.Scheme != "https" {
		return nil, nil
	}

	d := n.Dialer
	if d == nil {
		d = defaultDialer
	}
	addr := u.Host
	if u.Port() == "" {
		addr = net.JoinHostPort(u.Hostname(), "443")
	}
	raw, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "alpn dial")
	}

	var config *tls.Config
	if n.TLSConfig != nil {
		config = n.TLSConfig.Clone()
	} else {
		config = &tls.Config{}
	}
	config.NextProtos = []string{H2, HTTP11}
	if config.ServerName == "" {
		config.ServerName = u.Hostname()
	}

	c := tls.Client(raw, config)
	if err = c.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return nil, errors.Wrap(err, "alpn handshake")
	}

	proto := c.ConnectionState().NegotiatedProtocol
	if proto != H2 {
		proto = HTTP11
	}
	return &Conn{Conn: c, Proto: proto}, nil
}
