// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync/atomic"

	"github.com/gogama/hopper/codec"
)

// A Stream is a single-use request body. The first attempt which sends
// it consumes it; any later attempt needing the body fails with
// ErrStreamConsumed.
type Stream struct {
	r        io.Reader
	consumed atomic.Bool
}

// NewStream wraps r as a single-use request body.
func NewStream(r io.Reader) *Stream {
	return &Stream{r: r}
}

// Consumed reports whether the stream has been handed to an attempt.
func (s *Stream) Consumed() bool {
	return s.consumed.Load()
}

func (s *Stream) take() (io.Reader, error) {
	if s.consumed.Swap(true) {
		return nil, ErrStreamConsumed
	}
	return s.r, nil
}

// Wire is a request body ready to be sent.
type Wire struct {
	// Reader produces the body bytes. It is nil for an empty body.
	Reader io.Reader
	// Length is the body length, or -1 if unknown.
	Length int64
	// GetBody returns a fresh copy of the body, or is nil for a
	// stream.
	GetBody func() (io.ReadCloser, error)
}

// Content types set by Transform when the header carries none.
const (
	TypeText        = "text/plain; charset=utf-8"
	TypeOctetStream = "application/octet-stream"
	TypeForm        = "application/x-www-form-urlencoded"
	TypeJSON        = "application/json"
)

// Transform converts body into its wire form, patching h with the
// Content-Type (only if not already present) and Content-Length, and
// applying any encodings listed in the Content-Encoding of h.
//
// The supported body types are nil, string, []byte, url.Values,
// *Stream and io.Reader (both single-use), and any other value, which is
// encoded as JSON.
//
// Transform consumes a stream body, so calling it twice on the same
// stream fails with ErrStreamConsumed.
func Transform(body interface{}, h http.Header) (Wire, error) {
	var b []byte
	var r io.Reader
	var contentType string
	switch x := body.(type) {
	case nil:
		return Wire{}, nil
	case string:
		b, contentType = []byte(x), TypeText
	case []byte:
		b, contentType = x, TypeOctetStream
	case url.Values:
		b, contentType = []byte(x.Encode()), TypeForm
	case *Stream:
		s, err := x.take()
		if err != nil {
			return Wire{}, err
		}
		r, contentType = s, TypeOctetStream
	case io.Reader:
		r, contentType = x, TypeOctetStream
	default:
		j, err := json.Marshal(x)
		if err != nil {
			return Wire{}, fmt.Errorf("hopper/request: unable to encode body: %w", err)
		}
		b, contentType = j, TypeJSON
	}

	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", contentType)
	}

	encodings := codec.Parse(h.Get("Content-Encoding"))
	if r != nil {
		h.Del("Content-Length")
		if len(encodings) > 0 {
			er, err := codec.EncodeReader(r, encodings)
			if err != nil {
				return Wire{}, err
			}
			r = er
		}
		return Wire{Reader: r, Length: -1}, nil
	}

	if len(encodings) > 0 {
		e, err := codec.Encode(b, encodings)
		if err != nil {
			return Wire{}, err
		}
		b = e
	}
	h.Set("Content-Length", strconv.Itoa(len(b)))
	return Wire{
		Reader: bytes.NewReader(b),
		Length: int64(len(b)),
		GetBody: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(b)), nil
		},
	}, nil
}

// consumed reports whether body is a stream that has been sent.
func consumed(body interface{}) bool {
	s, ok := body.(*Stream)
	return ok && s.Consumed()
}

// isStream reports whether body is single-use.
func isStream(body interface{}) bool {
	_, ok := body.(*Stream)
	return ok
}
