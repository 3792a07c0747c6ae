// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package request

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gogama/hopper/codec"
	"github.com/gogama/hopper/cookie"
	"golang.org/x/net/html/charset"
)

// A Response is the client's view of an HTTP response.
//
// The response body may be read only once, whether by Bytes, Text, JSON
// or Reader. A second read fails with ErrBodyUsed. If the body was
// digested by the client, Bytes, Text and JSON instead return the
// digested body as often as they are called.
type Response struct {
	// StatusCode is the HTTP status code, e.g. 200.
	StatusCode int
	// Status is the status line text, e.g. "200 OK".
	Status string
	// Proto is the protocol version, "HTTP/1.1" or "HTTP/2.0".
	Proto string
	// Header is the response header.
	Header http.Header
	// URL is the URL of the hop which produced the response.
	URL *url.URL
	// Redirected is true if the logical request followed at least one
	// redirect to reach this response.
	Redirected bool
	// Cookies is the cookie jar store for the response origin, or nil
	// if cookies are disabled.
	Cookies *cookie.Store

	// Digested is true if the client read the whole body, in which
	// case it is in Data.
	Digested bool
	// Data is the digested body, decoded from its content-encoding.
	Data []byte
	// Value is the digested body parsed by content type: a decoded JSON
	// value for JSON types, a string for text types, and nil otherwise
	// or if parsing was disabled.
	Value interface{}

	raw  *http.Response
	lock sync.Mutex
	used bool
}

// NewResponse wraps a raw HTTP response received for the request to u.
func NewResponse(raw *http.Response, u *url.URL, redirected bool, cookies *cookie.Store) *Response {
	return &Response{
		StatusCode: raw.StatusCode,
		Status:     raw.Status,
		Proto:      raw.Proto,
		Header:     raw.Header,
		URL:        u,
		Redirected: redirected,
		Cookies:    cookies,
		raw:        raw,
	}
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Raw returns the underlying HTTP response. Reading its body directly
// bypasses content decoding and the single-read rule.
func (r *Response) Raw() *http.Response {
	return r.raw
}

// Trailer returns the trailers received after the body. It is only
// complete once the body has been read.
func (r *Response) Trailer() http.Header {
	if r.raw == nil {
		return nil
	}
	return r.raw.Trailer
}

// Reader returns the live response body, decoded from its
// content-encoding. The caller must close it.
func (r *Response) Reader() (io.ReadCloser, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.used || r.Digested {
		return nil, ErrBodyUsed
	}
	r.used = true
	return r.decoded()
}

func (r *Response) decoded() (io.ReadCloser, error) {
	if r.raw == nil || r.raw.Body == nil {
		return http.NoBody, nil
	}
	d, err := codec.NewReader(r.raw.Body, codec.Parse(r.Header.Get("Content-Encoding")))
	if err != nil {
		_ = r.raw.Body.Close()
		return nil, err
	}
	return &bodyCloser{ReadCloser: d, raw: r.raw.Body}, nil
}

type bodyCloser struct {
	io.ReadCloser
	raw io.Closer
}

func (b *bodyCloser) Close() error {
	err := b.ReadCloser.Close()
	if rerr := b.raw.Close(); err == nil {
		err = rerr
	}
	return err
}

// Bytes returns the response body.
func (r *Response) Bytes() ([]byte, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.Digested {
		return r.Data, nil
	}
	if r.used {
		return nil, ErrBodyUsed
	}
	r.used = true
	return r.readAll()
}

func (r *Response) readAll() ([]byte, error) {
	body, err := r.decoded()
	if err != nil {
		return nil, err
	}
	b, err := io.ReadAll(body)
	if cerr := body.Close(); err == nil {
		err = cerr
	}
	return b, err
}

// Text returns the response body as a string, converted to UTF-8 from
// the charset named in the Content-Type.
func (r *Response) Text() (string, error) {
	b, err := r.Bytes()
	if err != nil {
		return "", err
	}
	return decodeText(b, r.Header.Get("Content-Type"))
}

// JSON decodes the response body as JSON into v.
func (r *Response) JSON(v interface{}) error {
	b, err := r.Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// Close closes the response body without reading it, unless it has been
// handed out by Reader.
func (r *Response) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.used || r.Digested || r.raw == nil || r.raw.Body == nil {
		return nil
	}
	r.used = true
	return r.raw.Body.Close()
}

// Digest reads the whole body into Data and, if parse is true, parses
// it into Value. Digest is a no-op on a digested response.
func (r *Response) Digest(parse bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.Digested {
		return nil
	}
	if r.used {
		return ErrBodyUsed
	}
	r.used = true
	b, err := r.readAll()
	if err != nil {
		return err
	}
	r.Data = b
	r.Digested = true
	if parse && len(b) > 0 {
		r.Value, err = parseBody(b, r.Header.Get("Content-Type"))
	}
	return err
}

func parseBody(b []byte, contentType string) (interface{}, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		var v interface{}
		d := json.NewDecoder(bytes.NewReader(b))
		d.UseNumber()
		if err := d.Decode(&v); err != nil {
			return nil, &Error{Message: "unable to parse response body", Cause: err}
		}
		return v, nil
	case strings.HasPrefix(mediaType, "text/"):
		return decodeText(b, contentType)
	default:
		return nil, nil
	}
}

func decodeText(b []byte, contentType string) (string, error) {
	_, params, _ := mime.ParseMediaType(contentType)
	label := strings.ToLower(params["charset"])
	if label == "" || label == "utf-8" || label == "utf8" {
		return string(b), nil
	}
	rd, err := charset.NewReaderLabel(label, bytes.NewReader(b))
	if err != nil {
		return string(b), nil
	}
	t, err := io.ReadAll(rd)
	if err != nil {
		return "", err
	}
	return string(t), nil
}
