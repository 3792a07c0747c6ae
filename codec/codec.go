// Copyright 2021 The httpx Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package codec

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Names of the supported content-encodings.
const (
	Identity   = "identity"
	Gzip       = "gzip"
	Deflate    = "deflate"
	DeflateRaw = "deflate-raw"
	Zstd       = "zstd"
	Brotli     = "br"
)

// An UnsupportedError is returned when asked to encode with an
// encoding the package does not implement.
type UnsupportedError struct {
	Encoding string
}

func (err *UnsupportedError) Error() string {
	return fmt.Sprintf("hopper/codec: unsupported content-encoding %q", err.Encoding)
}

type codec struct {
	encode func(w io.Writer) (io.WriteCloser, error)
	decode func(r io.Reader) (io.ReadCloser, error)
}

var codecs = map[string]codec{
	Gzip: {
		encode: func(w io.Writer) (io.WriteCloser, error) {
			return gzip.NewWriter(w), nil
		},
		decode: func(r io.Reader) (io.ReadCloser, error) {
			return gzip.NewReader(r)
		},
	},
	Deflate: {
		encode: func(w io.Writer) (io.WriteCloser, error) {
			return zlib.NewWriter(w), nil
		},
		decode: func(r io.Reader) (io.ReadCloser, error) {
			return zlib.NewReader(r)
		},
	},
	DeflateRaw: {
		encode: func(w io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(w, flate.DefaultCompression)
		},
		decode: func(r io.Reader) (io.ReadCloser, error) {
			return flate.NewReader(r), nil
		},
	},
	Zstd: {
		encode: func(w io.Writer) (io.WriteCloser, error) {
			return zstd.NewWriter(w)
		},
		decode: func(r io.Reader) (io.ReadCloser, error) {
			d, err := zstd.NewReader(r)
			if err != nil {
				return nil, err
			}
			return d.IOReadCloser(), nil
		},
	},
	Brotli: {
		encode: func(w io.Writer) (io.WriteCloser, error) {
			return brotli.NewWriter(w), nil
		},
		decode: func(r io.Reader) (io.ReadCloser, error) {
			return io.NopCloser(brotli.NewReader(r)), nil
		},
	},
}

// Supported reports whether the named encoding is implemented. The name
// is matched case-insensitively and may carry a quality parameter, as in
// "gzip;q=0.8".
func Supported(name string) bool {
	name = token(name)
	if name == Identity || name == "*" {
		return true
	}
	_, ok := codecs[name]
	return ok
}

// Parse splits a comma-separated header value into lower-case encoding
// names, dropping empty entries and quality parameters.
func Parse(list string) []string {
	var names []string
	for _, part := range strings.Split(list, ",") {
		if name := token(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// Prune removes every unsupported entry from an Accept-Encoding header
// value, preserving the remaining entries verbatim and in order. The
// empty string is returned if nothing supported is left.
func Prune(list string) string {
	var kept []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part != "" && Supported(part) {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, ", ")
}

// NewWriter returns a writer which applies encodings, in order, to the
// data written to it before passing the result to w. Closing the
// returned writer flushes and closes every encoder but not w.
func NewWriter(w io.Writer, encodings []string) (io.WriteCloser, error) {
	chain := &writerChain{head: nopWriteCloser{w}}
	for i := len(encodings) - 1; i >= 0; i-- {
		name := token(encodings[i])
		if name == Identity {
			continue
		}
		c, ok := codecs[name]
		if !ok {
			return nil, &UnsupportedError{Encoding: encodings[i]}
		}
		enc, err := c.encode(chain.head)
		if err != nil {
			return nil, err
		}
		chain.closers = append(chain.closers, enc)
		chain.head = enc
	}
	return chain, nil
}

// NewReader returns a reader that undoes encodings, in reverse order,
// on the data read from r.
//
// If any of the encodings is not supported, r is returned unchanged
// (wrapped as a ReadCloser) so the caller sees the raw bytes rather than
// a decoding error.
func NewReader(r io.Reader, encodings []string) (io.ReadCloser, error) {
	for _, name := range encodings {
		if name = token(name); name != Identity {
			if _, ok := codecs[name]; !ok {
				return io.NopCloser(r), nil
			}
		}
	}
	chain := &readerChain{head: r}
	for i := len(encodings) - 1; i >= 0; i-- {
		name := token(encodings[i])
		if name == Identity {
			continue
		}
		dec, err := codecs[name].decode(chain.head)
		if err != nil {
			_ = chain.Close()
			return nil, err
		}
		chain.closers = append(chain.closers, dec)
		chain.head = dec
	}
	return chain, nil
}

// Encode applies encodings to b and returns the encoded bytes.
func Encode(b []byte, encodings []string) ([]byte, error) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, encodings)
	if err != nil {
		return nil, err
	}
	if _, err = w.Write(b); err != nil {
		return nil, err
	}
	if err = w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeReader returns a reader producing the encoded form of the data
// read from r. Encoding happens on a separate goroutine as the returned
// reader is consumed; closing the returned reader stops it.
func EncodeReader(r io.Reader, encodings []string) (io.ReadCloser, error) {
	pr, pw := io.Pipe()
	w, err := NewWriter(pw, encodings)
	if err != nil {
		return nil, err
	}
	go func() {
		_, err := io.Copy(w, r)
		if cerr := w.Close(); err == nil {
			err = cerr
		}
		_ = pw.CloseWithError(err)
	}()
	return pr, nil
}

func token(s string) string {
	if i := strings.IndexByte(s, ';'); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(strings.TrimSpace(s))
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

type writerChain struct {
	head    io.WriteCloser
	closers []io.WriteCloser
}

func (c *writerChain) Write(p []byte) (int, error) {
	return c.head.Write(p)
}

// Close closes the outermost encoder first so that each encoder flushes
// its trailer into the next one down the chain.
func (c *writerChain) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

type readerChain struct {
	head    io.Reader
	closers []io.ReadCloser
}

func (c *readerChain) Read(p []byte) (int, error) {
	return c.head.Read(p)
}

func (c *readerChain) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
